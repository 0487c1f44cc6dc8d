package main

import (
	"io"
	"strings"

	"github.com/alexflint/go-arg"
	"github.com/pkg/errors"

	"github.com/John-Robertt/bookorg/internal/config"
	"github.com/John-Robertt/bookorg/internal/domain"
)

const version = "0.1.0"

// Args 是命令行参数。
type Args struct {
	Directory string `arg:"positional" placeholder:"DIRECTORY" help:"要整理的目录（默认：当前目录）"`
	DryRun    bool   `arg:"--dry-run" help:"只预览，不修改任何文件"`
	Auto      bool   `arg:"--auto" help:"不询问，直接执行"`
	CBZ       bool   `arg:"--cbz" help:"整理完成后为新建的目录创建 CBZ 归档"`
	ToCBZ     string `arg:"--to-cbz" placeholder:"DIR" help:"把指定目录直接转换为 CBZ 归档（不整理）"`
	Magazine  bool   `arg:"--magazine" help:"杂志剪报模式：没有封面，标题文件为 001"`
	Config    string `arg:"--config" placeholder:"FILE" help:"配置文件（默认：<DIRECTORY>/bookorg.yaml，可选）"`
	Verbose   bool   `arg:"-v,--verbose" help:"输出调试日志"`
	NoColor   bool   `arg:"--no-color" help:"禁用彩色输出"`
}

func (Args) Version() string {
	return "bookorg " + version
}

func (Args) Description() string {
	return "把书籍扫描得到的图片文件整理为 <标题>/<标题>_NNN 的目录结构"
}

func (Args) Epilog() string {
	return `示例：
  bookorg                         # 整理当前目录
  bookorg /path/to/book           # 整理指定目录
  bookorg --dry-run ./book        # 只预览
  bookorg --auto ./book           # 不确认直接执行
  bookorg --cbz ./book            # 整理后创建 CBZ
  bookorg --magazine ./magazine   # 杂志剪报模式
  bookorg --to-cbz ./manga_dir    # 把目录转换为 CBZ`
}

// errExit 表示解析阶段已经处理完毕（--help / --version），调用方应以给定状态码退出。
type errExit struct{ code int }

func (e errExit) Error() string { return "exit" }

// parseArgs 解析 argv。--help / --version 写到 out 后返回 errExit{0}；
// 参数错误写用法到 errOut 并返回 errExit{2}。
func parseArgs(argv []string, out, errOut io.Writer) (Args, error) {
	var args Args
	p, err := arg.NewParser(arg.Config{Program: "bookorg"}, &args)
	if err != nil {
		return Args{}, errors.Wrap(err, "初始化参数解析失败")
	}

	err = p.Parse(argv)
	switch {
	case err == nil:
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(out)
		return Args{}, errExit{0}
	case errors.Is(err, arg.ErrVersion):
		_, _ = io.WriteString(out, args.Version()+"\n")
		return Args{}, errExit{0}
	default:
		p.WriteUsage(errOut)
		_, _ = io.WriteString(errOut, "参数错误："+err.Error()+"\n")
		return Args{}, errExit{2}
	}

	if strings.TrimSpace(args.Directory) == "" {
		args.Directory = "."
	}
	return args, nil
}

// cliArgs 把命令行参数映射为配置层的输入。
// --to-cbz 时配置文件在被转换的目录下发现。
func (a Args) cliArgs() config.CLIArgs {
	path := a.Directory
	if a.ToCBZ != "" {
		path = a.ToCBZ
	}
	cli := config.CLIArgs{
		Path:       path,
		ConfigFile: a.Config,
		DryRun:     a.DryRun,
		Auto:       a.Auto,
		Archive:    a.CBZ,
		Verbose:    a.Verbose,
		NoColor:    a.NoColor,
	}
	if a.Magazine {
		cli.Mode = string(domain.ModeMagazine)
		cli.ModeSet = true
	}
	return cli
}
