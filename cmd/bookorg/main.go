package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/John-Robertt/bookorg/internal/app/planner"
	"github.com/John-Robertt/bookorg/internal/app/run"
	"github.com/John-Robertt/bookorg/internal/archive"
	"github.com/John-Robertt/bookorg/internal/config"
	"github.com/John-Robertt/bookorg/internal/domain"
	"github.com/John-Robertt/bookorg/internal/infra/fsx"
	"github.com/John-Robertt/bookorg/internal/scan"
)

func main() {
	// 中断时立即退出：已完成的移动保持原样。
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		fmt.Fprintln(os.Stderr, "\n已中断")
		os.Exit(1)
	}()

	os.Exit(realMain(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// realMain 返回进程退出码：0 成功；1 失败/取消；2 参数错误。
func realMain(ctx context.Context, argv []string, stdin io.Reader, stdout, stderr io.Writer) int {
	args, err := parseArgs(argv, stdout, stderr)
	if err != nil {
		var ex errExit
		if errors.As(err, &ex) {
			return ex.code
		}
		fmt.Fprintf(stderr, "错误：%v\n", err)
		return 1
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(stderr, "读取当前目录失败：%v\n", err)
		return 1
	}

	eff, err := config.LoadEffective(cwd, args.cliArgs())
	if err != nil {
		fmt.Fprintf(stderr, "错误：%v\n", err)
		emitReport(stdout, stderr, reportForConfigError(cwd, args, err))
		return 1
	}

	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: eff.LogLevel}))
	if eff.ConfigPath != "" {
		log.Debug("读取配置文件", "path", eff.ConfigPath)
	}

	ui := newConsole(stderr, stdin, eff.Color, isTerminal(stderr))

	var rr domain.RunReport
	if args.ToCBZ != "" {
		rr, err = convert(ctx, eff, ui)
	} else {
		rr, err = run.Organize(ctx, run.Options{
			Dir:         eff.Path,
			Mode:        eff.Mode,
			DryRun:      eff.DryRun,
			AutoConfirm: eff.Auto,
			Archive:     eff.Archive,
			ArchiveExt:  eff.ArchiveExt,
			ComicInfo:   eff.ComicInfo,
			Log:         log,
		}, ui)
	}

	if err != nil {
		rr.ErrorCode = errorCode(err)
	}
	emitReport(stdout, stderr, rr)

	switch {
	case err == nil:
		return 0
	case run.IsCancelled(err):
		return 1
	default:
		ui.errorf("%v", err)
		if h := hint(err); h != "" {
			ui.hintf("%s", h)
		}
		return 1
	}
}

// 报告中的错误码（机器可读，与 error 文本并列）。
const (
	codeDirNotFound   = "dir_not_found"
	codeNoImages      = "no_images"
	codeEmptyGroups   = "empty_groups"
	codeInsufficient  = "insufficient_files"
	codeCrossDevice   = "cross_device"
	codeFilesystem    = "fs_failed"
	codeArchiveFailed = "archive_failed"
	codeCancelled     = "cancelled"
	codeInternal      = "internal"
)

// errorCode 把错误归类为稳定的错误码；顺序从具体到笼统。
func errorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case config.Code(err) != "":
		return config.Code(err)
	case run.IsCancelled(err):
		return codeCancelled
	case fsx.IsCrossDevice(err):
		return codeCrossDevice
	case archive.IsArchiveError(err):
		return codeArchiveFailed
	case scan.IsNotFound(err):
		return codeDirNotFound
	case scan.IsNoImages(err):
		return codeNoImages
	case planner.IsEmptyGroups(err):
		return codeEmptyGroups
	case planner.IsInsufficientFiles(err):
		return codeInsufficient
	case run.IsFilesystemError(err):
		return codeFilesystem
	default:
		return codeInternal
	}
}

// hint 返回面向用户的补救建议；没有合适建议时返回空串。
func hint(err error) string {
	var insufficient *planner.InsufficientFilesError
	switch {
	case errors.As(err, &insufficient) && insufficient.Mode == domain.ModeStandard:
		return fmt.Sprintf("标题 %q 只有 %d 个连番文件；杂志模式（--magazine）下 1 个即可", insufficient.Title, insufficient.Have)
	case planner.IsEmptyGroups(err):
		return "文件名需要以 _<数字> 结尾（例如 title_001.jpg）才会被整理"
	case scan.IsNoImages(err):
		return "只处理 .jpg/.jpeg/.png（扩展名区分大小写）"
	default:
		return ""
	}
}

func reportForConfigError(cwd string, args Args, err error) domain.RunReport {
	now := time.Now().UTC()
	path := args.Directory
	if args.ToCBZ != "" {
		path = args.ToCBZ
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	rr := domain.RunReport{
		Path:       path,
		DryRun:     args.DryRun,
		Status:     domain.StatusFailed,
		StartedAt:  now,
		FinishedAt: now,
		Error:      err.Error(),
		ErrorCode:  errorCode(err),
	}
	rr.Finalize()
	return rr
}

// convert 把 eff.Path 直接转换为归档（不整理）。
func convert(ctx context.Context, eff config.EffectiveConfig, ui *console) (domain.RunReport, error) {
	rr := domain.RunReport{
		Path:      eff.Path,
		DryRun:    eff.DryRun,
		StartedAt: time.Now().UTC(),
	}
	finish := func(status string, err error) (domain.RunReport, error) {
		rr.Status = status
		if err != nil {
			rr.Error = err.Error()
		}
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return rr, err
	}

	if err := ctx.Err(); err != nil {
		return finish(domain.StatusFailed, err)
	}

	res, err := archive.ConvertDirectory(eff.Path, archive.Options{
		Ext:        eff.ArchiveExt,
		DryRun:     eff.DryRun,
		ComicInfo:  eff.ComicInfo,
		CoverFirst: eff.Mode == domain.ModeStandard,
		Progress: func(done, total int, name string) {
			ui.Report(run.Event{Kind: run.EventArchiveProgress, Dir: eff.Path, Done: done, Total: total, Name: name})
		},
	})
	if err != nil {
		ui.Report(run.Event{Kind: run.EventArchiveFailed, Dir: eff.Path, Err: err})
		rr.Archives = append(rr.Archives, domain.ArchiveResult{
			Dir: res.Dir, Path: res.Path, Status: domain.ArchiveStatusFailed, Error: err.Error(),
		})
		return finish(domain.StatusFailed, err)
	}

	if eff.DryRun {
		ui.Report(run.Event{Kind: run.EventArchivePlanned, Dir: res.Dir, Path: res.Path, Pages: res.Pages, Total: len(res.Pages), DryRun: true})
		rr.Archives = append(rr.Archives, domain.ArchiveResult{
			Dir: res.Dir, Path: res.Path, Pages: len(res.Pages), Status: domain.ArchiveStatusPlanned,
		})
		return finish(domain.StatusPlanned, nil)
	}

	ui.Report(run.Event{Kind: run.EventArchived, Dir: res.Dir, Path: res.Path, Pages: res.Pages, Total: len(res.Pages)})
	rr.Archives = append(rr.Archives, domain.ArchiveResult{
		Dir: res.Dir, Path: res.Path, Pages: len(res.Pages), Status: domain.ArchiveStatusWritten,
	})
	return finish(domain.StatusOrganized, nil)
}

// emitReport：stdout 是终端时输出一行摘要；否则 stdout 只输出一个 RunReport JSON（摘要走 stderr）。
func emitReport(stdout, stderr io.Writer, rr domain.RunReport) {
	summary := fmt.Sprintf("完成：status=%s titles=%d files=%d finalized=%d rolled_back=%d failed=%d archives=%d\n",
		rr.Status, rr.Summary.Titles, rr.Summary.Files, rr.Summary.Finalized,
		rr.Summary.RolledBack, rr.Summary.Failed, rr.Summary.Archives,
	)
	if isTerminal(stdout) {
		fmt.Fprint(stdout, summary)
		return
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(rr)
	fmt.Fprint(stderr, summary)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
