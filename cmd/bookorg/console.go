package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/schollz/progressbar/v3"

	"github.com/John-Robertt/bookorg/internal/app/planner"
	"github.com/John-Robertt/bookorg/internal/app/run"
	"github.com/John-Robertt/bookorg/internal/config"
	"github.com/John-Robertt/bookorg/internal/domain"
)

var _ run.Observer = (*console)(nil)

type styles struct {
	title lipgloss.Style
	dim   lipgloss.Style
	ok    lipgloss.Style
	warn  lipgloss.Style
	err   lipgloss.Style
}

func newStyles(w io.Writer, color string) styles {
	r := lipgloss.NewRenderer(w)
	switch {
	case color == config.ColorNever || os.Getenv("NO_COLOR") != "":
		r.SetColorProfile(termenv.Ascii)
	case color == config.ColorAlways:
		r.SetColorProfile(termenv.ANSI256)
	}
	return styles{
		title: r.NewStyle().Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("8")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("2")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("3")),
		err:   r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
}

// console 把 run 层事件渲染为面向人的终端输出（全部写到 w，通常是 stderr）。
// 确认提示从 in 读取一行。
type console struct {
	w  io.Writer
	in *bufio.Reader
	st styles

	// progress 为 true 时归档阶段显示进度条（仅交互终端）。
	progress bool
	bar      *progressbar.ProgressBar
}

func newConsole(w io.Writer, in io.Reader, color string, progress bool) *console {
	return &console{
		w:        w,
		in:       bufio.NewReader(in),
		st:       newStyles(w, color),
		progress: progress,
	}
}

func (c *console) printf(format string, a ...any) {
	fmt.Fprintf(c.w, format, a...)
}

func (c *console) Report(ev run.Event) {
	switch ev.Kind {
	case run.EventScanned:
		c.scanned(ev)
	case run.EventPlanned:
		c.planned(ev)
	case run.EventDirCreated:
		c.printf("%s 创建目录：%s\n", c.st.ok.Render("+"), filepath.Base(ev.Dir))
	case run.EventMoved:
		// 逐条移动只进调试日志，避免刷屏。
	case run.EventRolledBack:
		if ev.Err != nil {
			c.printf("%s 回滚失败：%s -> %s：%v\n", c.st.err.Render("✗"), ev.Src, ev.Dst, ev.Err)
		}
	case run.EventCleanupWarning:
		c.cleanupWarning(ev.Dir, ev.Err)
	case run.EventArchiveProgress:
		c.archiveProgress(ev)
	case run.EventArchived:
		c.finishBar()
		c.printf("%s 创建归档：%s（%d 页）\n", c.st.ok.Render("✓"), filepath.Base(ev.Path), len(ev.Pages))
	case run.EventArchiveFailed:
		c.finishBar()
		c.printf("%s 归档失败：%s：%v\n", c.st.err.Render("✗"), filepath.Base(ev.Dir), ev.Err)
	case run.EventArchivePlanned:
		c.printf("%s 计划创建归档：%s（%d 页）\n", c.st.dim.Render("[dry-run]"), filepath.Base(ev.Path), ev.Total)
		for _, p := range ev.Pages {
			c.printf("    - %s\n", p)
		}
	case run.EventDone:
		c.done(ev.Report)
	}
}

func (c *console) scanned(ev run.Event) {
	if ev.DryRun {
		c.printf("%s\n", c.st.warn.Render("dry-run 模式：不会修改任何文件"))
	}
	c.printf("%s %s\n", c.st.title.Render("目标："), ev.Dir)
	c.printf("%s %d 个（模式：%s）\n\n", c.st.title.Render("检测到的文件组："), len(ev.Groups), ev.Mode)

	c.printf("%s\n", c.st.title.Render("当前文件构成："))
	for _, g := range ev.Groups {
		c.printf("  标题：%s（%d 个文件）\n", g.Title(), len(g.Files()))
		if f, ok := g.TitleOnly(); ok {
			c.printf("    标题文件：%s\n", f.Name)
		}
		if g.NumberedCount() > 0 {
			names := make([]string, 0, g.NumberedCount())
			for _, f := range g.Numbered() {
				names = append(names, f.Name)
			}
			c.printf("    连番：[%s]\n", strings.Join(names, ", "))
		}
	}
	c.printf("\n")
}

func (c *console) planned(ev run.Event) {
	c.printf("%s\n", c.st.title.Render("处理计划："))
	for _, tp := range planner.Summarize(ev.Plan) {
		c.printf("  创建目录 '%s/'：\n", tp.Title)
		for _, op := range tp.Ops {
			rel, err := filepath.Rel(ev.Dir, op.DstAbs)
			if err != nil {
				rel = op.DstAbs
			}
			c.printf("    %s → %s\n", op.Src.Name, filepath.ToSlash(rel))
		}
	}
	c.printf("\n")
}

func (c *console) cleanupWarning(dir string, cause error) {
	c.printf("%s 无法删除空目录：%s\n", c.st.warn.Render("!"), dir)
	c.printf("    原因：%v\n", cause)
	c.printf("    处理方法：\n")
	c.printf("      1. 在文件管理器中手动删除\n")
	c.printf("      2. 终端：rm -rf '%s'（Mac/Linux）\n", dir)
	c.printf("      3. 命令提示符：rmdir /s '%s'（Windows）\n", dir)
	c.printf("    %s\n", c.st.dim.Render("注意：该目录残留不会影响下次运行"))
}

func (c *console) archiveProgress(ev run.Event) {
	if !c.progress {
		return
	}
	if c.bar == nil {
		c.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(c.w),
			progressbar.OptionSetDescription(filepath.Base(ev.Dir)),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = c.bar.Set(ev.Done)
}

func (c *console) finishBar() {
	if c.bar == nil {
		return
	}
	_ = c.bar.Finish()
	c.bar = nil
}

func (c *console) done(rr *domain.RunReport) {
	if rr == nil {
		return
	}
	switch rr.Status {
	case domain.StatusOrganized:
		c.printf("%s\n", c.st.ok.Render(fmt.Sprintf("文件整理完成：%d 个标题，%d 个文件", rr.Summary.Titles, rr.Summary.Finalized)))
	case domain.StatusPlanned:
		c.printf("%s\n", c.st.dim.Render("dry-run 结束：未修改任何文件"))
	case domain.StatusCancelled:
		c.printf("已取消处理\n")
	case domain.StatusFailed:
		if rr.Summary.RolledBack > 0 || rr.Summary.Failed > 0 {
			c.printf("%s\n", c.st.warn.Render(fmt.Sprintf("已回滚 %d 个文件，%d 个文件回滚失败", rr.Summary.RolledBack, rr.Summary.Failed)))
		}
	}
}

// Confirm 在 w 上提示并从 in 读取一行；读到 EOF 视为拒绝。
func (c *console) Confirm(plan []domain.RenameOperation) bool {
	c.printf("是否执行此操作？[y/N]：")
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		c.printf("\n")
		return false
	}
	return isYes(line)
}

func isYes(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (c *console) errorf(format string, a ...any) {
	c.printf("%s %s\n", c.st.err.Render("错误："), fmt.Sprintf(format, a...))
}

func (c *console) hintf(format string, a ...any) {
	c.printf("%s %s\n", c.st.dim.Render("提示："), fmt.Sprintf(format, a...))
}
