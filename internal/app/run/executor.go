package run

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/John-Robertt/bookorg/internal/app/planner"
	"github.com/John-Robertt/bookorg/internal/archive"
	"github.com/John-Robertt/bookorg/internal/domain"
	"github.com/John-Robertt/bookorg/internal/infra/fsx"
)

// TempSuffix 是两阶段移动中临时文件名的固定部分：.<uuid>.bookorg-tmp<ext>。
// 临时文件以点开头，扫描阶段会忽略它们。
const TempSuffix = ".bookorg-tmp"

// Executor 执行重命名计划。所有文件系统原语都可替换，便于在测试中注入故障。
// 零值可用：未设置的字段使用 fsx / archive 的默认实现。
type Executor struct {
	Rename   func(src, dst string) error
	Mkdir    func(dir string) (created bool, err error)
	Remove   func(dir string) error
	TempName func(ext string) string
	Pack     func(dir string, opts archive.Options) (archive.Result, error)
	Log      *slog.Logger

	// Report 接收执行过程中的事件（可为 nil）。
	Report func(Event)
}

// ExecOptions 控制一次 Execute。
type ExecOptions struct {
	DryRun     bool
	Archive    bool
	ArchiveExt string
	// ComicInfo/CoverFirst 透传给 archive.Options。
	ComicInfo  bool
	CoverFirst bool
}

// Result 是一次 Execute 的结果。States 与传入的 plan 一一对应。
type Result struct {
	States      []domain.OpState
	CreatedDirs []string
	Archives    []domain.ArchiveResult
	Warnings    []string
}

// Items 把计划与执行状态合并为报告条目。
func (r Result) Items(plan []domain.RenameOperation) []domain.ItemResult {
	out := make([]domain.ItemResult, 0, len(plan))
	for i, op := range plan {
		st := domain.OpPlanned
		if i < len(r.States) {
			st = r.States[i]
		}
		out = append(out, domain.ItemResult{
			Title:  op.Title,
			Src:    op.Src.AbsPath,
			Dst:    op.DstAbs,
			Number: op.Number,
			State:  st,
		})
	}
	return out
}

// move 跟踪单条操作在两阶段移动中的位置。
type move struct {
	op    domain.RenameOperation
	tmp   string
	state domain.OpState
}

// Execute 执行 plan：
//
//  1. 创建缺失的目标目录（记录本次新建的目录）
//  2. 两阶段移动：全部 源 -> 临时名，再全部 临时名 -> 目标（目标已存在时拒绝覆盖）
//  3. 任一步失败：把已移动的文件放回原处，并删除本次新建的空目录
//  4. 成功且需要归档：逐个打包本次新建的目录；单个目录失败不影响其他目录
//
// dry-run 不做任何修改，只返回将要生成的归档路径。
// 返回的 error 只反映 1/2 步的失败（*FilesystemError）或 ctx 取消；归档失败记录在 Result.Archives。
func (e *Executor) Execute(ctx context.Context, plan []domain.RenameOperation, opts ExecOptions) (Result, error) {
	e.defaults()

	res := Result{States: make([]domain.OpState, len(plan))}
	for i := range res.States {
		res.States[i] = domain.OpPlanned
	}

	if opts.DryRun {
		if opts.Archive {
			e.planArchives(plan, opts.ArchiveExt, &res)
		}
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}

	if err := e.createDirs(plan, &res); err != nil {
		e.cleanupDirs(&res)
		return res, err
	}

	moves := make([]move, len(plan))
	for i, op := range plan {
		moves[i] = move{op: op, state: domain.OpPlanned}
	}
	if err := e.moveAll(moves, &res); err != nil {
		e.Log.Warn("移动失败，开始回滚", "error", err)
		e.rollback(moves, &res)
		e.cleanupDirs(&res)
		return res, err
	}

	if opts.Archive {
		if err := e.archiveDirs(ctx, res.CreatedDirs, opts, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Executor) defaults() {
	if e.Rename == nil {
		e.Rename = fsx.RenameNoReplace
	}
	if e.Mkdir == nil {
		e.Mkdir = fsx.EnsureDir
	}
	if e.Remove == nil {
		e.Remove = fsx.RemoveIfEmpty
	}
	if e.TempName == nil {
		e.TempName = func(ext string) string { return "." + uuid.NewString() + TempSuffix + ext }
	}
	if e.Pack == nil {
		e.Pack = archive.ConvertDirectory
	}
	if e.Log == nil {
		e.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

func (e *Executor) emit(ev Event) {
	if e.Report != nil {
		e.Report(ev)
	}
}

func (e *Executor) planArchives(plan []domain.RenameOperation, ext string, res *Result) {
	for _, dir := range planner.TargetDirs(plan) {
		if _, err := os.Stat(dir); err == nil {
			continue // 只归档本次会新建的目录
		}
		ar := domain.ArchiveResult{
			Dir:    dir,
			Path:   archive.PathFor(dir, ext),
			Pages:  countPages(plan, dir),
			Status: domain.ArchiveStatusPlanned,
		}
		res.Archives = append(res.Archives, ar)
		e.emit(Event{Kind: EventArchivePlanned, Dir: dir, Path: ar.Path, Total: ar.Pages, DryRun: true})
	}
}

func countPages(plan []domain.RenameOperation, dir string) int {
	n := 0
	for _, op := range plan {
		if filepath.Dir(op.DstAbs) == dir {
			n++
		}
	}
	return n
}

func (e *Executor) createDirs(plan []domain.RenameOperation, res *Result) error {
	for _, dir := range planner.TargetDirs(plan) {
		created, err := e.Mkdir(dir)
		if err != nil {
			return &FilesystemError{Op: "mkdir", Path: dir, Err: err}
		}
		if created {
			res.CreatedDirs = append(res.CreatedDirs, dir)
			e.Log.Debug("创建目录", "dir", dir)
			e.emit(Event{Kind: EventDirCreated, Dir: dir})
		}
	}
	return nil
}

func (e *Executor) moveAll(moves []move, res *Result) error {
	for i := range moves {
		m := &moves[i]
		m.tmp = filepath.Join(m.op.Src.Dir, e.TempName(m.op.Src.Ext))
		if err := e.Rename(m.op.Src.AbsPath, m.tmp); err != nil {
			return &FilesystemError{Op: "rename", Path: m.op.Src.AbsPath, Err: err}
		}
		m.state = domain.OpTempRenamed
		res.States[i] = m.state
	}
	for i := range moves {
		m := &moves[i]
		if err := e.Rename(m.tmp, m.op.DstAbs); err != nil {
			return &FilesystemError{Op: "rename", Path: m.op.DstAbs, Err: err}
		}
		m.state = domain.OpFinalized
		res.States[i] = m.state
		e.Log.Debug("移动文件", "src", m.op.Src.AbsPath, "dst", m.op.DstAbs)
		e.emit(Event{Kind: EventMoved, Src: m.op.Src.AbsPath, Dst: m.op.DstAbs})
	}
	return nil
}

// rollback 把文件放回原处，同样分两阶段：
//
//  1. 逆序把已 Finalized 的目标移到新的临时名（腾出可能是其他条目源路径的位置）
//  2. 逆序把所有临时名移回源路径
//
// 单条回滚失败只记为警告（状态 Failed），继续处理其余条目。
func (e *Executor) rollback(moves []move, res *Result) {
	for i := len(moves) - 1; i >= 0; i-- {
		m := &moves[i]
		if m.state != domain.OpFinalized {
			continue
		}
		tmp := filepath.Join(m.op.Src.Dir, e.TempName(m.op.Src.Ext))
		if err := e.Rename(m.op.DstAbs, tmp); err != nil {
			e.rollbackFailed(i, m, m.op.DstAbs, err, res)
			continue
		}
		m.tmp = tmp
		m.state = domain.OpTempRenamed
		res.States[i] = m.state
	}

	for i := len(moves) - 1; i >= 0; i-- {
		m := &moves[i]
		if m.state != domain.OpTempRenamed {
			continue
		}
		if err := e.Rename(m.tmp, m.op.Src.AbsPath); err != nil {
			e.rollbackFailed(i, m, m.tmp, err, res)
			continue
		}
		m.state = domain.OpRolledBack
		res.States[i] = m.state
		e.emit(Event{Kind: EventRolledBack, Src: m.tmp, Dst: m.op.Src.AbsPath})
	}
}

func (e *Executor) rollbackFailed(i int, m *move, from string, err error, res *Result) {
	m.state = domain.OpFailed
	res.States[i] = m.state
	res.Warnings = append(res.Warnings, fmt.Sprintf("回滚失败：%s -> %s：%v", from, m.op.Src.AbsPath, err))
	e.Log.Error("回滚失败", "from", from, "to", m.op.Src.AbsPath, "error", err)
	e.emit(Event{Kind: EventRolledBack, Src: from, Dst: m.op.Src.AbsPath, Err: err})
}

// cleanupDirs 删除本次新建且已为空的目录；失败只产生警告。
func (e *Executor) cleanupDirs(res *Result) {
	dirs := append([]string(nil), res.CreatedDirs...)
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))
	for _, dir := range dirs {
		if err := e.Remove(dir); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("无法删除空目录：%s：%v", dir, err))
			e.Log.Warn("清理目录失败", "dir", dir, "error", err)
			e.emit(Event{Kind: EventCleanupWarning, Dir: dir, Err: err})
		}
	}
}

func (e *Executor) archiveDirs(ctx context.Context, dirs []string, opts ExecOptions, res *Result) error {
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		progress := func(done, total int, name string) {
			e.emit(Event{Kind: EventArchiveProgress, Dir: dir, Done: done, Total: total, Name: name})
		}
		ar, err := e.Pack(dir, archive.Options{
			Ext:        opts.ArchiveExt,
			Progress:   progress,
			ComicInfo:  opts.ComicInfo,
			CoverFirst: opts.CoverFirst,
		})
		if err != nil {
			res.Archives = append(res.Archives, domain.ArchiveResult{
				Dir:    dir,
				Path:   archive.PathFor(dir, opts.ArchiveExt),
				Status: domain.ArchiveStatusFailed,
				Error:  err.Error(),
			})
			e.Log.Warn("归档失败", "dir", dir, "error", err)
			e.emit(Event{Kind: EventArchiveFailed, Dir: dir, Err: err})
			continue
		}
		res.Archives = append(res.Archives, domain.ArchiveResult{
			Dir:    dir,
			Path:   ar.Path,
			Pages:  len(ar.Pages),
			Status: domain.ArchiveStatusWritten,
		})
		e.emit(Event{Kind: EventArchived, Dir: dir, Path: ar.Path, Pages: ar.Pages, Total: len(ar.Pages)})
	}
	return nil
}
