// Package run 串联 扫描 -> 分组 -> 规划 -> 预览 -> 确认 -> 执行 的完整流程。
package run

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/John-Robertt/bookorg/internal/app"
	"github.com/John-Robertt/bookorg/internal/app/planner"
	"github.com/John-Robertt/bookorg/internal/domain"
)

// Options 是一次整理运行的输入（已合并 CLI 与配置文件）。
type Options struct {
	Dir         string
	Mode        domain.Mode
	DryRun      bool
	AutoConfirm bool
	Archive     bool
	ArchiveExt  string
	ComicInfo   bool
	Log         *slog.Logger

	// Executor 为 nil 时使用默认实现；测试可注入带故障的文件系统原语。
	Executor *Executor
}

// Organize 执行一次完整的整理，并返回对外稳定的 RunReport。
//
// 规划阶段的错误（目录不存在、没有图片、文件数不足……）在任何修改发生前返回。
// 用户拒绝确认时返回 ErrCancelled，目录保持原样。
// 返回的 report 总是已 Finalize；error 非 nil 时 report.Status 为 failed 或 cancelled。
func Organize(ctx context.Context, opts Options, obs Observer) (domain.RunReport, error) {
	obs = observerOrNop(obs)
	log := opts.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		dir = filepath.Clean(opts.Dir)
	}
	mode := opts.Mode
	if mode == "" {
		mode = domain.ModeStandard
	}

	rr := domain.RunReport{
		Path:      dir,
		Mode:      mode,
		DryRun:    opts.DryRun,
		StartedAt: time.Now().UTC(),
	}

	groups, err := app.Classify(dir)
	if err != nil {
		return fail(obs, rr, err)
	}
	log.Debug("分组完成", "dir", dir, "groups", len(groups))
	obs.Report(Event{Kind: EventScanned, Dir: dir, Mode: mode, DryRun: opts.DryRun, Groups: groups})

	plan, err := planner.Plan(dir, groups, mode)
	if err != nil {
		return fail(obs, rr, err)
	}
	// 只有标题文件、没有连番文件时计划为空：没有可确认的操作。
	if len(plan) == 0 {
		return fail(obs, rr, &planner.EmptyGroupsError{})
	}
	if err := planner.Validate(plan); err != nil {
		return fail(obs, rr, errors.Wrap(err, "计划校验失败"))
	}
	log.Debug("规划完成", "operations", len(plan))
	obs.Report(Event{Kind: EventPlanned, Dir: dir, Mode: mode, DryRun: opts.DryRun, Plan: plan})

	if !opts.DryRun && !opts.AutoConfirm && !obs.Confirm(plan) {
		rr.Items = Result{}.Items(plan)
		rr.Status = domain.StatusCancelled
		rr.Error = ErrCancelled.Error()
		return finish(obs, rr), ErrCancelled
	}

	exec := opts.Executor
	if exec == nil {
		exec = &Executor{}
	}
	if exec.Log == nil {
		exec.Log = log
	}
	if exec.Report == nil {
		exec.Report = obs.Report
	}

	res, err := exec.Execute(ctx, plan, ExecOptions{
		DryRun:     opts.DryRun,
		Archive:    opts.Archive,
		ArchiveExt: opts.ArchiveExt,
		ComicInfo:  opts.ComicInfo,
		CoverFirst: mode == domain.ModeStandard,
	})
	rr.Items = res.Items(plan)
	rr.Archives = res.Archives
	rr.Warnings = res.Warnings

	switch {
	case err != nil:
		rr.Status = domain.StatusFailed
		rr.Error = err.Error()
	case opts.DryRun:
		rr.Status = domain.StatusPlanned
	default:
		rr.Status = domain.StatusOrganized
	}
	return finish(obs, rr), err
}

func fail(obs Observer, rr domain.RunReport, err error) (domain.RunReport, error) {
	rr.Status = domain.StatusFailed
	rr.Error = err.Error()
	return finish(obs, rr), err
}

func finish(obs Observer, rr domain.RunReport) domain.RunReport {
	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	obs.Report(Event{Kind: EventDone, Dir: rr.Path, Mode: rr.Mode, DryRun: rr.DryRun, Report: &rr})
	return rr
}
