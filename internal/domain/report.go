package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusOrganized = "organized"
	StatusPlanned   = "planned"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const (
	ArchiveStatusPlanned = "planned"
	ArchiveStatusWritten = "written"
	ArchiveStatusFailed  = "failed"
)

// RunReport 是对外稳定输出（stdout JSON）的结构。
type RunReport struct {
	Path   string `json:"path"`
	Mode   Mode   `json:"mode"`
	DryRun bool   `json:"dry_run"`
	Status string `json:"status"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary   ReportSummary   `json:"summary"`
	Items     []ItemResult    `json:"items"`
	Archives  []ArchiveResult `json:"archives"`
	Warnings  []string        `json:"warnings"`
	Error     string          `json:"error,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

type ReportSummary struct {
	Titles     int `json:"titles"`
	Files      int `json:"files"`
	Finalized  int `json:"finalized"`
	RolledBack int `json:"rolled_back"`
	Failed     int `json:"failed"`
	Archives   int `json:"archives"`
}

// ItemResult 对应一条 RenameOperation。
type ItemResult struct {
	Title  string  `json:"title"`
	Src    string  `json:"src"`
	Dst    string  `json:"dst"`
	Number int     `json:"number"`
	State  OpState `json:"state"`
}

type ArchiveResult struct {
	Dir    string `json:"dir"`
	Path   string `json:"path"`
	Pages  int    `json:"pages"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 title 字典序，同一 title 内按编号
// 3) summary 由 items/archives 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	if r.Items == nil {
		r.Items = []ItemResult{}
	}
	if r.Archives == nil {
		r.Archives = []ArchiveResult{}
	}
	if r.Warnings == nil {
		r.Warnings = []string{}
	}

	sort.SliceStable(r.Items, func(i, j int) bool {
		a, b := r.Items[i], r.Items[j]
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.Number < b.Number
	})

	var s ReportSummary
	titles := map[string]struct{}{}
	for _, it := range r.Items {
		titles[it.Title] = struct{}{}
		s.Files++
		switch it.State {
		case OpFinalized:
			s.Finalized++
		case OpRolledBack:
			s.RolledBack++
		case OpFailed:
			s.Failed++
		}
	}
	s.Titles = len(titles)
	for _, a := range r.Archives {
		if a.Status == ArchiveStatusWritten {
			s.Archives++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
