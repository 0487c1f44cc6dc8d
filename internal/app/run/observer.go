package run

import (
	"github.com/John-Robertt/bookorg/internal/domain"
)

// EventKind 标识一次进度事件的类型。
type EventKind string

const (
	EventScanned         EventKind = "scanned"
	EventPlanned         EventKind = "planned"
	EventDirCreated      EventKind = "dir_created"
	EventMoved           EventKind = "moved"
	EventRolledBack      EventKind = "rolled_back"
	EventCleanupWarning  EventKind = "cleanup_warning"
	EventArchiveProgress EventKind = "archive_progress"
	EventArchived        EventKind = "archived"
	EventArchiveFailed   EventKind = "archive_failed"
	EventArchivePlanned  EventKind = "archive_planned"
	EventDone            EventKind = "done"
)

// Event 是 run 包向外发出的唯一消息类型；各字段按 Kind 选填。
type Event struct {
	Kind EventKind

	Dir    string
	DryRun bool
	Mode   domain.Mode

	// EventScanned
	Groups []domain.TitleGroup
	// EventPlanned
	Plan []domain.RenameOperation

	// EventMoved / EventRolledBack
	Src string
	Dst string

	// EventArchive*
	Path  string
	Pages []string
	Name  string // EventArchiveProgress：刚写入的条目
	Done  int
	Total int

	// EventCleanupWarning / EventArchiveFailed / EventRolledBack（回滚失败时）
	Err error

	// EventDone
	Report *domain.RunReport
}

// Observer 把进度与交互从核心流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 所有调用都在同一个 goroutine 内顺序发生。
type Observer interface {
	// Report 接收一条进度事件。
	Report(ev Event)
	// Confirm 在执行前被调用一次；返回 false 表示用户取消。
	Confirm(plan []domain.RenameOperation) bool
}

// nopObserver：不输出，自动确认。
type nopObserver struct{}

func (nopObserver) Report(Event) {}

func (nopObserver) Confirm([]domain.RenameOperation) bool { return true }

func observerOrNop(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
