package run

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/John-Robertt/bookorg/internal/infra/fsx"
)

// ErrCancelled 表示用户在确认提示处拒绝执行。调用方应把它当作正常的否定结果，而非故障。
var ErrCancelled = errors.New("处理已取消")

// FilesystemError 表示执行阶段的文件系统操作失败（创建目录 / rename）。
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	msg := fmt.Sprintf("%s 失败：%s：%v", e.Op, e.Path, e.Err)
	if fsx.IsCrossDevice(e.Err) {
		msg += "（源文件与目标不在同一文件系统，无法原子移动）"
	}
	return msg
}

func (e *FilesystemError) Unwrap() error { return e.Err }

func IsFilesystemError(err error) bool {
	var e *FilesystemError
	return errors.As(err, &e)
}

func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
