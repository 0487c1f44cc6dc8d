package domain

import (
	"fmt"
	"strings"
)

// Mode 是目录布局模式。
type Mode string

const (
	// ModeStandard：倒数第二个连番文件是封面（001），标题文件紧随其后（002）。
	ModeStandard Mode = "standard"
	// ModeMagazine：没有封面概念，标题文件（若有）是 001，其余依次递增。
	ModeMagazine Mode = "magazine"
)

// MinNumbered 返回该模式下每个分组至少需要的连番文件数。
func (m Mode) MinNumbered() int {
	if m == ModeMagazine {
		return 1
	}
	return 2
}

// ParseMode 解析 "standard" / "magazine"（忽略大小写与首尾空白；空串视为 standard）。
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ModeStandard):
		return ModeStandard, nil
	case string(ModeMagazine):
		return ModeMagazine, nil
	default:
		return "", fmt.Errorf("mode 只能是 standard 或 magazine，实际是 %q", s)
	}
}

// RenameOperation 规划一次文件移动（只描述 src/dst；真正执行由 run.Executor 负责）。
type RenameOperation struct {
	Src    ImageFile
	DstAbs string // <root>/<title>/<title>_<NNN><ext>
	Title  string
	Number int
}

// TargetName 返回 <title>_<3 位补零编号><ext>。
func TargetName(title string, number int, ext string) string {
	return fmt.Sprintf("%s_%03d%s", title, number, ext)
}

// OpState 是单条 RenameOperation 的执行状态。
//
// 正常路径：Planned -> TempRenamed -> Finalized
// 失败回滚：TempRenamed/Finalized -> RolledBack（回滚本身失败则为 Failed）
type OpState string

const (
	OpPlanned     OpState = "planned"
	OpTempRenamed OpState = "temp_renamed"
	OpFinalized   OpState = "finalized"
	OpRolledBack  OpState = "rolled_back"
	OpFailed      OpState = "failed"
)
