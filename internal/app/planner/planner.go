package planner

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/John-Robertt/bookorg/internal/domain"
)

// EmptyGroupsError 表示分类后没有任何可用分组。
type EmptyGroupsError struct{}

func (e *EmptyGroupsError) Error() string { return "没有找到有效的文件分组" }

// InsufficientFilesError 表示某个标题的连番文件数不满足当前模式的下限。
type InsufficientFilesError struct {
	Title string
	Mode  domain.Mode
	Have  int
	Need  int
}

func (e *InsufficientFilesError) Error() string {
	return fmt.Sprintf("标题 %q：%s 模式至少需要 %d 个连番文件（实际 %d 个）", e.Title, e.Mode, e.Need, e.Have)
}

func IsEmptyGroups(err error) bool {
	var e *EmptyGroupsError
	return errors.As(err, &e)
}

func IsInsufficientFiles(err error) bool {
	var e *InsufficientFilesError
	return errors.As(err, &e)
}

// Plan 基于分组生成确定性的重命名计划（不做任何写入/移动）。
//
// - 计划顺序：分组顺序；分组内按编号分配顺序（见 planStandard/planMagazine）
// - 没有连番文件的分组跳过（单独的标题文件永远不改名）
// - 目标路径：<root>/<title>/<title>_<NNN><原扩展名>
func Plan(root string, groups []domain.TitleGroup, mode domain.Mode) ([]domain.RenameOperation, error) {
	if len(groups) == 0 {
		return nil, &EmptyGroupsError{}
	}

	plan := make([]domain.RenameOperation, 0, 64)
	for _, g := range groups {
		numbered := g.Numbered()
		if len(numbered) == 0 {
			continue
		}
		if len(numbered) < mode.MinNumbered() {
			return nil, &InsufficientFilesError{
				Title: g.Title(),
				Mode:  mode,
				Have:  len(numbered),
				Need:  mode.MinNumbered(),
			}
		}

		titleDir := filepath.Join(root, g.Title())
		add := func(f domain.ImageFile, n int) {
			plan = append(plan, domain.RenameOperation{
				Src:    f,
				DstAbs: filepath.Join(titleDir, domain.TargetName(g.Title(), n, f.Ext)),
				Title:  g.Title(),
				Number: n,
			})
		}

		titleOnly, hasTitle := g.TitleOnly()
		switch mode {
		case domain.ModeMagazine:
			planMagazine(titleOnly, hasTitle, numbered, add)
		default:
			planStandard(titleOnly, hasTitle, numbered, add)
		}
	}
	return plan, nil
}

// planMagazine：没有封面。标题文件（若有）为 001，连番文件依次递增，无空号。
func planMagazine(titleOnly domain.ImageFile, hasTitle bool, numbered []domain.ImageFile, add func(domain.ImageFile, int)) {
	n := 1
	if hasTitle {
		add(titleOnly, n)
		n++
	}
	for _, f := range numbered {
		add(f, n)
		n++
	}
}

// planStandard：倒数第二个连番文件是封面（001），标题文件是封面的下一页（002）。
//
// 其余连番文件从 start 开始编号（有标题文件为 3，否则为 2）：
// 封面之前的文件用 i+start；最后一个文件用“封面之前的文件数 + start”。
// 这里刻意按“计数”而不是“下标”计算最后一个文件的编号，以保持与既有整理结果一致。
func planStandard(titleOnly domain.ImageFile, hasTitle bool, numbered []domain.ImageFile, add func(domain.ImageFile, int)) {
	coverIdx := len(numbered) - 2
	add(numbered[coverIdx], 1)

	start := 2
	if hasTitle {
		add(titleOnly, 2)
		start = 3
	}

	for i, f := range numbered {
		if i == coverIdx {
			continue
		}
		if i < coverIdx {
			add(f, i+start)
			continue
		}
		beforeCover := len(numbered) - 2
		add(f, beforeCover+start)
	}
}

// Validate 校验计划的后置条件：同一标题内目标路径唯一，且编号从 001 起连续。
func Validate(plan []domain.RenameOperation) error {
	byTitle := map[string][]int{}
	dsts := map[string]string{}
	srcs := map[string]struct{}{}
	for _, op := range plan {
		if prev, ok := dsts[op.DstAbs]; ok {
			return fmt.Errorf("目标路径重复：%q（%s 与 %s）", op.DstAbs, prev, op.Src.Name)
		}
		dsts[op.DstAbs] = op.Src.Name
		if _, ok := srcs[op.Src.AbsPath]; ok {
			return fmt.Errorf("源文件重复出现在计划中：%q", op.Src.AbsPath)
		}
		srcs[op.Src.AbsPath] = struct{}{}
		byTitle[op.Title] = append(byTitle[op.Title], op.Number)
	}

	for title, nums := range byTitle {
		sort.Ints(nums)
		for i, n := range nums {
			if n != i+1 {
				return fmt.Errorf("标题 %q 的编号不连续：%v", title, nums)
			}
		}
	}
	return nil
}

// TitlePlan 是按标题聚合的计划视图（用于预览输出）。
type TitlePlan struct {
	Title string
	Dir   string
	Ops   []domain.RenameOperation
}

// Summarize 按计划中的出现顺序把操作聚合到各自的标题目录下。
func Summarize(plan []domain.RenameOperation) []TitlePlan {
	out := make([]TitlePlan, 0, 8)
	index := map[string]int{}
	for _, op := range plan {
		idx, ok := index[op.Title]
		if !ok {
			idx = len(out)
			index[op.Title] = idx
			out = append(out, TitlePlan{Title: op.Title, Dir: filepath.Dir(op.DstAbs)})
		}
		out[idx].Ops = append(out[idx].Ops, op)
	}
	return out
}

// TargetDirs 返回计划涉及的目标目录（去重 + 字典序）。
func TargetDirs(plan []domain.RenameOperation) []string {
	set := map[string]struct{}{}
	for _, op := range plan {
		set[filepath.Dir(op.DstAbs)] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
