package app

import (
	"regexp"
	"sort"

	"github.com/John-Robertt/bookorg/internal/domain"
	"github.com/John-Robertt/bookorg/internal/natsort"
	"github.com/John-Robertt/bookorg/internal/scan"
)

// 连番后缀：stem 以 _<数字> 或 _<数字>_<数字> 结尾。
var numberedSuffixRE = regexp.MustCompile(`_\p{Nd}+(?:_\p{Nd}+)?$`)

// SplitTitle 从 stem 中拆出标题。
// numbered=true 表示 stem 带连番后缀（标题为去掉后缀的部分），否则整个 stem 就是标题。
func SplitTitle(stem string) (title string, numbered bool) {
	loc := numberedSuffixRE.FindStringIndex(stem)
	if loc == nil {
		return stem, false
	}
	return stem[:loc[0]], true
}

// Groups 是分类结果：按标题字典序排列的只读分组。
type Groups []domain.TitleGroup

// Classify 扫描 dir 并按标题分组。
// 目录不存在返回 *scan.NotFoundError；没有图片返回 *scan.NoImagesError。
func Classify(dir string) (Groups, error) {
	files, err := scan.ScanImages(dir)
	if err != nil {
		return nil, err
	}
	return GroupByTitle(files), nil
}

// GroupByTitle 把图片文件按标题分组。
//
// - 每个文件恰好落入一个分组，且只落入 title_only 或 numbered 之一
// - 同一标题出现多个 title_only 时，以扫描顺序中最后一个为准；被覆盖的文件不参与规划，原地保留
// - numbered 按文件名（含扩展名）的自然顺序排序
// - 分组按标题字典序输出
func GroupByTitle(files []domain.ImageFile) Groups {
	type acc struct {
		titleOnly *domain.ImageFile
		numbered  []domain.ImageFile
	}

	// 先在可变结构中累积，最后统一冻结为 TitleGroup。
	byTitle := make(map[string]*acc, 16)
	for i := range files {
		f := files[i]
		title, numbered := SplitTitle(f.Stem)

		a, ok := byTitle[title]
		if !ok {
			a = &acc{}
			byTitle[title] = a
		}
		if numbered {
			a.numbered = append(a.numbered, f)
		} else {
			a.titleOnly = &f
		}
	}

	titles := make([]string, 0, len(byTitle))
	for t := range byTitle {
		titles = append(titles, t)
	}
	sort.Strings(titles)

	out := make(Groups, 0, len(titles))
	for _, t := range titles {
		a := byTitle[t]
		natsort.SortFunc(a.numbered, func(f domain.ImageFile) string { return f.Name })

		g := domain.NewTitleGroup(t, a.titleOnly, a.numbered)
		// 不变量：空分组不保留（按上面的构建方式不会出现，但仍显式检查）。
		if g.Empty() {
			continue
		}
		out = append(out, g)
	}
	return out
}
