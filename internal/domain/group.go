package domain

// TitleGroup 是按标题聚合后的只读视图。
//
// 分组阶段先在可变结构里累积，再通过 NewTitleGroup 冻结；
// 之后规划阶段拿到的切片都是副本，避免两阶段之间互相篡改。
type TitleGroup struct {
	title     string
	titleOnly *ImageFile
	numbered  []ImageFile
}

// NewTitleGroup 冻结一个分组。numbered 必须已经按自然顺序排好。
func NewTitleGroup(title string, titleOnly *ImageFile, numbered []ImageFile) TitleGroup {
	g := TitleGroup{
		title:    title,
		numbered: append([]ImageFile(nil), numbered...),
	}
	if titleOnly != nil {
		f := *titleOnly
		g.titleOnly = &f
	}
	return g
}

func (g TitleGroup) Title() string { return g.title }

// TitleOnly 返回“只有标题、没有连番后缀”的文件（例如 manga.jpg）。
func (g TitleGroup) TitleOnly() (ImageFile, bool) {
	if g.titleOnly == nil {
		return ImageFile{}, false
	}
	return *g.titleOnly, true
}

// Numbered 返回连番文件（自然顺序）的副本。
func (g TitleGroup) Numbered() []ImageFile {
	return append([]ImageFile(nil), g.numbered...)
}

// NumberedCount 返回连番文件数量。
func (g TitleGroup) NumberedCount() int { return len(g.numbered) }

// Empty 报告分组是否既没有标题文件也没有连番文件。
func (g TitleGroup) Empty() bool { return g.titleOnly == nil && len(g.numbered) == 0 }

// Files 返回分组内全部文件：标题文件（若有）在前，随后是连番文件。
func (g TitleGroup) Files() []ImageFile {
	out := make([]ImageFile, 0, len(g.numbered)+1)
	if g.titleOnly != nil {
		out = append(out, *g.titleOnly)
	}
	return append(out, g.numbered...)
}
