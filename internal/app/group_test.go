package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/bookorg/internal/domain"
	"github.com/John-Robertt/bookorg/internal/scan"
)

func TestSplitTitle(t *testing.T) {
	cases := []struct {
		stem     string
		title    string
		numbered bool
	}{
		{"manga", "manga", false},
		{"manga_001", "manga", true},
		{"manga_000_2", "manga", true},
		{"vol_1_2_3", "vol_1", true},
		{"manga_v2", "manga_v2", false},
		{"manga_", "manga_", false},
		{"manga-001", "manga-001", false},
		{"漫画_００１", "漫画", true},
		{"漫画_١_٢", "漫画", true},
	}
	for _, c := range cases {
		title, numbered := SplitTitle(c.stem)
		assert.Equal(t, c.title, title, c.stem)
		assert.Equal(t, c.numbered, numbered, c.stem)
	}
}

func TestClassify_BasicCase(t *testing.T) {
	root := t.TempDir()
	create(t, root, "manga.jpg", "manga_001.jpg", "manga_002.jpg", "manga_003.jpg")

	groups, err := Classify(root)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g, ok := lookup(groups, "manga")
	require.True(t, ok)

	to, ok := g.TitleOnly()
	require.True(t, ok)
	assert.Equal(t, "manga.jpg", to.Name)
	assert.Equal(t, []string{"manga_001.jpg", "manga_002.jpg", "manga_003.jpg"}, names(g.Numbered()))
}

func TestClassify_MultipleTitles(t *testing.T) {
	root := t.TempDir()
	create(t, root,
		"manga1.jpg", "manga1_001.jpg", "manga1_002.jpg",
		"manga2.png", "manga2_001.png", "manga2_002.png",
	)

	groups, err := Classify(root)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "manga1", groups[0].Title())
	assert.Equal(t, "manga2", groups[1].Title())
}

func TestClassify_NumberedOnly(t *testing.T) {
	root := t.TempDir()
	create(t, root, "manga_001.jpg", "manga_002.jpg", "manga_003.jpg")

	groups, err := Classify(root)
	require.NoError(t, err)
	g, ok := lookup(groups, "manga")
	require.True(t, ok)

	_, has := g.TitleOnly()
	assert.False(t, has)
	assert.Equal(t, 3, g.NumberedCount())
}

func TestClassify_NumberedVariantsNaturalOrder(t *testing.T) {
	root := t.TempDir()
	create(t, root, "manga_002.jpg", "manga_000_2.jpg", "manga_001.jpg", "manga_000.jpg", "manga_000_1.jpg")

	groups, err := Classify(root)
	require.NoError(t, err)
	g, ok := lookup(groups, "manga")
	require.True(t, ok)

	assert.Equal(t, []string{
		"manga_000.jpg", "manga_000_1.jpg", "manga_000_2.jpg", "manga_001.jpg", "manga_002.jpg",
	}, names(g.Numbered()))
}

func TestClassify_NaturalOrderBeyondPadding(t *testing.T) {
	root := t.TempDir()
	create(t, root, "p_10.jpg", "p_2.jpg", "p_1.jpg")

	groups, err := Classify(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"p_1.jpg", "p_2.jpg", "p_10.jpg"}, names(groups[0].Numbered()))
}

func TestClassify_Errors(t *testing.T) {
	_, err := Classify(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, scan.IsNotFound(err))

	root := t.TempDir()
	create(t, root, "test.txt")
	_, err = Classify(root)
	assert.True(t, scan.IsNoImages(err))
}

func TestGroupByTitle_Total(t *testing.T) {
	files := []domain.ImageFile{
		{Name: "a.jpg", Stem: "a", Ext: ".jpg"},
		{Name: "a_1.jpg", Stem: "a_1", Ext: ".jpg"},
		{Name: "b_2_1.png", Stem: "b_2_1", Ext: ".png"},
		{Name: "c.png", Stem: "c", Ext: ".png"},
		{Name: "b_1.png", Stem: "b_1", Ext: ".png"},
	}

	groups := GroupByTitle(files)

	// 每个文件恰好出现一次。
	seen := map[string]int{}
	for _, g := range groups {
		assert.False(t, g.Empty())
		for _, f := range g.Files() {
			seen[f.Name]++
		}
	}
	require.Len(t, seen, len(files))
	for n, c := range seen {
		assert.Equal(t, 1, c, n)
	}

	b, ok := lookup(groups, "b")
	require.True(t, ok)
	assert.Equal(t, []string{"b_1.png", "b_2_1.png"}, names(b.Numbered()))

	c, ok := lookup(groups, "c")
	require.True(t, ok)
	assert.Equal(t, 0, c.NumberedCount())
}

func TestGroupByTitle_DuplicateTitleOnlyLastWins(t *testing.T) {
	files := []domain.ImageFile{
		{Name: "a.jpg", Stem: "a", Ext: ".jpg"},
		{Name: "a.png", Stem: "a", Ext: ".png"},
	}
	groups := GroupByTitle(files)
	require.Len(t, groups, 1)
	to, ok := groups[0].TitleOnly()
	require.True(t, ok)
	assert.Equal(t, "a.png", to.Name)
}

func TestClassify_FullWidthDigits(t *testing.T) {
	root := t.TempDir()
	create(t, root, "漫画.jpg", "漫画_００２.jpg", "漫画_１０.jpg", "漫画_００１.jpg")

	groups, err := Classify(root)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	g, ok := lookup(groups, "漫画")
	require.True(t, ok)
	_, ok = g.TitleOnly()
	assert.True(t, ok)
	assert.Equal(t, []string{"漫画_００１.jpg", "漫画_００２.jpg", "漫画_１０.jpg"}, names(g.Numbered()))
}

func create(t *testing.T, dir string, files ...string) {
	t.Helper()
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}
}

func names(files []domain.ImageFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Name)
	}
	return out
}

func lookup(groups Groups, title string) (domain.TitleGroup, bool) {
	for _, g := range groups {
		if g.Title() == title {
			return g, true
		}
	}
	return domain.TitleGroup{}, false
}
