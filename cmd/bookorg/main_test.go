package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/bookorg/internal/app/planner"
	"github.com/John-Robertt/bookorg/internal/app/run"
	"github.com/John-Robertt/bookorg/internal/archive"
	"github.com/John-Robertt/bookorg/internal/config"
	"github.com/John-Robertt/bookorg/internal/domain"
	"github.com/John-Robertt/bookorg/internal/infra/fsx"
	"github.com/John-Robertt/bookorg/internal/scan"
)

func TestParseArgs(t *testing.T) {
	var out, errOut bytes.Buffer

	a, err := parseArgs(nil, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, ".", a.Directory)

	a, err = parseArgs([]string{"books", "--dry-run", "--auto", "--cbz", "--magazine", "-v", "--no-color"}, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, "books", a.Directory)
	assert.True(t, a.DryRun && a.Auto && a.CBZ && a.Magazine && a.Verbose && a.NoColor)

	cli := a.cliArgs()
	assert.Equal(t, "books", cli.Path)
	assert.True(t, cli.ModeSet)
	assert.Equal(t, "magazine", cli.Mode)
	assert.True(t, cli.Archive)

	a, err = parseArgs([]string{"--to-cbz", "vol1"}, &out, &errOut)
	require.NoError(t, err)
	assert.Equal(t, "vol1", a.cliArgs().Path)
}

func TestParseArgs_ExitCodes(t *testing.T) {
	var out, errOut bytes.Buffer

	_, err := parseArgs([]string{"--version"}, &out, &errOut)
	var ex errExit
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 0, ex.code)
	assert.Equal(t, "bookorg 0.1.0\n", out.String())

	out.Reset()
	_, err = parseArgs([]string{"--help"}, &out, &errOut)
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 0, ex.code)
	assert.Contains(t, out.String(), "--to-cbz")

	_, err = parseArgs([]string{"--nope"}, &out, &errOut)
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, 2, ex.code)
	assert.Contains(t, errOut.String(), "参数错误")
}

func TestIsYes(t *testing.T) {
	for _, s := range []string{"y", "Y\n", " yes ", "YES\r\n"} {
		assert.True(t, isYes(s), "%q", s)
	}
	for _, s := range []string{"", "\n", "n", "no", "yep", "ja"} {
		assert.False(t, isYes(s), "%q", s)
	}
}

func TestRealMain_DryRunEmitsJSON(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "manga.jpg", "manga_001.jpg", "manga_002.jpg")

	var stdout, stderr bytes.Buffer
	code := realMain(context.Background(), []string{dir, "--dry-run", "--no-color"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rr))
	assert.Equal(t, domain.StatusPlanned, rr.Status)
	assert.True(t, rr.DryRun)
	assert.Len(t, rr.Items, 3)
	assert.Empty(t, rr.ErrorCode)

	assert.Contains(t, stderr.String(), "标题：manga（3 个文件）")
	assert.Contains(t, stderr.String(), "manga_001.jpg → manga/manga_001.jpg")
	assert.Contains(t, stderr.String(), "manga.jpg → manga/manga_002.jpg")
	assert.FileExists(t, filepath.Join(dir, "manga.jpg"))
	assert.NoDirExists(t, filepath.Join(dir, "manga"))
}

func TestRealMain_Confirmation(t *testing.T) {
	t.Run("拒绝", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "a_1.jpg", "a_2.jpg")

		var stdout, stderr bytes.Buffer
		code := realMain(context.Background(), []string{dir}, strings.NewReader("n\n"), &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "[y/N]")
		assert.Contains(t, stderr.String(), "已取消处理")
		assert.FileExists(t, filepath.Join(dir, "a_1.jpg"))
	})

	t.Run("EOF 视为拒绝", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "a_1.jpg", "a_2.jpg")

		var stdout, stderr bytes.Buffer
		code := realMain(context.Background(), []string{dir}, strings.NewReader(""), &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.NoDirExists(t, filepath.Join(dir, "a"))
	})

	t.Run("确认", func(t *testing.T) {
		dir := t.TempDir()
		writeImages(t, dir, "a_1.jpg", "a_2.jpg")

		var stdout, stderr bytes.Buffer
		code := realMain(context.Background(), []string{dir, "--cbz"}, strings.NewReader("Yes\n"), &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())
		assert.FileExists(t, filepath.Join(dir, "a", "a_001.jpg"))
		assert.FileExists(t, filepath.Join(dir, "a", "a_002.jpg"))
		assert.FileExists(t, filepath.Join(dir, "a.cbz"))
		assert.Contains(t, stderr.String(), "创建归档：a.cbz（2 页）")
	})
}

func TestRealMain_PlanningErrorExitsOne(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "lonely_001.jpg")

	var stdout, stderr bytes.Buffer
	code := realMain(context.Background(), []string{dir, "--auto"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "lonely")

	assert.Contains(t, stderr.String(), "--magazine")

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rr))
	assert.Equal(t, domain.StatusFailed, rr.Status)
	assert.Equal(t, codeInsufficient, rr.ErrorCode)

	// --magazine 下单个连番文件合法。
	stdout.Reset()
	code = realMain(context.Background(), []string{dir, "--auto", "--magazine"}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.FileExists(t, filepath.Join(dir, "lonely", "lonely_001.jpg"))
}

func TestRealMain_ToCBZ(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "vol")
	require.NoError(t, os.Mkdir(dir, 0o755))
	writeImages(t, dir, "p10.png", "p2.png", "p1.png")

	var stdout, stderr bytes.Buffer
	code := realMain(context.Background(), []string{"--to-cbz", dir, "--dry-run"}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stderr.String(), "    - p1.png\n    - p2.png\n    - p10.png\n")
	assert.NoFileExists(t, filepath.Join(root, "vol.cbz"))

	stdout.Reset()
	code = realMain(context.Background(), []string{"--to-cbz", dir}, strings.NewReader(""), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.FileExists(t, filepath.Join(root, "vol.cbz"))

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rr))
	require.Len(t, rr.Archives, 1)
	assert.Equal(t, 3, rr.Archives[0].Pages)
	assert.Equal(t, 1, rr.Summary.Archives)
}

func TestRealMain_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "a_1.jpg", "a_2.jpg")

	var stdout, stderr bytes.Buffer
	code := realMain(context.Background(), []string{dir, "--config", filepath.Join(dir, "nope.yaml")}, strings.NewReader(""), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), config.ErrCodeNotFound)

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rr))
	assert.Equal(t, domain.StatusFailed, rr.Status)
	assert.Equal(t, config.ErrCodeNotFound, rr.ErrorCode)
	assert.Equal(t, dir, rr.Path)
	assert.FileExists(t, filepath.Join(dir, "a_1.jpg"))
}

func TestRealMain_TitleOnlyFilesExitOne(t *testing.T) {
	dir := t.TempDir()
	writeImages(t, dir, "manga.jpg", "cover.png")

	var stdout, stderr bytes.Buffer
	code := realMain(context.Background(), []string{dir}, strings.NewReader("y\n"), &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.NotContains(t, stderr.String(), "[y/N]")
	assert.Contains(t, stderr.String(), "没有找到有效的文件分组")
	assert.Contains(t, stderr.String(), "_<数字>")

	var rr domain.RunReport
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rr))
	assert.Equal(t, domain.StatusFailed, rr.Status)
	assert.Equal(t, codeEmptyGroups, rr.ErrorCode)
	assert.FileExists(t, filepath.Join(dir, "manga.jpg"))
	assert.FileExists(t, filepath.Join(dir, "cover.png"))
	assert.NoDirExists(t, filepath.Join(dir, "manga"))
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"config", &config.Error{Code: config.ErrCodeInvalid, Path: "x.yaml"}, config.ErrCodeInvalid},
		{"cancelled", run.ErrCancelled, codeCancelled},
		{"exdev", &run.FilesystemError{Op: "rename", Path: "/b", Err: &fsx.CrossDeviceError{Src: "/a", Dst: "/b"}}, codeCrossDevice},
		{"fs", &run.FilesystemError{Op: "mkdir", Path: "/b", Err: errors.New("busy")}, codeFilesystem},
		{"archive", &archive.Error{Dir: "/d", Err: errors.New("no space")}, codeArchiveFailed},
		{"not found", &scan.NotFoundError{Dir: "/d"}, codeDirNotFound},
		{"no images", &scan.NoImagesError{Dir: "/d"}, codeNoImages},
		{"empty groups", &planner.EmptyGroupsError{}, codeEmptyGroups},
		{"insufficient", &planner.InsufficientFilesError{Title: "t", Mode: domain.ModeStandard, Have: 1, Need: 2}, codeInsufficient},
		{"other", errors.New("boom"), codeInternal},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, errorCode(c.err), c.name)
	}
}

func TestHint(t *testing.T) {
	h := hint(&planner.InsufficientFilesError{Title: "t", Mode: domain.ModeStandard, Have: 1, Need: 2})
	assert.Contains(t, h, "--magazine")
	assert.Empty(t, hint(&planner.InsufficientFilesError{Title: "t", Mode: domain.ModeMagazine, Have: 0, Need: 1}))
	assert.NotEmpty(t, hint(&planner.EmptyGroupsError{}))
	assert.Empty(t, hint(errors.New("boom")))
}

func TestConsole_CleanupWarning(t *testing.T) {
	var buf bytes.Buffer
	c := newConsole(&buf, strings.NewReader(""), config.ColorNever, false)
	c.Report(run.Event{Kind: run.EventCleanupWarning, Dir: "/books/manga", Err: errors.New("busy")})

	out := buf.String()
	assert.Contains(t, out, "无法删除空目录：/books/manga")
	assert.Contains(t, out, "原因：busy")
	assert.Contains(t, out, "rm -rf '/books/manga'")
	assert.Contains(t, out, "rmdir /s '/books/manga'")
	assert.Contains(t, out, "不会影响下次运行")
	assert.NotContains(t, out, "\x1b[")
}

func writeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte(n), 0o644); err != nil {
			t.Fatalf("写入文件失败：%v", err)
		}
	}
}
