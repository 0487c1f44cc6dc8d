// Package archive 把一个目录内的图片按自然顺序打包为 zip 容器（.cbz）。
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/John-Robertt/bookorg/internal/comicinfo"
	"github.com/John-Robertt/bookorg/internal/domain"
	"github.com/John-Robertt/bookorg/internal/infra/fsx"
	"github.com/John-Robertt/bookorg/internal/natsort"
	"github.com/John-Robertt/bookorg/internal/scan"
)

// DefaultExt 是漫画归档的惯用扩展名。
const DefaultExt = ".cbz"

// Error 表示打包某个目录失败。上层按目录粒度处理：一个目录失败不影响其他目录。
type Error struct {
	Dir  string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("创建归档失败：%s：%v", filepath.Base(e.Dir), e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func IsArchiveError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

// Progress 在每写完一个条目后被调用（可为 nil）。
type Progress func(done, total int, name string)

// Result 描述一次打包（或 dry-run 下的打包计划）。
type Result struct {
	Dir   string
	Path  string
	Pages []string // 条目名，按写入顺序
}

// NormalizeExt 把 "cbz" / ".cbz" / "" 统一为带点的扩展名（空串为 DefaultExt）。
func NormalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return DefaultExt
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

// PathFor 返回 dir 对应的归档路径：<dir><ext>，与 dir 同级。
func PathFor(dir, ext string) string {
	return filepath.Clean(dir) + NormalizeExt(ext)
}

// Collect 列出 dir 下可打包的图片，并按文件名自然顺序排序。
// 目录不存在返回 *scan.NotFoundError；没有图片返回 *scan.NoImagesError。
func Collect(dir string) ([]domain.ImageFile, error) {
	files, err := scan.ScanImages(dir)
	if err != nil {
		return nil, err
	}
	natsort.SortFunc(files, func(f domain.ImageFile) string { return f.Name })
	return files, nil
}

// Entry 是附加在图片之后的非图片条目（例如 ComicInfo.xml）。
type Entry struct {
	Name string
	Data []byte
}

// Pack 把 files 按给定顺序写入 dst（zip + deflate，条目名只保留文件名），extras 追加在最后。
//
// 写入走“同目录临时文件 + rename”，失败时不会留下半个归档。
func Pack(dst string, files []domain.ImageFile, progress Progress, extras ...Entry) error {
	dst = filepath.Clean(dst)
	return fsx.WriteFileAtomicFrom(filepath.Dir(dst), filepath.Base(dst), func(w io.Writer) error {
		zw := zip.NewWriter(w)
		for i, f := range files {
			if err := addEntry(zw, f); err != nil {
				_ = zw.Close()
				return err
			}
			if progress != nil {
				progress(i+1, len(files), f.Name)
			}
		}
		for _, e := range extras {
			if err := addBytes(zw, e); err != nil {
				_ = zw.Close()
				return err
			}
		}
		return errors.Wrap(zw.Close(), "关闭 zip 失败")
	})
}

func addBytes(zw *zip.Writer, e Entry) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     e.Name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return errors.Wrapf(err, "创建条目 %s 失败", e.Name)
	}
	_, err = w.Write(e.Data)
	return errors.Wrapf(err, "写入条目 %s 失败", e.Name)
}

func addEntry(zw *zip.Writer, f domain.ImageFile) error {
	src, err := os.Open(f.AbsPath)
	if err != nil {
		return errors.Wrapf(err, "打开 %s 失败", f.Name)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return errors.Wrapf(err, "读取 %s 信息失败", f.Name)
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrapf(err, "生成 %s 的 zip header 失败", f.Name)
	}
	header.Name = f.Name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return errors.Wrapf(err, "创建条目 %s 失败", f.Name)
	}
	if _, err := io.Copy(w, src); err != nil {
		return errors.Wrapf(err, "写入条目 %s 失败", f.Name)
	}
	return nil
}

// Options 控制 ConvertDirectory 的行为。
type Options struct {
	Ext      string
	DryRun   bool
	Progress Progress

	// ComicInfo 为 true 时在归档末尾写入 ComicInfo.xml。
	ComicInfo bool
	// CoverFirst 标记第一页为封面（仅在 ComicInfo 为 true 时有意义）。
	CoverFirst bool
}

// ConvertDirectory 把任意已存在的目录（不要求由本工具生成）转换为归档。
// dry-run 只返回归档路径与条目顺序，不写任何文件。
func ConvertDirectory(dir string, opts Options) (Result, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = filepath.Clean(dir)
	}
	res := Result{Dir: abs, Path: PathFor(abs, opts.Ext)}

	files, err := Collect(abs)
	if err != nil {
		return res, &Error{Dir: abs, Path: res.Path, Err: err}
	}
	res.Pages = make([]string, 0, len(files))
	for _, f := range files {
		res.Pages = append(res.Pages, f.Name)
	}

	if opts.DryRun {
		return res, nil
	}

	var extras []Entry
	if opts.ComicInfo {
		b, err := comicinfo.Encode(comicinfo.Meta{
			Title:      filepath.Base(abs),
			Pages:      res.Pages,
			CoverFirst: opts.CoverFirst,
		})
		if err != nil {
			return res, &Error{Dir: abs, Path: res.Path, Err: err}
		}
		extras = append(extras, Entry{Name: comicinfo.FileName, Data: b})
	}
	if err := Pack(res.Path, files, opts.Progress, extras...); err != nil {
		return res, &Error{Dir: abs, Path: res.Path, Err: err}
	}
	return res, nil
}
