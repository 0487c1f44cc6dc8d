package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/John-Robertt/bookorg/internal/domain"
)

// NotFoundError 表示目标目录不存在（或不是目录）。
type NotFoundError struct {
	Dir string
	Err error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("目录不存在：%s", e.Dir)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// NoImagesError 表示目录内没有任何可处理的图片。
type NoImagesError struct {
	Dir string
}

func (e *NoImagesError) Error() string {
	return fmt.Sprintf("目录内没有图片文件：%s", e.Dir)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsNoImages(err error) bool {
	var e *NoImagesError
	return errors.As(err, &e)
}

// ScanImages 列出 dir 下（不递归）的图片文件。
//
// 规则（硬约束）：
// - 只看 dir 的直接子项，且只接受普通文件
// - 扩展名大小写敏感地匹配 .jpg/.jpeg/.png
// - '.' 开头的文件一律忽略（执行阶段的临时文件就是 '.' 开头）
//
// 注意：扫描阶段只做 stat（DirEntry.Info），不读文件内容。
func ScanImages(dir string) ([]domain.ImageFile, error) {
	files, err := ListImages(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &NoImagesError{Dir: absClean(dir)}
	}
	return files, nil
}

// ListImages 与 ScanImages 相同，但目录里没有图片时返回空切片而不是 NoImagesError。
func ListImages(dir string) ([]domain.ImageFile, error) {
	abs := absClean(dir)

	fi, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &NotFoundError{Dir: abs, Err: err}
		}
		return nil, err
	}
	if !fi.IsDir() {
		return nil, &NotFoundError{Dir: abs, Err: fmt.Errorf("%s 不是目录", abs)}
	}

	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	files := make([]domain.ImageFile, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		ext := filepath.Ext(name)
		if !domain.IsSupportedExt(ext) {
			continue
		}
		if !isRegular(abs, e) {
			continue
		}
		files = append(files, domain.ImageFile{
			AbsPath: filepath.Join(abs, name),
			Dir:     abs,
			Name:    name,
			Stem:    strings.TrimSuffix(name, ext),
			Ext:     ext,
		})
	}

	// 强制稳定输出，避免不同平台/文件系统的枚举顺序带来不确定性。
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func isRegular(dir string, e os.DirEntry) bool {
	if e.Type().IsRegular() {
		return true
	}
	if e.Type()&os.ModeSymlink == 0 {
		return false
	}
	// 符号链接：按目标判断（与 glob 的行为一致）。
	fi, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && fi.Mode().IsRegular()
}

// absClean 把 dir 变为 clean + absolute；Abs 失败（极少见）时退化为 Clean。
func absClean(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}
