package domain

// ImageFile 描述一次扫描得到的图片文件（只做 stat，不读内容）。
//
// 不变量：
// - AbsPath 必须是 clean + absolute
// - Ext 保留原始大小写，且属于允许列表（.jpg/.jpeg/.png）
// - 扫描后不可变（按值传递）
type ImageFile struct {
	AbsPath string
	Dir     string // 父目录（absolute）
	Name    string // 含扩展名的文件名
	Stem    string // 不含扩展名
	Ext     string // ".jpg"
}

// SupportedExts 是可处理的图片扩展名（大小写敏感）。
var SupportedExts = []string{".jpg", ".jpeg", ".png"}

// IsSupportedExt 判断 ext 是否在允许列表内（大小写敏感：".JPG" 不算）。
func IsSupportedExt(ext string) bool {
	for _, e := range SupportedExts {
		if e == ext {
			return true
		}
	}
	return false
}
