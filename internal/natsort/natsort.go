// Package natsort 提供文件名的自然顺序比较（"file_2" 排在 "file_10" 之前）。
package natsort

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Token 是排序键中的一段：要么是数字段，要么是文本段。
//
// 数字段只保存去掉前导零后的数字串，用“先比长度再比字典序”实现任意精度的整数比较，
// 不会因为超长数字而溢出。
type Token struct {
	Numeric bool
	Text    string // 文本段：小写；数字段：去掉前导零（"0" 保留为 "0"）
}

// Key 是文件名的排序键。
//
// 不变量：偶数位是文本段，奇数位是数字段（首字符是数字时，第 0 位是空文本段）。
// 因此同一位置上的两个 token 一定是同一类型。
type Key []Token

// KeyOf 把 name 按最长数字串切分为排序键。
// 数字指任意 Unicode 十进制数字（例如全角 "０１"），数字段统一折算为 ASCII。
func KeyOf(name string) Key {
	k := make(Key, 0, 8)
	var text, num strings.Builder
	inNum := false
	flush := func() {
		if inNum {
			k = append(k, Token{Numeric: true, Text: trimZeros(num.String())})
			num.Reset()
			return
		}
		k = append(k, Token{Text: strings.ToLower(text.String())})
		text.Reset()
	}
	for _, r := range name {
		d, isNum := digitValue(r)
		if isNum != inNum {
			flush()
			inNum = isNum
		}
		if isNum {
			num.WriteByte('0' + d)
		} else {
			text.WriteRune(r)
		}
	}
	flush()
	if inNum {
		k = append(k, Token{})
	}
	return k
}

// Compare 比较两个排序键：逐位比较，前缀较短者在前。返回 -1 / 0 / 1。
func (k Key) Compare(o Key) int {
	n := len(k)
	if len(o) < n {
		n = len(o)
	}
	for i := 0; i < n; i++ {
		if c := compareToken(k[i], o[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(k) < len(o):
		return -1
	case len(k) > len(o):
		return 1
	default:
		return 0
	}
}

// Compare 按自然顺序比较两个文件名。
func Compare(a, b string) int {
	return KeyOf(a).Compare(KeyOf(b))
}

// SortFunc 按 name(x) 的自然顺序原地排序任意切片元素。
// 排序键完全相同（例如 "a_01" 与 "a_1"）时按原始字符串兜底，保证输出稳定。
func SortFunc[T any](xs []T, name func(T) string) {
	keys := make(map[string]Key, len(xs))
	keyOf := func(s string) Key {
		if k, ok := keys[s]; ok {
			return k
		}
		k := KeyOf(s)
		keys[s] = k
		return k
	}
	sort.SliceStable(xs, func(i, j int) bool {
		a, b := name(xs[i]), name(xs[j])
		if c := keyOf(a).Compare(keyOf(b)); c != 0 {
			return c < 0
		}
		return a < b
	})
}

func compareToken(a, b Token) int {
	if a.Numeric && b.Numeric {
		if len(a.Text) != len(b.Text) {
			if len(a.Text) < len(b.Text) {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(a.Text, b.Text)
}

func trimZeros(s string) string {
	t := strings.TrimLeft(s, "0")
	if t == "" {
		return "0"
	}
	return t
}

// digitValue 返回 r 作为十进制数字的值。
// Unicode 的 Nd 类别由连续的 0-9 区段组成，所以值就是到区段起点的偏移模 10。
func digitValue(r rune) (byte, bool) {
	if r >= '0' && r <= '9' {
		return byte(r - '0'), true
	}
	if r < utf8.RuneSelf || !unicode.IsDigit(r) {
		return 0, false
	}
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return byte((r - lo) % 10), true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return byte((r - lo) % 10), true
		}
	}
	return 0, false
}
