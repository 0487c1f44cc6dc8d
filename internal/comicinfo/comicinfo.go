// Package comicinfo 生成 CBZ 内的 ComicInfo.xml（ComicRack 约定，Komga/Kavita 等阅读器可识别）。
package comicinfo

import (
	"encoding/xml"
	"strings"
)

// FileName 是归档内元数据条目的固定名称。
const FileName = "ComicInfo.xml"

// Meta 是生成 ComicInfo.xml 所需的最小信息。
type Meta struct {
	Title string
	// Pages 是归档内图片条目名，按阅读顺序。
	Pages []string
	// CoverFirst 为 true 时第一页标记为 FrontCover。
	CoverFirst bool
}

type comicInfo struct {
	XMLName xml.Name `xml:"ComicInfo"`

	Title     string `xml:"Title"`
	Series    string `xml:"Series"`
	PageCount int    `xml:"PageCount"`

	Pages *pages `xml:"Pages,omitempty"`
}

type pages struct {
	Page []page `xml:"Page"`
}

type page struct {
	Image int    `xml:"Image,attr"`
	Type  string `xml:"Type,attr,omitempty"`
	Key   string `xml:"Key,attr,omitempty"`
}

// Encode 把 Meta 转成 ComicInfo.xml。
//
// - Title/Series 去首尾空白；Series 与 Title 相同（一个目录即一卷）
// - Page.Image 从 0 开始，与条目顺序一致；Key 保存条目名
func Encode(meta Meta) ([]byte, error) {
	title := strings.TrimSpace(meta.Title)
	ci := comicInfo{
		Title:     title,
		Series:    title,
		PageCount: len(meta.Pages),
	}
	if len(meta.Pages) > 0 {
		ci.Pages = &pages{Page: make([]page, 0, len(meta.Pages))}
		for i, name := range meta.Pages {
			p := page{Image: i, Key: name}
			if i == 0 && meta.CoverFirst {
				p.Type = "FrontCover"
			}
			ci.Pages.Page = append(ci.Pages.Page, p)
		}
	}

	b, err := xml.MarshalIndent(ci, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
