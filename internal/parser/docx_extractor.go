package parser

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// ExtractDocxText 读取 DOCX 正文, 每个段落一行
func ExtractDocxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer doc.Close()

	paragraphs, err := docxParagraphs(doc.Editable().GetContent())
	if err != nil {
		return "", err
	}
	return strings.Join(paragraphs, "\n"), nil
}

// docxParagraphs 按正文顶层 <w:p> 收集文本, <w:tab/> 与 <w:br/> 保留为空白符
//
// 表格单元格中的段落不计入; 文本框等嵌套段落不会打断外层段落, 其文本也不重复计入
func docxParagraphs(documentXML string) ([]string, error) {
	decoder := xml.NewDecoder(strings.NewReader(documentXML))
	var (
		paragraphs []string
		current    strings.Builder
		paraDepth  int
		tableDepth int
		inText     bool
	)
	// 只收集顶层段落自身的文本
	collecting := func() bool { return paraDepth == 1 && tableDepth == 0 }

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("解析 docx XML 失败: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "p":
				paraDepth++
				if collecting() {
					current.Reset()
				}
			case "t":
				inText = true
			case "tab":
				if collecting() {
					current.WriteString("\t")
				}
			case "br", "cr":
				if collecting() {
					current.WriteString("\n")
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tableDepth > 0 {
					tableDepth--
				}
			case "p":
				if collecting() {
					paragraphs = append(paragraphs, current.String())
				}
				if paraDepth > 0 {
					paraDepth--
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText && collecting() {
				current.Write(t)
			}
		}
	}
	return paragraphs, nil
}
