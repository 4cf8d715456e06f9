package loaders

import (
	"RagDesk/backend/go/internal/rag/interfaces"
	"RagDesk/backend/go/internal/rag/schema"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/unidoc/unioffice/v2/common/license"
	"github.com/unidoc/unioffice/v2/document"
)

// init 在设置了 UNIDOC_LICENSE_API_KEY 时注册 unioffice 的计量许可证。
func init() {
	if key := os.Getenv("UNIDOC_LICENSE_API_KEY"); key != "" {
		_ = license.SetMeteredKey(key)
	}
}

// DocxLoader 实现了用于读取 Word (.docx) 文件的 Loader 接口。
type DocxLoader struct{}

// NewDocxLoader 创建一个新的 DocxLoader。
func NewDocxLoader() *DocxLoader {
	return &DocxLoader{}
}

// Load 读取一个 .docx 文件，提取其段落、表格文本和图片，并返回一个包含所有内容的 Document。
func (l *DocxLoader) Load(ctx context.Context, path string) ([]*schema.Document, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	// 提取所有段落的文本内容
	var textBuilder strings.Builder
	for _, p := range doc.Paragraphs() {
		for _, r := range p.Runs() {
			textBuilder.WriteString(r.Text())
		}
		textBuilder.WriteString("\n")
	}

	// 表格按 Markdown 行输出
	for _, t := range doc.Tables() {
		for _, row := range t.Rows() {
			cells := make([]string, 0, len(row.Cells()))
			for _, c := range row.Cells() {
				var cb strings.Builder
				for _, p := range c.Paragraphs() {
					for _, r := range p.Runs() {
						cb.WriteString(r.Text())
					}
				}
				cells = append(cells, strings.TrimSpace(cb.String()))
			}
			textBuilder.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
		textBuilder.WriteString("\n")
	}

	// 提取所有图片数据，读取失败的图片直接跳过
	var imagesData [][]byte
	for _, imgRef := range doc.Images {
		tempImagePath := imgRef.Path()
		if tempImagePath == "" {
			continue
		}
		data, err := os.ReadFile(tempImagePath)
		if err != nil {
			continue
		}
		imagesData = append(imagesData, data)
	}

	docResult := &schema.Document{
		ID:   uuid.New().String(),
		Text: textBuilder.String(),
		Metadata: map[string]interface{}{
			schema.MetadataKeyFileName: filepath.Base(path),
			schema.MetadataKeyType:     "text",
		},
	}
	if len(imagesData) > 0 {
		docResult.Metadata[schema.MetadataKeyImage] = imagesData
	}

	return []*schema.Document{docResult}, nil
}

// 编译时检查，确保 DocxLoader 实现了 Loader 接口
var _ interfaces.Loader = (*DocxLoader)(nil)
