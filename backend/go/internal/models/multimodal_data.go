package models

import (
	"encoding/json"
	"strings"
	"time"
)

// SpeakerRole 定义了消息发送者的角色。
type SpeakerRole string

const (
	SpeakerUser   SpeakerRole = "user"   // 用户角色。
	SpeakerSystem SpeakerRole = "system" // 系统提示。
	SpeakerModel  SpeakerRole = "model"  // 模型角色。
)

// Content 包含了构成单个消息的多个部分。
type Content struct {
	// 可选。构成单个消息的部分列表。每个部分可能具有不同的 IANA MIME 类型。
	Parts []*Part `json:"parts,omitempty"`
	// 可选。内容的生产者。
	Role SpeakerRole `json:"role,omitempty"`
}

// GenerateContentRequest 定义了生成内容的请求结构。
type GenerateContentRequest struct {
	Content []Content `json:"content,omitempty"` // 请求的内容列表。
}

// GenerateContentResponse 定义了生成内容的响应结构。
type GenerateContentResponse struct {
	Content      []Content `json:"content,omitempty"`      // 响应的内容列表。
	CreateTime   time.Time `json:"createTime,omitempty"`   // 响应创建时间。
	ResponseID   string    `json:"responseId,omitempty"`   // 响应ID。
	ModelVersion string    `json:"modelVersion,omitempty"` // 模型版本。
}

// Text 拼接响应中所有文本部分。
func (r *GenerateContentResponse) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, c := range r.Content {
		for _, p := range c.Parts {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Part 定义了消息的单个部分，可以包含文本或内联数据。
type Part struct {
	// 可选。内联字节数据。
	InlineData *Blob `json:"inlineData,omitempty"`
	// 可选。文本部分。
	Text string `json:"text,omitempty"`
}

// Blob 包含了内联的二进制数据。
type Blob struct {
	// 可选。Blob 的显示名称。
	DisplayName string `json:"displayName,omitempty"`
	// 必填。原始字节数据。
	Data []byte `json:"data,omitempty"`
	// 必填。源数据的 IANA 标准 MIME 类型。
	MIMEType string `json:"mimeType,omitempty"`
}

// MultimodalItem 是查询时随问题一起提交的多模态内容。
// Type 为 "image", "table", "equation" 或其他自定义类型，Raw 保留原始字段。
type MultimodalItem struct {
	Type      string                 `json:"type"`
	ImgPath   string                 `json:"img_path,omitempty"`
	TableData string                 `json:"table_data,omitempty"`
	Latex     string                 `json:"latex,omitempty"`
	Raw       map[string]interface{} `json:"-"`
}

// UnmarshalJSON 保留全部原始字段并宽松地读取已知字段，单个字段类型不符不会导致整个列表解析失败。
// 非字符串的 table_data / latex 以 JSON 文本保存；非对象的条目放在 Raw["content"] 中。
func (m *MultimodalItem) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	raw, ok := v.(map[string]interface{})
	if !ok {
		*m = MultimodalItem{Raw: map[string]interface{}{"content": v}}
		return nil
	}
	*m = MultimodalItem{
		Type:      stringField(raw["type"], false),
		ImgPath:   stringField(raw["img_path"], false),
		TableData: stringField(raw["table_data"], true),
		Latex:     stringField(raw["latex"], true),
		Raw:       raw,
	}
	return nil
}

// stringField 返回字符串值；asText 为真时其他非空值编码为 JSON 文本。
func stringField(v interface{}, asText bool) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		if !asText {
			return ""
		}
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// MarshalJSON 输出原始字段，没有原始字段时输出已知字段。
func (m MultimodalItem) MarshalJSON() ([]byte, error) {
	if m.Raw != nil {
		return json.Marshal(m.Raw)
	}
	type plain MultimodalItem
	return json.Marshal(plain(m))
}

// Caption 返回指定字段的说明文字，兼容字符串和字符串列表两种写法。
func (m MultimodalItem) Caption(key string) string {
	switch v := m.Raw[key].(type) {
	case string:
		return v
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
