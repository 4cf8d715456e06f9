package schema

import "time"

const (
	// MetadataKeyImage is the key for image content.
	// The value is a slice of byte slices ([][]byte), one per image.
	MetadataKeyImage = "image"
	// MetadataKeyFileName is the key for the source file name.
	MetadataKeyFileName = "file_name"
	// MetadataKeyPageLabel is the key for the page number or label from the source document.
	MetadataKeyPageLabel = "page_label"
	// MetadataKeySheetName is the key for the spreadsheet tab a document came from.
	MetadataKeySheetName = "sheet_name"
	// MetadataKeyDocID is the key for the id of the source file a chunk belongs to.
	MetadataKeyDocID = "doc_id"
	// MetadataKeyChunkIndex is the key for the position of a chunk within its source file.
	MetadataKeyChunkIndex = "chunk_index"
	// MetadataKeyScore is the similarity score set by vector search.
	MetadataKeyScore = "score"
	// MetadataKeyType is the kind of content block ("text", "table", "image").
	MetadataKeyType = "type"
	// MetadataKeyImagePath is the on-disk path of an image content block.
	MetadataKeyImagePath = "img_path"
)

// Document is the central data structure representing a piece of text and its associated data.
// It is the primary data carrier throughout the RAG pipeline.
type Document struct {
	// ID is the unique identifier for this document chunk.
	ID string `json:"id"`

	// Text is the string content of the document chunk.
	Text string `json:"text"`

	// Embedding is the vector representation of the text.
	Embedding []float32 `json:"-"`

	// Metadata holds arbitrary data about the document.
	// It is used to store information like file_name, page_label, doc_id, chunk_index, etc.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DocID returns the source file id recorded in metadata.
func (d *Document) DocID() string {
	s, _ := d.Metadata[MetadataKeyDocID].(string)
	return s
}

// ChunkIndex returns the chunk position recorded in metadata, or -1.
func (d *Document) ChunkIndex() int {
	switch v := d.Metadata[MetadataKeyChunkIndex].(type) {
	case int:
		return v
	case float64: // decoded from JSON
		return int(v)
	default:
		return -1
	}
}

// DocStatus records that a source file went through indexing.
type DocStatus struct {
	DocID       string    `json:"doc_id"`
	FilePath    string    `json:"file_path"`
	FileName    string    `json:"file_name"`
	ChunkCount  int       `json:"chunk_count"`
	ChunkIDs    []string  `json:"chunk_ids"`
	OutputDir   string    `json:"output_dir"`
	ParseMethod string    `json:"parse_method"`
	ProcessedAt time.Time `json:"processed_at"`
}

// ContentBlock is one entry of the content_list.json written next to the parsed markdown.
type ContentBlock struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ImgPath   string `json:"img_path,omitempty"`
	PageIdx   int    `json:"page_idx"`
	SheetName string `json:"sheet_name,omitempty"`
}
