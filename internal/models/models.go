package models

import (
	"time"
)

// Document represents one uploaded PDF and owns its chunks.
type Document struct {
	ID         int64     `db:"id" json:"id"`
	FileName   string    `db:"filename" json:"filename"`
	FilePath   string    `db:"file_path" json:"file_path"` // local path or S3 URL
	UploadDate time.Time `db:"upload_date" json:"upload_date"`
	Chunks     []Chunk   `db:"-" json:"chunks,omitempty"`
}

// BoundingBox is a page rectangle [x1, y1, x2, y2]. Nothing populates it yet.
type BoundingBox [4]float64

// Chunk represents one page-bounded slice of a document's text.
type Chunk struct {
	ID          int64        `db:"id" json:"id"`
	DocumentID  int64        `db:"document_id" json:"document_id"`
	Text        string       `db:"text" json:"text"`
	PageNumber  int          `db:"page_number" json:"page_number"`
	BoundingBox *BoundingBox `db:"bounding_box" json:"bounding_box"`
	Embedding   []float32    `db:"embedding" json:"embedding,omitempty"` // pgvector column
}
