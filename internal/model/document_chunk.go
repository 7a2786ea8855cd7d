package model

import "time"

// DocumentChunk records where a chunk came from and which vector holds it.
type DocumentChunk struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	DocumentID  string    `gorm:"type:char(36);not null;index" json:"document_id"`
	Ordinal     int       `gorm:"not null" json:"ordinal"`
	Content     string    `gorm:"type:text;not null" json:"content"`
	StartOffset int       `json:"start_offset"`
	EndOffset   int       `json:"end_offset"`
	VectorID    string    `gorm:"size:128;index" json:"vector_id"`
	CreatedAt   time.Time `json:"created_at"`
}
