package model

import "time"

// DocumentVersion is an immutable snapshot taken before a document's content changes.
type DocumentVersion struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	DocumentID    string    `gorm:"type:char(36);not null;uniqueIndex:idx_document_version" json:"document_id"`
	Version       int       `gorm:"not null;uniqueIndex:idx_document_version" json:"version"`
	Title         string    `gorm:"size:512" json:"title"`
	Content       string    `gorm:"type:longtext" json:"content,omitempty"`
	ChangeSummary string    `gorm:"size:512" json:"change_summary"`
	CreatedBy     string    `gorm:"size:64" json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}
