package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// DocumentStatus tracks a document through the ingestion pipeline.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

type LegalDocument struct {
	ID                 string         `gorm:"type:char(36);primaryKey" json:"id"`
	Title              string         `gorm:"size:512;not null" json:"title"`
	Content            string         `gorm:"type:longtext" json:"content,omitempty"`
	DocumentType       string         `gorm:"size:32;not null;index" json:"document_type"`
	Status             DocumentStatus `gorm:"size:16;not null;index" json:"status"`
	Metadata           datatypes.JSON `json:"metadata"`
	VectorID           string         `gorm:"size:128" json:"vector_id,omitempty"`
	ObjectKey          string         `gorm:"size:512" json:"object_key,omitempty"`
	FileName           string         `gorm:"size:256" json:"file_name,omitempty"`
	MIMEType           string         `gorm:"size:128" json:"mime_type,omitempty"`
	Language           string         `gorm:"size:16" json:"language,omitempty"`
	LanguageConfidence float64        `json:"language_confidence"`
	IsAbolished        bool           `gorm:"not null;default:false;index" json:"is_abolished"`
	IsUpdated          bool           `gorm:"not null;default:false" json:"is_updated"`
	HasAnnexes         bool           `gorm:"not null;default:false" json:"has_annexes"`
	ParentDocumentID   *string        `gorm:"type:char(36);index" json:"parent_document_id,omitempty"`
	Version            int            `gorm:"not null;default:1" json:"version"`
	ErrorMessage       string         `gorm:"type:text" json:"error_message,omitempty"`
	OwnerID            string         `gorm:"size:64;index" json:"owner_id"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// MetadataMap returns the parsed metadata; empty on parse error.
func (d *LegalDocument) MetadataMap() map[string]any {
	out := map[string]any{}
	if len(d.Metadata) == 0 {
		return out
	}
	_ = json.Unmarshal(d.Metadata, &out)
	return out
}

// SetMetadata stores meta as JSON.
func (d *LegalDocument) SetMetadata(meta map[string]any) error {
	if meta == nil {
		meta = map[string]any{}
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	d.Metadata = datatypes.JSON(b)
	return nil
}
