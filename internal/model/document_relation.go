package model

import "time"

type RelationType string

const (
	RelationCites     RelationType = "cites"
	RelationAmends    RelationType = "amends"
	RelationAbolishes RelationType = "abolishes"
	RelationParentOf  RelationType = "parent_of"
)

func (t RelationType) Valid() bool {
	switch t {
	case RelationCites, RelationAmends, RelationAbolishes, RelationParentOf:
		return true
	}
	return false
}

// DocumentRelation is a directed edge between two legal documents. Rows are only ever inserted.
type DocumentRelation struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	SourceID     string       `gorm:"type:char(36);not null;index" json:"source_id"`
	TargetID     string       `gorm:"type:char(36);not null;index" json:"target_id"`
	RelationType RelationType `gorm:"size:16;not null" json:"relation_type"`
	CreatedBy    string       `gorm:"size:64" json:"created_by,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
}
