package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Relationship is a typed edge between two concepts. TypeName always
// references a VocabularyType row; RawType preserves the freely-worded label
// the extractor emitted so grounding can be recomputed or audited later.
type Relationship struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	OntologyID uuid.UUID `gorm:"type:uuid;column:ontology_id;not null;index" json:"ontology_id"`

	FromConceptID uuid.UUID `gorm:"type:uuid;column:from_concept_id;not null;index:idx_rel_from" json:"from_concept_id"`
	ToConceptID   uuid.UUID `gorm:"type:uuid;column:to_concept_id;not null;index:idx_rel_to" json:"to_concept_id"`

	TypeName   string         `gorm:"column:type_name;not null;index" json:"type_name"`
	RawType    string         `gorm:"column:raw_type" json:"raw_type,omitempty"`
	Confidence float64        `gorm:"column:confidence;not null;default:0" json:"confidence"`
	SourceID   *uuid.UUID     `gorm:"type:uuid;column:source_id" json:"source_id,omitempty"`
	Metadata   datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Relationship) TableName() string { return "relationship" }
