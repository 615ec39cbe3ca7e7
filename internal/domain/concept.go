package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Concept is a normalized unit of meaning backed by one embedding. Concepts
// are created once and then only extended: new instances append, usage grows,
// but the row is never destructively rewritten.
type Concept struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	OntologyID uuid.UUID `gorm:"type:uuid;column:ontology_id;not null;index:idx_concept_ontology" json:"ontology_id"`

	Label       string         `gorm:"column:label;not null" json:"label"`
	SearchTerms datatypes.JSON `gorm:"column:search_terms;type:jsonb" json:"search_terms,omitempty"`

	// Embedding is the concept vector as a JSON float array. EmbedModel and
	// EmbedDims make the vector's provenance explicit so cross-model
	// comparisons are detected instead of silently computed.
	Embedding  datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"embedding,omitempty"`
	EmbedModel string         `gorm:"column:embed_model;not null;index" json:"embed_model"`
	EmbedDims  int            `gorm:"column:embed_dims;not null" json:"embed_dims"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Concept) TableName() string { return "concept" }

// ConceptInstance is a quoted occurrence evidencing a Concept. Instances are
// append-only: merging a candidate into an existing concept adds a row here
// and never mutates prior rows.
type ConceptInstance struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	ConceptID uuid.UUID  `gorm:"type:uuid;column:concept_id;not null;index" json:"concept_id"`
	SourceID  *uuid.UUID `gorm:"type:uuid;column:source_id;index" json:"source_id,omitempty"`

	Quote      string   `gorm:"column:quote;type:text;not null" json:"quote"`
	Confidence *float64 `gorm:"column:confidence" json:"confidence,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ConceptInstance) TableName() string { return "concept_instance" }
