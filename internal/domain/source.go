package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Source is a document or paragraph reference owned by the ingestion
// pipeline; instances point at it for provenance.
type Source struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	OntologyID uuid.UUID `gorm:"type:uuid;column:ontology_id;not null;index" json:"ontology_id"`

	DocumentRef  string         `gorm:"column:document_ref;not null;index" json:"document_ref"`
	ParagraphRef string         `gorm:"column:paragraph_ref" json:"paragraph_ref,omitempty"`
	Metadata     datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Source) TableName() string { return "source" }
