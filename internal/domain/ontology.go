package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ontology is a named, isolated partition of the graph. Concept resolution is
// always scoped to one ontology; ontologies are created explicitly, never as a
// side effect of resolution.
type Ontology struct {
	ID   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name string    `gorm:"column:name;not null;uniqueIndex" json:"name"`

	Description string `gorm:"column:description;type:text" json:"description,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Ontology) TableName() string { return "ontology" }
