package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// VocabularyType is one entry in the controlled relationship vocabulary.
// Names are unique and case-normalized (UPPER_SNAKE). Rows are append-mostly:
// deactivation flips IsActive, it never deletes.
type VocabularyType struct {
	ID uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`

	Name     string `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Category string `gorm:"column:category;not null;default:'general';index" json:"category"`

	Embedding  datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"embedding,omitempty"`
	EmbedModel string         `gorm:"column:embed_model" json:"embed_model,omitempty"`

	IsBuiltin bool `gorm:"column:is_builtin;not null;default:false" json:"is_builtin"`
	IsActive  bool `gorm:"column:is_active;not null;default:true" json:"is_active"`

	UsageCount int64 `gorm:"column:usage_count;not null;default:0" json:"usage_count"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (VocabularyType) TableName() string { return "vocabulary_type" }
