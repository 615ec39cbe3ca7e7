package repos

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type ConceptRepo interface {
	Create(dbc dbctx.Context, rows []*types.Concept) ([]*types.Concept, error)

	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Concept, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error)
	GetByOntology(dbc dbctx.Context, ontologyID uuid.UUID) ([]*types.Concept, error)
	CountByOntology(dbc dbctx.Context, ontologyID uuid.UUID) (int64, error)

	// GetByEmbedModelNot pages concepts whose stored embedding model differs
	// from model; cursor is the last seen id (uuid ordering).
	GetByEmbedModelNot(dbc dbctx.Context, model string, afterID uuid.UUID, limit int) ([]*types.Concept, error)
	UpdateEmbedding(dbc dbctx.Context, id uuid.UUID, embedding datatypes.JSON, model string, dims int) error
}

type conceptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConceptRepo(db *gorm.DB, baseLog *logger.Logger) ConceptRepo {
	return &conceptRepo{db: db, log: baseLog.With("repo", "ConceptRepo")}
}

func (r *conceptRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *conceptRepo) Create(dbc dbctx.Context, rows []*types.Concept) ([]*types.Concept, error) {
	if len(rows) == 0 {
		return []*types.Concept{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conceptRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Concept, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Concept
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *conceptRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Concept, error) {
	var out []*types.Concept
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) GetByOntology(dbc dbctx.Context, ontologyID uuid.UUID) ([]*types.Concept, error) {
	var out []*types.Concept
	if ontologyID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("ontology_id = ?", ontologyID).
		Order("created_at asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) CountByOntology(dbc dbctx.Context, ontologyID uuid.UUID) (int64, error) {
	var n int64
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Concept{}).
		Where("ontology_id = ?", ontologyID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *conceptRepo) GetByEmbedModelNot(dbc dbctx.Context, model string, afterID uuid.UUID, limit int) ([]*types.Concept, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.tx(dbc).WithContext(dbc.Ctx).
		Where("embed_model <> ?", model).
		Order("id asc").
		Limit(limit)
	if afterID != uuid.Nil {
		q = q.Where("id > ?", afterID)
	}
	var out []*types.Concept
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conceptRepo) UpdateEmbedding(dbc dbctx.Context, id uuid.UUID, embedding datatypes.JSON, model string, dims int) error {
	if id == uuid.Nil {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.Concept{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":   embedding,
			"embed_model": model,
			"embed_dims":  dims,
			"updated_at":  time.Now().UTC(),
		}).Error
}
