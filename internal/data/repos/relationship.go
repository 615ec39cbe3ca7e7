package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type RelationshipRepo interface {
	Create(dbc dbctx.Context, rows []*types.Relationship) ([]*types.Relationship, error)

	// GetTouching returns every edge where the concept appears on either end.
	GetTouching(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Relationship, error)
	GetTouchingAny(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.Relationship, error)
	GetByOntology(dbc dbctx.Context, ontologyID uuid.UUID) ([]*types.Relationship, error)
}

type relationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return &relationshipRepo{db: db, log: baseLog.With("repo", "RelationshipRepo")}
}

func (r *relationshipRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *relationshipRepo) Create(dbc dbctx.Context, rows []*types.Relationship) ([]*types.Relationship, error) {
	if len(rows) == 0 {
		return []*types.Relationship{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *relationshipRepo) GetTouching(dbc dbctx.Context, conceptID uuid.UUID) ([]*types.Relationship, error) {
	var out []*types.Relationship
	if conceptID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("from_concept_id = ? OR to_concept_id = ?", conceptID, conceptID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *relationshipRepo) GetTouchingAny(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.Relationship, error) {
	var out []*types.Relationship
	if len(conceptIDs) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("from_concept_id IN ? OR to_concept_id IN ?", conceptIDs, conceptIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *relationshipRepo) GetByOntology(dbc dbctx.Context, ontologyID uuid.UUID) ([]*types.Relationship, error) {
	var out []*types.Relationship
	if ontologyID == uuid.Nil {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("ontology_id = ?", ontologyID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
