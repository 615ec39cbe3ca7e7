package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

// InstanceRepo is append-only: evidence rows are never updated or deleted.
type InstanceRepo interface {
	Create(dbc dbctx.Context, rows []*types.ConceptInstance) ([]*types.ConceptInstance, error)
	GetByConceptIDs(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.ConceptInstance, error)
	CountByConceptID(dbc dbctx.Context, conceptID uuid.UUID) (int64, error)
}

type instanceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInstanceRepo(db *gorm.DB, baseLog *logger.Logger) InstanceRepo {
	return &instanceRepo{db: db, log: baseLog.With("repo", "InstanceRepo")}
}

func (r *instanceRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *instanceRepo) Create(dbc dbctx.Context, rows []*types.ConceptInstance) ([]*types.ConceptInstance, error) {
	if len(rows) == 0 {
		return []*types.ConceptInstance{}, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *instanceRepo) GetByConceptIDs(dbc dbctx.Context, conceptIDs []uuid.UUID) ([]*types.ConceptInstance, error) {
	var out []*types.ConceptInstance
	if len(conceptIDs) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("concept_id IN ?", conceptIDs).
		Order("created_at asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *instanceRepo) CountByConceptID(dbc dbctx.Context, conceptID uuid.UUID) (int64, error) {
	var n int64
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.ConceptInstance{}).
		Where("concept_id = ?", conceptID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
