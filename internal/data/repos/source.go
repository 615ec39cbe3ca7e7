package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type SourceRepo interface {
	Create(dbc dbctx.Context, row *types.Source) (*types.Source, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Source, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Source, error)
}

type sourceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceRepo(db *gorm.DB, baseLog *logger.Logger) SourceRepo {
	return &sourceRepo{db: db, log: baseLog.With("repo", "SourceRepo")}
}

func (r *sourceRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *sourceRepo) Create(dbc dbctx.Context, row *types.Source) (*types.Source, error) {
	if row == nil {
		return nil, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *sourceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Source, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Source
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sourceRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Source, error) {
	var out []*types.Source
	if len(ids) == 0 {
		return out, nil
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
