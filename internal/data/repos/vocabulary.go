package repos

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type VocabularyRepo interface {
	// UpsertByName inserts the row unless a row with the same name already
	// exists. Returns the surviving row and whether this call created it:
	// the unique index on name is the single-writer guarantee, so a losing
	// concurrent registration gets created=false and the winner's row back.
	UpsertByName(dbc dbctx.Context, row *types.VocabularyType) (*types.VocabularyType, bool, error)

	GetByName(dbc dbctx.Context, name string) (*types.VocabularyType, error)
	ListActive(dbc dbctx.Context) ([]*types.VocabularyType, error)
	List(dbc dbctx.Context) ([]*types.VocabularyType, error)
	Count(dbc dbctx.Context) (int64, error)

	IncrementUsage(dbc dbctx.Context, name string) error
	SetActive(dbc dbctx.Context, name string, active bool) error
}

type vocabularyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVocabularyRepo(db *gorm.DB, baseLog *logger.Logger) VocabularyRepo {
	return &vocabularyRepo{db: db, log: baseLog.With("repo", "VocabularyRepo")}
}

func (r *vocabularyRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *vocabularyRepo) UpsertByName(dbc dbctx.Context, row *types.VocabularyType) (*types.VocabularyType, bool, error) {
	if row == nil || row.Name == "" {
		return nil, false, pkgerrors.ErrInvalidArgument
	}
	res := r.tx(dbc).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(row)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected > 0 {
		return row, true, nil
	}
	winner, err := r.GetByName(dbc, row.Name)
	if err != nil {
		return nil, false, err
	}
	if winner == nil {
		return nil, false, pkgerrors.ErrVocabularyConflict
	}
	return winner, false, nil
}

func (r *vocabularyRepo) GetByName(dbc dbctx.Context, name string) (*types.VocabularyType, error) {
	if name == "" {
		return nil, nil
	}
	var out types.VocabularyType
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("name = ?", name).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *vocabularyRepo) ListActive(dbc dbctx.Context) ([]*types.VocabularyType, error) {
	var out []*types.VocabularyType
	if err := r.tx(dbc).WithContext(dbc.Ctx).
		Where("is_active = ?", true).
		Order("name asc").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vocabularyRepo) List(dbc dbctx.Context) ([]*types.VocabularyType, error) {
	var out []*types.VocabularyType
	if err := r.tx(dbc).WithContext(dbc.Ctx).Order("name asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *vocabularyRepo) Count(dbc dbctx.Context) (int64, error) {
	var n int64
	if err := r.tx(dbc).WithContext(dbc.Ctx).Model(&types.VocabularyType{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *vocabularyRepo) IncrementUsage(dbc dbctx.Context, name string) error {
	if name == "" {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.VocabularyType{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"usage_count": gorm.Expr("usage_count + 1"),
			"updated_at":  time.Now().UTC(),
		}).Error
}

func (r *vocabularyRepo) SetActive(dbc dbctx.Context, name string, active bool) error {
	if name == "" {
		return nil
	}
	return r.tx(dbc).WithContext(dbc.Ctx).
		Model(&types.VocabularyType{}).
		Where("name = ?", name).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now().UTC(),
		}).Error
}
