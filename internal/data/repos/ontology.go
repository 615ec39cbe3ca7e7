package repos

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/aletheia-labs/graphweave/internal/domain"
	"github.com/aletheia-labs/graphweave/internal/pkg/dbctx"
	pkgerrors "github.com/aletheia-labs/graphweave/internal/pkg/errors"
	"github.com/aletheia-labs/graphweave/internal/platform/logger"
)

type OntologyRepo interface {
	Create(dbc dbctx.Context, row *types.Ontology) (*types.Ontology, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Ontology, error)
	GetByName(dbc dbctx.Context, name string) (*types.Ontology, error)
	List(dbc dbctx.Context) ([]*types.Ontology, error)
}

type ontologyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOntologyRepo(db *gorm.DB, baseLog *logger.Logger) OntologyRepo {
	return &ontologyRepo{db: db, log: baseLog.With("repo", "OntologyRepo")}
}

func (r *ontologyRepo) tx(dbc dbctx.Context) *gorm.DB {
	if dbc.Tx != nil {
		return dbc.Tx
	}
	return r.db
}

func (r *ontologyRepo) Create(dbc dbctx.Context, row *types.Ontology) (*types.Ontology, error) {
	if row == nil {
		return nil, pkgerrors.ErrInvalidArgument
	}
	if err := r.tx(dbc).WithContext(dbc.Ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *ontologyRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Ontology, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out types.Ontology
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ontologyRepo) GetByName(dbc dbctx.Context, name string) (*types.Ontology, error) {
	if name == "" {
		return nil, nil
	}
	var out types.Ontology
	err := r.tx(dbc).WithContext(dbc.Ctx).Where("name = ?", name).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *ontologyRepo) List(dbc dbctx.Context) ([]*types.Ontology, error) {
	var out []*types.Ontology
	if err := r.tx(dbc).WithContext(dbc.Ctx).Order("name asc").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
