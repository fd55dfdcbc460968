package repository

import (
	"context"

	"adminisgo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CajaRepository is the Ledger Store: registros are only ever inserted.
type CajaRepository interface {
	CreateRegistro(ctx context.Context, tx *gorm.DB, r *model.RegistroCaja) error
	FindRegistroByID(ctx context.Context, id uuid.UUID) (*model.RegistroCaja, error)
	ListRegistros(ctx context.Context) ([]model.RegistroCaja, error)

	// Session-state row: insert fails with gorm.ErrDuplicatedKey when a
	// session is already open; delete reports whether this caller removed it.
	CreateEstado(ctx context.Context, tx *gorm.DB, e *model.CajaEstado) error
	DeleteEstado(ctx context.Context, tx *gorm.DB, aperturaID uuid.UUID) (bool, error)

	CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, aperturaID uuid.UUID) ([]model.MovimientoCaja, error)

	DB() *gorm.DB
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateRegistro(ctx context.Context, tx *gorm.DB, reg *model.RegistroCaja) error {
	return conn(ctx, r.db, tx).Create(reg).Error
}

func (r *cajaRepo) FindRegistroByID(ctx context.Context, id uuid.UUID) (*model.RegistroCaja, error) {
	var reg model.RegistroCaja
	err := r.db.WithContext(ctx).First(&reg, "id = ?", id).Error
	return &reg, err
}

func (r *cajaRepo) ListRegistros(ctx context.Context) ([]model.RegistroCaja, error) {
	var regs []model.RegistroCaja
	err := r.db.WithContext(ctx).Order("fecha ASC, secuencia ASC").Find(&regs).Error
	return regs, err
}

func (r *cajaRepo) CreateEstado(ctx context.Context, tx *gorm.DB, e *model.CajaEstado) error {
	return conn(ctx, r.db, tx).Create(e).Error
}

func (r *cajaRepo) DeleteEstado(ctx context.Context, tx *gorm.DB, aperturaID uuid.UUID) (bool, error) {
	res := conn(ctx, r.db, tx).
		Where("id = ? AND apertura_id = ?", model.CajaEstadoID, aperturaID).
		Delete(&model.CajaEstado{})
	return res.RowsAffected > 0, res.Error
}

func (r *cajaRepo) CreateMovimiento(ctx context.Context, m *model.MovimientoCaja) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, aperturaID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).Where("apertura_id = ?", aperturaID).Order("created_at ASC").Find(&movs).Error
	return movs, err
}
