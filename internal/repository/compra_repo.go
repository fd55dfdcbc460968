package repository

import (
	"context"
	"time"

	"adminisgo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CompraRepository interface {
	Create(ctx context.Context, tx *gorm.DB, c *model.Compra) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []model.CompraItem) error
	CreatePagos(ctx context.Context, tx *gorm.DB, pagos []model.CompraPago) error
	DeleteItems(ctx context.Context, tx *gorm.DB, compraID uuid.UUID) error
	DeletePagos(ctx context.Context, tx *gorm.DB, compraID uuid.UUID) error
	DeletePago(ctx context.Context, compraID, pagoID uuid.UUID) (bool, error)
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// UpdateCabecera rewrites the editable header fields: numero, proveedor, fecha and total.
	UpdateCabecera(ctx context.Context, tx *gorm.DB, c *model.Compra) error
	// MarcarEliminada soft-deletes a live compra. false means it was already
	// deleted and nothing changed.
	MarcarEliminada(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error)

	// Receiving
	CreateRecepcion(ctx context.Context, tx *gorm.DB, r *model.RecepcionItem) error
	UpdateCantidadRecibida(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, cantidad int) error
	// AvanzarRecepcion moves the order from the state it had when read to
	// estado. false means another receipt or a delete changed it first.
	AvanzarRecepcion(ctx context.Context, tx *gorm.DB, leida *model.Compra, estado string, fecha time.Time) (bool, error)
	ListRecepciones(ctx context.Context, compraID uuid.UUID) ([]model.RecepcionItem, error)

	FindByID(ctx context.Context, id uuid.UUID) (*model.Compra, error)
	// FindForUpdate locks the header row until tx ends and loads its items.
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Compra, error)
	ExistsNumero(ctx context.Context, numero string, excluir *uuid.UUID) (bool, error)

	DB() *gorm.DB
}

type compraRepo struct{ db *gorm.DB }

func NewCompraRepository(db *gorm.DB) CompraRepository { return &compraRepo{db: db} }

func (r *compraRepo) DB() *gorm.DB { return r.db }

func (r *compraRepo) Create(ctx context.Context, tx *gorm.DB, c *model.Compra) error {
	return conn(ctx, r.db, tx).Omit(clause.Associations).Create(c).Error
}

func (r *compraRepo) CreateItems(ctx context.Context, tx *gorm.DB, items []model.CompraItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Create(&items).Error
}

func (r *compraRepo) CreatePagos(ctx context.Context, tx *gorm.DB, pagos []model.CompraPago) error {
	if len(pagos) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Create(&pagos).Error
}

func (r *compraRepo) DeleteItems(ctx context.Context, tx *gorm.DB, compraID uuid.UUID) error {
	return conn(ctx, r.db, tx).Where("compra_id = ?", compraID).Delete(&model.CompraItem{}).Error
}

func (r *compraRepo) DeletePagos(ctx context.Context, tx *gorm.DB, compraID uuid.UUID) error {
	return conn(ctx, r.db, tx).Where("compra_id = ?", compraID).Delete(&model.CompraPago{}).Error
}

func (r *compraRepo) DeletePago(ctx context.Context, compraID, pagoID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND compra_id = ?", pagoID, compraID).Delete(&model.CompraPago{})
	return res.RowsAffected > 0, res.Error
}

func (r *compraRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return conn(ctx, r.db, tx).Delete(&model.Compra{}, "id = ?", id).Error
}

func (r *compraRepo) UpdateCabecera(ctx context.Context, tx *gorm.DB, c *model.Compra) error {
	return conn(ctx, r.db, tx).Model(&model.Compra{}).Where("id = ?", c.ID).
		Select("numero", "proveedor", "fecha", "total").
		Updates(c).Error
}

func (r *compraRepo) MarcarEliminada(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Compra{}).
		Where("id = ? AND eliminada = false", id).
		Updates(map[string]interface{}{
			"eliminada":    true,
			"eliminada_en": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *compraRepo) CreateRecepcion(ctx context.Context, tx *gorm.DB, rec *model.RecepcionItem) error {
	return conn(ctx, r.db, tx).Create(rec).Error
}

func (r *compraRepo) UpdateCantidadRecibida(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, cantidad int) error {
	return conn(ctx, r.db, tx).Model(&model.CompraItem{}).Where("id = ?", itemID).
		Update("cantidad_recibida", cantidad).Error
}

func (r *compraRepo) AvanzarRecepcion(ctx context.Context, tx *gorm.DB, leida *model.Compra, estado string, fecha time.Time) (bool, error) {
	q := conn(ctx, r.db, tx).Model(&model.Compra{}).
		Where("id = ? AND eliminada = false AND estado = ? AND estado <> ?", leida.ID, leida.Estado, model.CompraRecibida)
	if leida.FechaRecepcion == nil {
		q = q.Where("fecha_recepcion IS NULL")
	} else {
		q = q.Where("fecha_recepcion = ?", *leida.FechaRecepcion)
	}
	res := q.Updates(map[string]interface{}{
		"estado":          estado,
		"fecha_recepcion": fecha,
	})
	return res.RowsAffected > 0, res.Error
}

func (r *compraRepo) ListRecepciones(ctx context.Context, compraID uuid.UUID) ([]model.RecepcionItem, error) {
	var recs []model.RecepcionItem
	err := r.db.WithContext(ctx).Where("compra_id = ?", compraID).Order("fecha ASC").Find(&recs).Error
	return recs, err
}

func (r *compraRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Compra, error) {
	var c model.Compra
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Pagos", func(db *gorm.DB) *gorm.DB { return db.Order("pagado_en ASC") }).
		First(&c, "id = ?", id).Error
	return &c, err
}

func (r *compraRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Compra, error) {
	db := conn(ctx, r.db, tx)
	var c model.Compra
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Where("compra_id = ?", id).Find(&c.Items).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *compraRepo) ExistsNumero(ctx context.Context, numero string, excluir *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Compra{}).Where("numero = ? AND eliminada = false", numero)
	if excluir != nil {
		q = q.Where("id <> ?", *excluir)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}
