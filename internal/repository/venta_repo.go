package repository

import (
	"context"
	"time"

	"adminisgo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type VentaRepository interface {
	// Create inserts the header only; items and pagos are separate steps.
	Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	CreateItems(ctx context.Context, tx *gorm.DB, items []model.VentaItem) error
	CreatePagos(ctx context.Context, tx *gorm.DB, pagos []model.VentaPago) error
	DeleteItems(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) error
	DeletePagos(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) error
	DeletePago(ctx context.Context, ventaID, pagoID uuid.UUID) (bool, error)
	// Delete removes the header; items and pagos cascade.
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	// UpdateCabecera rewrites the editable header fields: numero, cliente, fecha and total.
	UpdateCabecera(ctx context.Context, tx *gorm.DB, v *model.Venta) error
	// MarcarEliminada soft-deletes a live venta. false means it was already
	// deleted and nothing changed.
	MarcarEliminada(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error)

	FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error)
	// FindForUpdate locks the header row until tx ends and loads its items.
	FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error)
	ExistsNumero(ctx context.Context, numero string, excluir *uuid.UUID) (bool, error)
	CountDesde(ctx context.Context, desde time.Time) (int64, error)
	// ListPagos returns pagos of non-deleted ventas paid in [desde, hasta).
	// A nil hasta means open-ended.
	ListPagos(ctx context.Context, desde time.Time, hasta *time.Time) ([]model.VentaPago, error)

	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type ventaRepo struct{ db *gorm.DB }

func NewVentaRepository(db *gorm.DB) VentaRepository { return &ventaRepo{db: db} }

func (r *ventaRepo) DB() *gorm.DB { return r.db }

func (r *ventaRepo) Create(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(ctx, r.db, tx).Omit(clause.Associations).Create(v).Error
}

func (r *ventaRepo) CreateItems(ctx context.Context, tx *gorm.DB, items []model.VentaItem) error {
	if len(items) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Create(&items).Error
}

func (r *ventaRepo) CreatePagos(ctx context.Context, tx *gorm.DB, pagos []model.VentaPago) error {
	if len(pagos) == 0 {
		return nil
	}
	return conn(ctx, r.db, tx).Create(&pagos).Error
}

func (r *ventaRepo) DeleteItems(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) error {
	return conn(ctx, r.db, tx).Where("venta_id = ?", ventaID).Delete(&model.VentaItem{}).Error
}

func (r *ventaRepo) DeletePagos(ctx context.Context, tx *gorm.DB, ventaID uuid.UUID) error {
	return conn(ctx, r.db, tx).Where("venta_id = ?", ventaID).Delete(&model.VentaPago{}).Error
}

func (r *ventaRepo) DeletePago(ctx context.Context, ventaID, pagoID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Where("id = ? AND venta_id = ?", pagoID, ventaID).Delete(&model.VentaPago{})
	return res.RowsAffected > 0, res.Error
}

func (r *ventaRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return conn(ctx, r.db, tx).Delete(&model.Venta{}, "id = ?", id).Error
}

func (r *ventaRepo) UpdateCabecera(ctx context.Context, tx *gorm.DB, v *model.Venta) error {
	return conn(ctx, r.db, tx).Model(&model.Venta{}).Where("id = ?", v.ID).
		Select("numero", "cliente", "fecha", "total").
		Updates(v).Error
}

func (r *ventaRepo) MarcarEliminada(ctx context.Context, tx *gorm.DB, id uuid.UUID, at time.Time) (bool, error) {
	res := conn(ctx, r.db, tx).Model(&model.Venta{}).
		Where("id = ? AND eliminada = false", id).
		Updates(map[string]interface{}{
			"eliminada":    true,
			"eliminada_en": at,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *ventaRepo) FindForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.Venta, error) {
	db := conn(ctx, r.db, tx)
	var v model.Venta
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&v, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Where("venta_id = ?", id).Find(&v.Items).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *ventaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Venta, error) {
	var v model.Venta
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Pagos", func(db *gorm.DB) *gorm.DB { return db.Order("pagado_en ASC") }).
		First(&v, "id = ?", id).Error
	return &v, err
}

func (r *ventaRepo) ExistsNumero(ctx context.Context, numero string, excluir *uuid.UUID) (bool, error) {
	q := r.db.WithContext(ctx).Model(&model.Venta{}).Where("numero = ? AND eliminada = false", numero)
	if excluir != nil {
		q = q.Where("id <> ?", *excluir)
	}
	var n int64
	err := q.Count(&n).Error
	return n > 0, err
}

func (r *ventaRepo) CountDesde(ctx context.Context, desde time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Venta{}).
		Where("fecha >= ? AND eliminada = false", desde).
		Count(&n).Error
	return n, err
}

func (r *ventaRepo) ListPagos(ctx context.Context, desde time.Time, hasta *time.Time) ([]model.VentaPago, error) {
	q := r.db.WithContext(ctx).Model(&model.VentaPago{}).
		Joins("JOIN ventas ON ventas.id = venta_pagos.venta_id").
		Where("ventas.eliminada = false AND venta_pagos.pagado_en >= ?", desde)
	if hasta != nil {
		q = q.Where("venta_pagos.pagado_en < ?", *hasta)
	}
	var pagos []model.VentaPago
	err := q.Order("venta_pagos.pagado_en ASC").Find(&pagos).Error
	return pagos, err
}
