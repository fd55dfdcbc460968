package repository

import (
	"context"

	"adminisgo/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductoFilter narrows product listings.
type ProductoFilter struct {
	Barcode    string
	Nombre     string
	SoloActivo bool
	Page       int
	Limit      int
}

// ProductoRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductoRepository interface {
	Create(ctx context.Context, p *model.Producto) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Producto, error)
	List(ctx context.Context, filter ProductoFilter) ([]model.Producto, int64, error)
	// Update writes catalogue fields only; stock_actual is left alone.
	Update(ctx context.Context, p *model.Producto) error

	// AplicarDeltaStock adds delta to stock_actual and floors the result at
	// zero. The row is locked for the duration of the read-modify-write.
	AplicarDeltaStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) (anterior, nuevo int, err error)

	DB() *gorm.DB
}

type productoRepo struct{ db *gorm.DB }

func NewProductoRepository(db *gorm.DB) ProductoRepository { return &productoRepo{db: db} }

func (r *productoRepo) DB() *gorm.DB { return r.db }

func (r *productoRepo) Create(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *productoRepo) AplicarDeltaStock(ctx context.Context, tx *gorm.DB, id uuid.UUID, delta int) (int, int, error) {
	var anterior, nuevo int
	// Nested Transaction becomes a savepoint when tx is already a transaction.
	err := conn(ctx, r.db, tx).Transaction(func(t *gorm.DB) error {
		var p model.Producto
		if err := t.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "stock_actual").
			First(&p, "id = ?", id).Error; err != nil {
			return err
		}
		anterior = p.StockActual
		nuevo = anterior + delta
		if nuevo < 0 {
			nuevo = 0
		}
		return t.Model(&model.Producto{}).Where("id = ?", id).Update("stock_actual", nuevo).Error
	})
	return anterior, nuevo, err
}

func (r *productoRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Producto, error) {
	var p model.Producto
	err := r.db.WithContext(ctx).First(&p, "codigo_barras = ?", barcode).Error
	return &p, err
}

func (r *productoRepo) List(ctx context.Context, filter ProductoFilter) ([]model.Producto, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Producto{})
	if filter.Barcode != "" {
		q = q.Where("codigo_barras = ?", filter.Barcode)
	}
	if filter.Nombre != "" {
		q = q.Where("nombre ILIKE ?", "%"+filter.Nombre+"%")
	}
	if filter.SoloActivo {
		q = q.Where("activo = true")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var productos []model.Producto
	err := q.Order("nombre ASC").Offset((page - 1) * limit).Limit(limit).Find(&productos).Error
	return productos, total, err
}

func (r *productoRepo) Update(ctx context.Context, p *model.Producto) error {
	return r.db.WithContext(ctx).Model(&model.Producto{}).Where("id = ?", p.ID).
		Select("nombre", "precio_venta", "stock_minimo", "activo").
		Updates(p).Error
}
