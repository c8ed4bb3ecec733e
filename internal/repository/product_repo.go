package repository

import (
	"context"

	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation,
// enabling clean unit testing via stubs.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindBySKU(ctx context.Context, sku string) (*model.Product, error)

	// AdjustStockTx applies a signed delta to stock_global as a single
	// atomic statement inside tx and returns the post-update quantity, so
	// callers can derive a consistent before/after snapshot for the
	// movement row even under concurrent writers.
	AdjustStockTx(tx *gorm.DB, id uuid.UUID, delta int) (newQty int, err error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productRepo) FindBySKU(ctx context.Context, sku string) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).Where("sku = ? AND active = true", sku).First(&p).Error
	return &p, err
}

func (r *productRepo) AdjustStockTx(tx *gorm.DB, id uuid.UUID, delta int) (int, error) {
	var newQty int
	res := tx.Raw(
		`UPDATE products SET stock_global = stock_global + ?, updated_at = now()
		 WHERE id = ? RETURNING stock_global`,
		delta, id,
	).Scan(&newQty)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return newQty, nil
}

func (r *productRepo) DB() *gorm.DB { return r.db }
