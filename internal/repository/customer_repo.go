package repository

import (
	"context"

	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	// ApplyBalanceTx applies a signed delta to current_balance atomically
	// and returns the post-update balance for the movement row.
	ApplyBalanceTx(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
	CreateMovementTx(tx *gorm.DB, m *model.CustomerAccountMovement) error
	ListMovements(ctx context.Context, customerID uuid.UUID) ([]model.CustomerAccountMovement, error)
	DB() *gorm.DB
}

type customerRepo struct{ db *gorm.DB }

func NewCustomerRepository(db *gorm.DB) CustomerRepository { return &customerRepo{db: db} }

func (r *customerRepo) Create(ctx context.Context, c *model.Customer) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *customerRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).First(&c, id).Error
	return &c, err
}

func (r *customerRepo) ApplyBalanceTx(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	res := tx.Raw(
		`UPDATE customers SET current_balance = current_balance + ?, updated_at = now()
		 WHERE id = ? RETURNING current_balance`,
		delta, id,
	).Scan(&balance)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (r *customerRepo) CreateMovementTx(tx *gorm.DB, m *model.CustomerAccountMovement) error {
	return tx.Create(m).Error
}

func (r *customerRepo) ListMovements(ctx context.Context, customerID uuid.UUID) ([]model.CustomerAccountMovement, error) {
	var movs []model.CustomerAccountMovement
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *customerRepo) DB() *gorm.DB { return r.db }
