package repository

import (
	"context"

	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Date   string `form:"date"`   // YYYY-MM-DD; empty = today
	Status string `form:"status"` // COMPLETED | CANCELLED | REFUNDED | all
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=50"`
}

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	// FindCreditNoteFor returns the credit note already linked to a sale,
	// or gorm.ErrRecordNotFound.
	FindCreditNoteFor(ctx context.Context, originalID uuid.UUID) (*model.Sale, error)
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, reason *string) error
	// NextTicketNumberTx reserves the next per-branch ticket number inside
	// tx. The counter row is upserted atomically so two concurrent sales on
	// the same branch can never draw the same number.
	NextTicketNumberTx(tx *gorm.DB, branchID uuid.UUID) (int64, error)
	List(ctx context.Context, branchID uuid.UUID, filter SaleFilter) ([]model.Sale, int64, error)
	DB() *gorm.DB
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	return tx.Create(s).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments.Method").
		First(&s, id).Error
	return &s, err
}

func (r *saleRepo) FindCreditNoteFor(ctx context.Context, originalID uuid.UUID) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Where("original_sale_id = ? AND is_credit_note = true", originalID).
		First(&s).Error
	return &s, err
}

func (r *saleRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string, reason *string) error {
	updates := map[string]interface{}{"status": status}
	if reason != nil {
		updates["reversal_reason"] = *reason
	}
	return tx.Model(&model.Sale{}).Where("id = ?", id).Updates(updates).Error
}

func (r *saleRepo) NextTicketNumberTx(tx *gorm.DB, branchID uuid.UUID) (int64, error) {
	var num int64
	res := tx.Raw(
		`INSERT INTO branch_sequences (branch_id, last_number) VALUES (?, 1)
		 ON CONFLICT (branch_id) DO UPDATE SET last_number = branch_sequences.last_number + 1
		 RETURNING last_number`,
		branchID,
	).Scan(&num)
	if res.Error != nil {
		return 0, res.Error
	}
	return num, nil
}

func (r *saleRepo) List(ctx context.Context, branchID uuid.UUID, filter SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := (page - 1) * limit

	q := r.db.WithContext(ctx).Model(&model.Sale{}).Where("branch_id = ?", branchID)

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	} else {
		// Default: today
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Items").Preload("Payments.Method").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&sales).Error

	return sales, total, err
}
