package repository

import (
	"context"

	"github.com/zerofarias/varo-pos-sub000/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ShiftDeltas are the signed increments one business event applies to a
// shift's accumulators. Zero fields are skipped, everything else lands in a
// single UPDATE so concurrent events on the same shift cannot lose updates.
type ShiftDeltas struct {
	ExpectedCash     decimal.Decimal
	TotalSales       decimal.Decimal
	TotalCreditNotes decimal.Decimal
	TotalCashIn      decimal.Decimal
	TotalCashOut     decimal.Decimal
	TotalByCard      decimal.Decimal
	TotalByQR        decimal.Decimal
	TotalByAccount   decimal.Decimal
}

type ShiftRepository interface {
	CreateShiftTx(tx *gorm.DB, s *model.CashShift) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CashShift, error)
	// FindOpenByUser returns the operator's OPEN shift, or
	// gorm.ErrRecordNotFound. At most one can exist.
	FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.CashShift, error)
	FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashShift, error)
	FindRegister(ctx context.Context, id uuid.UUID) (*model.CashRegister, error)
	// CloseShiftTx flips an OPEN shift to CLOSED in a single guarded
	// statement, computing the blind-count difference against the current
	// expected_cash so a sale that commits between the caller's read and
	// the close still lands in the recorded difference. Returns
	// gorm.ErrRecordNotFound when the shift is not open.
	CloseShiftTx(tx *gorm.DB, id uuid.UUID, countedCash decimal.Decimal, notes *string) (*model.CashShift, error)
	// ApplyDeltasTx applies the increments atomically and returns the
	// post-update ExpectedCash for the movement's balance snapshot.
	ApplyDeltasTx(tx *gorm.DB, shiftID uuid.UUID, d ShiftDeltas) (decimal.Decimal, error)
	CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error
	ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error)
	DB() *gorm.DB
}

type shiftRepo struct{ db *gorm.DB }

func NewShiftRepository(db *gorm.DB) ShiftRepository { return &shiftRepo{db: db} }

func (r *shiftRepo) CreateShiftTx(tx *gorm.DB, s *model.CashShift) error {
	return tx.Create(s).Error
}

func (r *shiftRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CashShift, error) {
	var s model.CashShift
	err := r.db.WithContext(ctx).First(&s, id).Error
	return &s, err
}

func (r *shiftRepo) FindOpenByUser(ctx context.Context, userID uuid.UUID) (*model.CashShift, error) {
	var s model.CashShift
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.ShiftOpen).
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) FindOpenByRegister(ctx context.Context, registerID uuid.UUID) (*model.CashShift, error) {
	var s model.CashShift
	err := r.db.WithContext(ctx).
		Where("register_id = ? AND status = ?", registerID, model.ShiftOpen).
		First(&s).Error
	return &s, err
}

func (r *shiftRepo) FindRegister(ctx context.Context, id uuid.UUID) (*model.CashRegister, error) {
	var reg model.CashRegister
	err := r.db.WithContext(ctx).Where("active = true").First(&reg, id).Error
	return &reg, err
}

func (r *shiftRepo) CloseShiftTx(tx *gorm.DB, id uuid.UUID, countedCash decimal.Decimal, notes *string) (*model.CashShift, error) {
	var s model.CashShift
	res := tx.Raw(
		`UPDATE cash_shifts SET
		   status          = ?,
		   counted_cash    = ?,
		   cash_difference = ? - expected_cash,
		   notes           = COALESCE(?, notes),
		   closed_at       = now()
		 WHERE id = ? AND status = ?
		 RETURNING *`,
		model.ShiftClosed, countedCash, countedCash, notes,
		id, model.ShiftOpen,
	).Scan(&s)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &s, nil
}

func (r *shiftRepo) ApplyDeltasTx(tx *gorm.DB, shiftID uuid.UUID, d ShiftDeltas) (decimal.Decimal, error) {
	var balance decimal.Decimal
	res := tx.Raw(
		`UPDATE cash_shifts SET
		   expected_cash      = expected_cash + ?,
		   total_sales        = total_sales + ?,
		   total_credit_notes = total_credit_notes + ?,
		   total_cash_in      = total_cash_in + ?,
		   total_cash_out     = total_cash_out + ?,
		   total_by_card      = total_by_card + ?,
		   total_by_qr        = total_by_qr + ?,
		   total_by_account   = total_by_account + ?
		 WHERE id = ? AND status = ?
		 RETURNING expected_cash`,
		d.ExpectedCash, d.TotalSales, d.TotalCreditNotes,
		d.TotalCashIn, d.TotalCashOut,
		d.TotalByCard, d.TotalByQR, d.TotalByAccount,
		shiftID, model.ShiftOpen,
	).Scan(&balance)
	if res.Error != nil {
		return decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, gorm.ErrRecordNotFound
	}
	return balance, nil
}

func (r *shiftRepo) CreateMovementTx(tx *gorm.DB, m *model.CashMovement) error {
	return tx.Create(m).Error
}

func (r *shiftRepo) ListMovements(ctx context.Context, shiftID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("shift_id = ?", shiftID).
		Order("created_at ASC").
		Find(&movs).Error
	return movs, err
}

func (r *shiftRepo) DB() *gorm.DB { return r.db }
