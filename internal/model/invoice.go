package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice types sent to AFIP.
const (
	InvoiceTypeB          = "FACTURA_B"
	InvoiceTypeC          = "FACTURA_C"
	InvoiceTypeCreditNote = "NOTA_CREDITO"
)

// Invoice statuses.
const (
	InvoicePending  = "PENDING"
	InvoiceIssued   = "ISSUED"
	InvoiceRejected = "REJECTED"
	InvoiceError    = "ERROR" // max retries exhausted, parked on the dead-letter list
)

// Invoice is the fiscal record attached to a committed sale. Fiscalization
// runs outside the sale transaction: a failing AFIP call marks the invoice
// REJECTED or schedules a retry but never undoes the commercial sale.
type Invoice struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SaleID uuid.UUID `gorm:"type:uuid;index;not null"`
	Type   string    `gorm:"type:varchar(20);not null"`
	Number *int64
	// CAE is the authorization code returned by AFIP.
	CAE    *string    `gorm:"type:varchar(20);column:cae"`
	CAEDue *time.Time `gorm:"column:cae_due"`
	// AssociatedCAE links a fiscal credit note back to the CAE of the
	// original invoice (associated-voucher requirement).
	AssociatedCAE *string         `gorm:"type:varchar(20);column:associated_cae"`
	NetAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status        string          `gorm:"type:varchar(20);not null;default:'PENDING'"`
	// Retry bookkeeping used by the retry cron.
	RetryCount  int `gorm:"not null;default:0"`
	NextRetryAt *time.Time
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
