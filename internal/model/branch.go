package model

import (
	"time"

	"github.com/google/uuid"
)

// Branch is one physical store. Ticket numbers are scoped per branch.
type Branch struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `gorm:"type:varchar(10);uniqueIndex;not null"`
	Name      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Branch) TableName() string { return "branches" }

// BranchSequence is the reserved monotonic ticket counter for one branch.
// It is incremented with a single UPDATE ... RETURNING inside the sale
// transaction, so two concurrent sales can never draw the same number.
type BranchSequence struct {
	BranchID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastNumber int64     `gorm:"not null;default:0"`
}

func (BranchSequence) TableName() string { return "branch_sequences" }
