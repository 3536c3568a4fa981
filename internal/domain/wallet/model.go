package wallet

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

// Wallet holds a user's stored balance in minor currency units. Version is
// bumped on every balance write and used as the compare-and-swap guard.
type Wallet struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    int64     `json:"user_id" gorm:"not null;uniqueIndex"`
	Balance   int64     `json:"balance" gorm:"not null;default:0"`
	Version   int64     `json:"version" gorm:"not null;default:1"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(_ *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	return nil
}

// Transaction is an append-only ledger row. RefID points at the appointment
// a debit paid for, when there is one.
type Transaction struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	WalletID    uuid.UUID `json:"wallet_id" gorm:"type:uuid;not null;index"`
	Type        string    `json:"type" gorm:"type:varchar(16);not null;index;check:type IN ('credit','debit')"`
	Amount      int64     `json:"amount" gorm:"not null"`
	RefID       *int64    `json:"ref_id,omitempty" gorm:"index"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`

	Wallet *Wallet `json:"-" gorm:"foreignKey:WalletID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

func (Transaction) TableName() string {
	return "wallet_transactions"
}

func (t *Transaction) BeforeCreate(_ *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
