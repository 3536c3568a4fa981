package wallet

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"salonbook/internal/domain"
	"salonbook/internal/pkg/dberr"
)

var (
	ErrInvalidAmount       = fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	ErrInsufficientBalance = domain.ErrInsufficientBalance
)

// maxWriteAttempts bounds retries when a concurrent writer bumps the wallet
// version between our read and our conditional update.
const maxWriteAttempts = 5

var errVersionMoved = errors.New("wallet version moved")

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// WithTx returns a service whose writes join tx.
func (s *Service) WithTx(tx *gorm.DB) *Service {
	return &Service{db: tx}
}

func (s *Service) GetOrCreateWallet(ctx context.Context, userID int64) (*Wallet, error) {
	var wallet Wallet
	if err := getOrCreateWallet(s.db.WithContext(ctx), userID, &wallet); err != nil {
		return nil, err
	}
	return &wallet, nil
}

func (s *Service) Balance(ctx context.Context, userID int64) (int64, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return wallet.Balance, nil
}

func (s *Service) Credit(ctx context.Context, userID, amount int64, refID *int64, description string) (*Wallet, *Transaction, error) {
	return s.apply(ctx, userID, amount, TransactionTypeCredit, refID, description)
}

// Debit fails with ErrInsufficientBalance, leaving the balance untouched,
// when the wallet holds less than amount.
func (s *Service) Debit(ctx context.Context, userID, amount int64, refID *int64, description string) (*Wallet, *Transaction, error) {
	return s.apply(ctx, userID, amount, TransactionTypeDebit, refID, description)
}

func (s *Service) ListTransactions(ctx context.Context, userID int64) ([]Transaction, error) {
	wallet, err := s.GetOrCreateWallet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var txns []Transaction
	if err := s.db.WithContext(ctx).Where("wallet_id = ?", wallet.ID).Order("created_at desc").Find(&txns).Error; err != nil {
		return nil, err
	}

	return txns, nil
}

func (s *Service) apply(ctx context.Context, userID, amount int64, typ string, refID *int64, description string) (*Wallet, *Transaction, error) {
	if amount <= 0 {
		return nil, nil, ErrInvalidAmount
	}

	var wallet Wallet
	var txn Transaction

	var err error
	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := getOrCreateWallet(tx, userID, &wallet); err != nil {
				return err
			}

			next := wallet.Balance + amount
			if typ == TransactionTypeDebit {
				if wallet.Balance < amount {
					return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientBalance, wallet.Balance, amount)
				}
				next = wallet.Balance - amount
			}

			res := tx.Model(&Wallet{}).
				Where("id = ? AND version = ?", wallet.ID, wallet.Version).
				Updates(map[string]interface{}{"balance": next, "version": wallet.Version + 1})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errVersionMoved
			}
			wallet.Balance = next
			wallet.Version++

			txn = Transaction{WalletID: wallet.ID, Type: typ, Amount: amount, RefID: refID, Description: description}
			return tx.Create(&txn).Error
		})
		if !errors.Is(err, errVersionMoved) {
			break
		}
	}
	if errors.Is(err, errVersionMoved) {
		return nil, nil, fmt.Errorf("wallet for user %d: too many concurrent writes", userID)
	}
	if err != nil {
		return nil, nil, err
	}

	return &wallet, &txn, nil
}

func getOrCreateWallet(tx *gorm.DB, userID int64, wallet *Wallet) error {
	err := tx.Where("user_id = ?", userID).First(wallet).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	*wallet = Wallet{UserID: userID, Balance: 0, Version: 1}
	if err := tx.Create(wallet).Error; err != nil {
		if dberr.IsUniqueViolation(err) {
			return tx.Where("user_id = ?", userID).First(wallet).Error
		}
		return err
	}
	return nil
}
