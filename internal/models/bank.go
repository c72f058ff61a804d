package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TxDeposit  TransactionType = "deposit"
	TxWithdraw TransactionType = "withdraw"
	TxTransfer TransactionType = "transfer"
	TxCheque   TransactionType = "cheque"
)

type BankAccount struct {
	ID        int64           `json:"id" db:"id"`
	Name      string          `json:"name" db:"name"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	Version   int             `json:"version" db:"version"` // for optimistic locking
	Tenant    string          `json:"tenant" db:"tenant"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

type BankTransaction struct {
	ID              string          `json:"id" db:"id"`
	AccountID       int64           `json:"account_id" db:"account_id"`
	TransactionType TransactionType `json:"transaction_type" db:"transaction_type"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	Reference       string          `json:"reference" db:"reference"`
	Description     string          `json:"description" db:"description"`
	Tenant          string          `json:"tenant" db:"tenant"`
	Status          string          `json:"status" db:"status"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// LedgerRequest is the payload for a deposit or withdraw against a
// bank account ledger
type LedgerRequest struct {
	AccountID   int64           `json:"account_id" validate:"required,gt=0"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=200"`
	Reference   string          `json:"reference" validate:"required,max=64"`
	Tenant      string          `json:"tenant" validate:"required"`
}
