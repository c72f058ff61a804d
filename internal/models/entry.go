package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentType string

const (
	PaymentIncoming PaymentType = "incoming"
	PaymentOutgoing PaymentType = "outgoing"
)

type PayStatus string

const (
	StatusPaid   PayStatus = "paid"
	StatusUnpaid PayStatus = "unpaid"
)

type ModeOfPay string

const (
	ModeCash            ModeOfPay = "cash"
	ModeUPI             ModeOfPay = "upi"
	ModeOthers          ModeOfPay = "others"
	ModeAccountTransfer ModeOfPay = "account_transfer"
)

// Entry represents one recorded financial movement owned by a tenant
type Entry struct {
	ID                 int64           `json:"id" db:"id"`
	Amount             decimal.Decimal `json:"amount" db:"amount"`
	PaymentType        PaymentType     `json:"payment_type" db:"payment_type"`
	PayStatus          *PayStatus      `json:"pay_status" db:"pay_status"` // NULL in legacy rows
	ModeOfPay          ModeOfPay       `json:"mode_of_pay" db:"mode_of_pay"`
	Tenant             string          `json:"tenant" db:"tenant"`
	BankAccountID      *int64          `json:"bank_account_id,omitempty" db:"bank_account_id"`
	AffectsBankBalance bool            `json:"affects_bank_balance" db:"affects_bank_balance"`
	NurseID            *int64          `json:"nurse_id,omitempty" db:"nurse_id"`
	ClientID           *int64          `json:"client_id,omitempty" db:"client_id"`
	Category           string          `json:"payment_type_specific,omitempty" db:"payment_type_specific"`
	Description        string          `json:"description" db:"description"`
	PaymentDescription string          `json:"payment_description,omitempty" db:"payment_description"`
	CreatedAt          time.Time       `json:"created_at" db:"created_at"`
	CustomPaidDate     *time.Time      `json:"custom_paid_date,omitempty" db:"custom_paid_date"`
}

// EffectivePayStatus maps legacy NULL statuses to paid
func (e *Entry) EffectivePayStatus() PayStatus {
	if e.PayStatus == nil {
		return StatusPaid
	}
	return *e.PayStatus
}

// LedgerBound reports whether the entry is tied to a bank account ledger
func (e *Entry) LedgerBound() bool {
	return e.BankAccountID != nil && e.AffectsBankBalance
}
