package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/daybookapp/backend/internal/models"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) Deposit(ctx context.Context, req models.LedgerRequest) (*models.BankTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BankTransaction), args.Error(1)
}

func (m *MockLedger) Withdraw(ctx context.Context, req models.LedgerRequest) (*models.BankTransaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BankTransaction), args.Error(1)
}

// testEntry builds a minimal entry; tests override fields as needed.
func testEntry(id int64, amount int64, paymentType models.PaymentType, description string, createdAt time.Time) models.Entry {
	return models.Entry{
		ID:          id,
		Amount:      decimal.NewFromInt(amount),
		PaymentType: paymentType,
		ModeOfPay:   models.ModeCash,
		Tenant:      "sunrise-care",
		Description: description,
		CreatedAt:   createdAt,
	}
}

func statusPtr(s models.PayStatus) *models.PayStatus {
	return &s
}

func int64Ptr(v int64) *int64 {
	return &v
}
