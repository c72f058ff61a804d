package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/backend/internal/models"
)

func boundEntry(id int64, amount int64, paymentType models.PaymentType, status models.PayStatus, accountID int64) models.Entry {
	e := testEntry(id, amount, paymentType, "Home visit", time.Now())
	e.PayStatus = statusPtr(status)
	e.BankAccountID = int64Ptr(accountID)
	e.AffectsBankBalance = true
	return e
}

func TestSynchronizeMarkPaidWithdrawsOnce(t *testing.T) {
	ledger := new(MockLedger)
	svc := NewEntrySyncService(ledger)

	previous := boundEntry(7, 1000, models.PaymentOutgoing, models.StatusUnpaid, 3)
	updated := boundEntry(7, 1000, models.PaymentOutgoing, models.StatusPaid, 3)

	ledger.On("Withdraw", mock.Anything, mock.MatchedBy(func(req models.LedgerRequest) bool {
		return req.AccountID == 3 &&
			req.Amount.Equal(decimal.NewFromInt(1000)) &&
			req.Reference == "DAYBOOK-7" &&
			req.Tenant == "sunrise-care"
	})).Return(&models.BankTransaction{ID: "tx-1", Reference: "DAYBOOK-7"}, nil).Once()

	result := svc.Synchronize(context.Background(), &previous, &updated)

	require.Equal(t, SyncApplied, result.Outcome)
	assert.Equal(t, "DAYBOOK-7", result.Reference)
	require.NotNil(t, result.Transaction)
	assert.NoError(t, result.Err)
	ledger.AssertExpectations(t)
	ledger.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything)
}

func TestSynchronizeIncomingDeposits(t *testing.T) {
	ledger := new(MockLedger)
	svc := NewEntrySyncService(ledger)

	previous := boundEntry(12, 750, models.PaymentIncoming, models.StatusUnpaid, 1)
	updated := boundEntry(12, 750, models.PaymentIncoming, models.StatusPaid, 1)

	ledger.On("Deposit", mock.Anything, mock.MatchedBy(func(req models.LedgerRequest) bool {
		return req.AccountID == 1 && req.Reference == "DAYBOOK-12"
	})).Return(&models.BankTransaction{ID: "tx-2"}, nil).Once()

	result := svc.Synchronize(context.Background(), &previous, &updated)

	assert.Equal(t, SyncApplied, result.Outcome)
	ledger.AssertExpectations(t)
	ledger.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything)
}

func TestSynchronizeSkips(t *testing.T) {
	cases := []struct {
		name     string
		previous func() models.Entry
		updated  func() models.Entry
	}{
		{
			name:     "description edit on paid entry",
			previous: func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2) },
			updated: func() models.Entry {
				e := boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2)
				e.Description = "Medicines restock"
				return e
			},
		},
		{
			name:     "amount edit while still unpaid",
			previous: func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusUnpaid, 2) },
			updated: func() models.Entry {
				e := boundEntry(5, 900, models.PaymentIncoming, models.StatusUnpaid, 2)
				return e
			},
		},
		{
			name:     "paid reverted to unpaid",
			previous: func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2) },
			updated:  func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusUnpaid, 2) },
		},
		{
			name: "legacy entry without status counts as paid",
			previous: func() models.Entry {
				e := boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2)
				e.PayStatus = nil
				return e
			},
			updated: func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2) },
		},
		{
			name:     "no linked bank account",
			previous: func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusUnpaid, 2) },
			updated: func() models.Entry {
				e := boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2)
				e.BankAccountID = nil
				return e
			},
		},
		{
			name:     "entry opted out of bank balance",
			previous: func() models.Entry { return boundEntry(5, 500, models.PaymentIncoming, models.StatusUnpaid, 2) },
			updated: func() models.Entry {
				e := boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2)
				e.AffectsBankBalance = false
				return e
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ledger := new(MockLedger)
			svc := NewEntrySyncService(ledger)

			previous := tc.previous()
			updated := tc.updated()
			result := svc.Synchronize(context.Background(), &previous, &updated)

			assert.Equal(t, SyncSkipped, result.Outcome)
			assert.Empty(t, result.Message())
			ledger.AssertNotCalled(t, "Deposit", mock.Anything, mock.Anything)
			ledger.AssertNotCalled(t, "Withdraw", mock.Anything, mock.Anything)
		})
	}
}

func TestSynchronizeNilEntries(t *testing.T) {
	ledger := new(MockLedger)
	svc := NewEntrySyncService(ledger)

	updated := boundEntry(5, 500, models.PaymentIncoming, models.StatusPaid, 2)
	assert.Equal(t, SyncSkipped, svc.Synchronize(context.Background(), nil, &updated).Outcome)
	assert.Equal(t, SyncSkipped, svc.Synchronize(context.Background(), &updated, nil).Outcome)
}

func TestSynchronizeLedgerFailureIsPartial(t *testing.T) {
	ledger := new(MockLedger)
	svc := NewEntrySyncService(ledger)

	previous := boundEntry(9, 300, models.PaymentOutgoing, models.StatusUnpaid, 4)
	updated := boundEntry(9, 300, models.PaymentOutgoing, models.StatusPaid, 4)

	ledger.On("Withdraw", mock.Anything, mock.Anything).
		Return(nil, errors.New("optimistic lock failed for account 4")).Once()

	result := svc.Synchronize(context.Background(), &previous, &updated)

	require.Equal(t, SyncPartialFailure, result.Outcome)
	assert.Equal(t, PartialFailureMessage, result.Message())
	assert.Error(t, result.Err)
	assert.Equal(t, "DAYBOOK-9", result.Reference)
	ledger.AssertExpectations(t)
}

func TestSynchronizeDescriptionFallback(t *testing.T) {
	ledger := new(MockLedger)
	svc := NewEntrySyncService(ledger)

	previous := boundEntry(21, 150, models.PaymentOutgoing, models.StatusUnpaid, 2)
	previous.Description = ""
	updated := boundEntry(21, 150, models.PaymentOutgoing, models.StatusPaid, 2)
	updated.Description = ""

	ledger.On("Withdraw", mock.Anything, mock.MatchedBy(func(req models.LedgerRequest) bool {
		return req.Description == "Daybook Entry #21"
	})).Return(&models.BankTransaction{ID: "tx-3"}, nil).Once()

	result := svc.Synchronize(context.Background(), &previous, &updated)

	assert.Equal(t, SyncApplied, result.Outcome)
	ledger.AssertExpectations(t)
}

func TestLedgerReference(t *testing.T) {
	assert.Equal(t, "DAYBOOK-7", LedgerReference(7))
	assert.Equal(t, "DAYBOOK-120045", LedgerReference(120045))
}
