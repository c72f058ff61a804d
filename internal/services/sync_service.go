package services

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/daybookapp/backend/internal/audit"
	"github.com/daybookapp/backend/internal/models"
)

// LedgerAPI is the slice of the bank ledger the synchronizer needs.
type LedgerAPI interface {
	Deposit(ctx context.Context, req models.LedgerRequest) (*models.BankTransaction, error)
	Withdraw(ctx context.Context, req models.LedgerRequest) (*models.BankTransaction, error)
}

type SyncOutcome string

const (
	SyncSkipped        SyncOutcome = "SKIPPED"
	SyncApplied        SyncOutcome = "APPLIED"
	SyncPartialFailure SyncOutcome = "PARTIAL_FAILURE"
)

// PartialFailureMessage is surfaced verbatim to the end user so the
// ledger side can be retried manually.
const PartialFailureMessage = "entry updated but failed to create bank transaction"

const referencePrefix = "DAYBOOK-"

// SyncResult is the compound outcome of one synchronization attempt.
// PartialFailure means the entry update already succeeded but the
// ledger write did not; the entry update is never rolled back.
type SyncResult struct {
	Outcome     SyncOutcome             `json:"outcome"`
	Reference   string                  `json:"reference,omitempty"`
	Transaction *models.BankTransaction `json:"transaction,omitempty"`
	Err         error                   `json:"-"`
}

// Message returns the user-facing message for the result, empty when
// there is nothing to surface.
func (r SyncResult) Message() string {
	if r.Outcome == SyncPartialFailure {
		return PartialFailureMessage
	}
	return ""
}

// EntrySyncService keeps an entry's payment status in sync with the
// bank account ledger. It fires at most once per qualifying edit: only
// the unpaid-to-paid transition of a ledger-bound entry creates a
// transaction, so repeated edits never duplicate ledger rows.
type EntrySyncService struct {
	ledger LedgerAPI
	audit  *audit.Logger
}

func NewEntrySyncService(ledger LedgerAPI) *EntrySyncService {
	return &EntrySyncService{
		ledger: ledger,
		audit:  audit.NewLogger(),
	}
}

// Synchronize inspects the entry state before and after an edit and,
// when the transition qualifies, issues exactly one matching ledger
// transaction. The updated entry must already be durably persisted;
// Synchronize never undoes that persistence. Callers own the timeout
// policy on ctx, and a timed-out ledger call is a partial failure like
// any other.
//
// Note: concurrent sessions editing the same entry are not deduplicated
// here; the ledger store's duplicate-reference guard is the backstop.
func (s *EntrySyncService) Synchronize(ctx context.Context, previous, updated *models.Entry) SyncResult {
	if previous == nil || updated == nil {
		return SyncResult{Outcome: SyncSkipped}
	}

	if previous.EffectivePayStatus() != models.StatusUnpaid ||
		updated.EffectivePayStatus() != models.StatusPaid ||
		!updated.LedgerBound() {
		return SyncResult{Outcome: SyncSkipped}
	}

	reference := LedgerReference(updated.ID)
	description := updated.Description
	if description == "" {
		description = fmt.Sprintf("Daybook Entry #%d", updated.ID)
	}

	req := models.LedgerRequest{
		AccountID:   *updated.BankAccountID,
		Amount:      updated.Amount,
		Description: description,
		Reference:   reference,
		Tenant:      updated.Tenant,
	}

	var bankTx *models.BankTransaction
	var err error
	if updated.PaymentType == models.PaymentIncoming {
		bankTx, err = s.ledger.Deposit(ctx, req)
	} else {
		bankTx, err = s.ledger.Withdraw(ctx, req)
	}

	if err != nil {
		log.Printf("[SYNC] Ledger write failed for entry %d (%s): %v", updated.ID, reference, err)
		s.audit.LogError(reference, req.AccountID, err)
		return SyncResult{Outcome: SyncPartialFailure, Reference: reference, Err: err}
	}

	log.Printf("[SYNC] Ledger transaction %s created for entry %d (%s)", bankTx.ID, updated.ID, reference)
	return SyncResult{Outcome: SyncApplied, Reference: reference, Transaction: bankTx}
}

// LedgerReference builds the dedup key linking an entry to its bank
// transaction.
func LedgerReference(entryID int64) string {
	return referencePrefix + strconv.FormatInt(entryID, 10)
}
