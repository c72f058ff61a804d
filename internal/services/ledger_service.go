package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/daybookapp/backend/internal/audit"
	"github.com/daybookapp/backend/internal/models"
)

// BankLedgerService owns the bank_accounts/bank_transactions store.
// Every deposit or withdraw creates exactly one transaction row and
// moves the account balance inside a single SQL transaction.
type BankLedgerService struct {
	db    *sql.DB
	audit *audit.Logger
}

func NewBankLedgerService(db *sql.DB) *BankLedgerService {
	return &BankLedgerService{
		db:    db,
		audit: audit.NewLogger(),
	}
}

func (s *BankLedgerService) Deposit(ctx context.Context, req models.LedgerRequest) (*models.BankTransaction, error) {
	return s.post(ctx, models.TxDeposit, req)
}

func (s *BankLedgerService) Withdraw(ctx context.Context, req models.LedgerRequest) (*models.BankTransaction, error) {
	return s.post(ctx, models.TxWithdraw, req)
}

func (s *BankLedgerService) post(ctx context.Context, txType models.TransactionType, req models.LedgerRequest) (*models.BankTransaction, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive")
	}
	if req.Reference == "" {
		return nil, fmt.Errorf("reference is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// A reference is only ever written once; a duplicate means the
	// transaction already exists and must not be re-created.
	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM bank_transactions WHERE reference = $1)`,
		req.Reference).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if exists {
		s.audit.LogError(req.Reference, req.AccountID, fmt.Errorf("duplicate reference"))
		return nil, fmt.Errorf("reference %s already used", req.Reference)
	}

	account, err := s.lockAccount(ctx, tx, req.AccountID, req.Tenant)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("bank account %d not found", req.AccountID)
		}
		return nil, err
	}

	// Book balances may go negative; the ledger records movements
	// as-is rather than rejecting overdrafts.
	newBalance := account.Balance.Add(req.Amount)
	if txType == models.TxWithdraw {
		newBalance = account.Balance.Sub(req.Amount)
	}

	bankTx := &models.BankTransaction{
		ID:              uuid.NewString(),
		AccountID:       account.ID,
		TransactionType: txType,
		Amount:          req.Amount,
		Reference:       req.Reference,
		Description:     req.Description,
		Tenant:          req.Tenant,
		Status:          "COMPLETED",
		CreatedAt:       time.Now(),
	}

	if err := s.createTransaction(ctx, tx, bankTx); err != nil {
		return nil, err
	}

	if err := s.updateAccountBalance(ctx, tx, account.ID, newBalance, account.Version); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.audit.LogLedgerWrite(req.Reference, account.ID, string(txType), req.Amount.String(), "SUCCESS")
	return bankTx, nil
}

// lockAccount scopes by tenant so one tenant can never move another
// tenant's balance; a foreign account ID reads as not found.
func (s *BankLedgerService) lockAccount(ctx context.Context, tx *sql.Tx, accountID int64, tenant string) (*models.BankAccount, error) {
	var account models.BankAccount
	err := tx.QueryRowContext(ctx, `
		SELECT id, balance, version, tenant, updated_at
		FROM bank_accounts
		WHERE id = $1 AND tenant = $2
		FOR UPDATE`, accountID, tenant).Scan(
		&account.ID, &account.Balance, &account.Version, &account.Tenant, &account.UpdatedAt)

	return &account, err
}

func (s *BankLedgerService) createTransaction(ctx context.Context, tx *sql.Tx, bankTx *models.BankTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO bank_transactions (id, account_id, transaction_type, amount, reference, description, tenant, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		bankTx.ID, bankTx.AccountID, bankTx.TransactionType, bankTx.Amount.String(),
		bankTx.Reference, bankTx.Description, bankTx.Tenant, bankTx.Status, bankTx.CreatedAt)
	return err
}

func (s *BankLedgerService) updateAccountBalance(ctx context.Context, tx *sql.Tx, accountID int64, newBalance decimal.Decimal, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE bank_accounts
		SET balance = $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4`,
		newBalance.String(), time.Now(), accountID, version)

	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("optimistic lock failed for account %d", accountID)
	}

	return nil
}

// ListAccounts returns the tenant's bank accounts
// @Summary List bank accounts
// @Description Get all bank accounts for the current tenant
// @Tags accounts
// @Produce json
// @Success 200 {array} models.BankAccount
// @Failure 500 {object} ErrorResponse
// @Router /accounts [get]
func (s *BankLedgerService) ListAccounts(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, name, balance, version, tenant, updated_at
		FROM bank_accounts
		WHERE tenant = $1
		ORDER BY id`, tenant)
	if err != nil {
		log.Printf("[LEDGER] Failed to list accounts for tenant %s: %v", tenant, err)
		SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	accounts := []models.BankAccount{}
	for rows.Next() {
		var a models.BankAccount
		if err := rows.Scan(&a.ID, &a.Name, &a.Balance, &a.Version, &a.Tenant, &a.UpdatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch accounts", http.StatusInternalServerError, nil)
			return
		}
		accounts = append(accounts, a)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(accounts)
}

// ListAccountTransactions returns the ledger for one bank account
// @Summary List bank transactions
// @Description Get the transaction ledger for a bank account, newest first
// @Tags accounts
// @Produce json
// @Param accountId path int true "Bank account ID"
// @Param limit query int false "Number of transactions to return (default: 50, max: 200)"
// @Success 200 {array} models.BankTransaction
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /accounts/{accountId}/transactions [get]
func (s *BankLedgerService) ListAccountTransactions(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	accountID, err := strconv.ParseInt(chi.URLParam(r, "accountId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid account ID", http.StatusBadRequest, nil)
		return
	}

	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 200 {
			limit = l
		}
	}

	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, account_id, transaction_type, amount, reference, description, tenant, status, created_at
		FROM bank_transactions
		WHERE account_id = $1 AND tenant = $2
		ORDER BY created_at DESC
		LIMIT $3`, accountID, tenant, limit)
	if err != nil {
		log.Printf("[LEDGER] Failed to list transactions for account %d: %v", accountID, err)
		SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
		return
	}
	defer rows.Close()

	transactions := []models.BankTransaction{}
	for rows.Next() {
		var t models.BankTransaction
		if err := rows.Scan(&t.ID, &t.AccountID, &t.TransactionType, &t.Amount,
			&t.Reference, &t.Description, &t.Tenant, &t.Status, &t.CreatedAt); err != nil {
			SendErrorResponse(w, "Failed to fetch transactions", http.StatusInternalServerError, nil)
			return
		}
		transactions = append(transactions, t)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}
