package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"

	"github.com/daybookapp/backend/internal/config"
	"github.com/daybookapp/backend/internal/models"
)

// EntryService serves the daybook entry lifecycle: list/search with
// the in-memory query engine, create, edit (which drives the ledger
// synchronizer) and delete. The entry store is authoritative; Redis
// only keeps the last successfully fetched collection per tenant so
// reads survive a store outage stale-but-available.
type EntryService struct {
	db        *sql.DB
	redis     *redis.Client
	sync      *EntrySyncService
	directory *DirectoryService
	validator *ValidationHelper
	cfg       *config.AppConfig
}

func NewEntryService(db *sql.DB, redisClient *redis.Client, sync *EntrySyncService, directory *DirectoryService, cfg *config.AppConfig) *EntryService {
	return &EntryService{
		db:        db,
		redis:     redisClient,
		sync:      sync,
		directory: directory,
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// EntryDraft is the creation payload for a new entry.
type EntryDraft struct {
	Amount             decimal.Decimal    `json:"amount"`
	PaymentType        models.PaymentType `json:"payment_type" validate:"required,oneof=incoming outgoing"`
	PayStatus          *models.PayStatus  `json:"pay_status" validate:"omitempty,oneof=paid unpaid"`
	ModeOfPay          models.ModeOfPay   `json:"mode_of_pay" validate:"required,oneof=cash upi others account_transfer"`
	BankAccountID      *int64             `json:"bank_account_id"`
	AffectsBankBalance bool               `json:"affects_bank_balance"`
	NurseID            *int64             `json:"nurse_id"`
	ClientID           *int64             `json:"client_id"`
	Category           string             `json:"payment_type_specific" validate:"max=64"`
	Description        string             `json:"description" validate:"max=500"`
	PaymentDescription string             `json:"payment_description" validate:"max=500"`
	CustomPaidDate     *time.Time         `json:"custom_paid_date"`
}

// EntryPatch is the edit payload; nil fields leave the stored value
// untouched.
type EntryPatch struct {
	Amount             *decimal.Decimal    `json:"amount"`
	PaymentType        *models.PaymentType `json:"payment_type" validate:"omitempty,oneof=incoming outgoing"`
	PayStatus          *models.PayStatus   `json:"pay_status" validate:"omitempty,oneof=paid unpaid"`
	ModeOfPay          *models.ModeOfPay   `json:"mode_of_pay" validate:"omitempty,oneof=cash upi others account_transfer"`
	BankAccountID      *int64              `json:"bank_account_id"`
	AffectsBankBalance *bool               `json:"affects_bank_balance"`
	NurseID            *int64              `json:"nurse_id"`
	ClientID           *int64              `json:"client_id"`
	Category           *string             `json:"payment_type_specific" validate:"omitempty,max=64"`
	Description        *string             `json:"description" validate:"omitempty,max=500"`
	PaymentDescription *string             `json:"payment_description" validate:"omitempty,max=500"`
	CustomPaidDate     *time.Time          `json:"custom_paid_date"`
}

// ListEntries lists, searches and paginates the tenant's entries
// @Summary List entries
// @Description Filter, sort and paginate the tenant's daybook entries
// @Tags entries
// @Produce json
// @Param q query string false "Free-text search term"
// @Param dateFrom query string false "Inclusive lower created_at bound (RFC3339 or YYYY-MM-DD)"
// @Param dateTo query string false "Inclusive upper created_at bound"
// @Param minAmount query number false "Inclusive lower amount bound (0 = unset)"
// @Param maxAmount query number false "Inclusive upper amount bound (0 = unset)"
// @Param type query string false "incoming, outgoing or all"
// @Param payStatus query string false "paid, unpaid or all"
// @Param category query string false "Category or all"
// @Param nurseId query int false "Filter by linked nurse"
// @Param clientId query int false "Filter by linked client"
// @Param sortBy query string false "date, amount or relevance"
// @Param sortOrder query string false "asc or desc"
// @Param page query int false "Page number (1-based)"
// @Param pageSize query int false "Page size"
// @Success 200 {object} object{items=[]models.Entry,page=int,pageSize=int,totalPages=int,totalItems=int,stale=bool}
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /entries [get]
func (es *EntryService) ListEntries(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	entries, stale, err := es.FetchEntries(r.Context(), tenant)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch entries", http.StatusInternalServerError, nil)
		return
	}

	criteria := parseCriteria(r)
	lookups := Lookups{}
	if es.directory != nil {
		lookups = es.directory.Lookups(r.Context(), tenant)
	}

	filtered := FilterEntries(entries, criteria, lookups)

	sortBy := r.URL.Query().Get("sortBy")
	if sortBy == "" {
		sortBy = SortByDate
	}
	sortOrder := r.URL.Query().Get("sortOrder")
	if sortOrder == "" {
		sortOrder = SortDesc
	}
	sorted := SortEntries(filtered, sortBy, sortOrder, criteria.SearchTerm)

	page := 1
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil {
			page = p
		}
	}
	pageSize := es.cfg.DefaultPageSize
	if sizeStr := r.URL.Query().Get("pageSize"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil {
			pageSize = s
		}
	}
	if pageSize > es.cfg.MaxPageSize {
		pageSize = es.cfg.MaxPageSize
	}

	result, err := Paginate(sorted, page, pageSize)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"items":      result.Items,
		"page":       result.Page,
		"pageSize":   result.PageSize,
		"totalPages": result.TotalPages,
		"totalItems": result.TotalItems,
		"stale":      stale,
	})
}

// GetEntry retrieves a single entry
// @Summary Get entry by ID
// @Tags entries
// @Produce json
// @Param entryId path int true "Entry ID"
// @Success 200 {object} models.Entry
// @Failure 404 {object} ErrorResponse
// @Router /entries/{entryId} [get]
func (es *EntryService) GetEntry(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid entry ID", http.StatusBadRequest, nil)
		return
	}

	entry, err := es.fetchEntry(r.Context(), tenant, entryID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Entry not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch entry", http.StatusInternalServerError, nil)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(entry)
}

// CreateEntry records a new financial movement
// @Summary Create entry
// @Tags entries
// @Accept json
// @Produce json
// @Param entry body EntryDraft true "Entry data"
// @Success 201 {object} models.Entry
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /entries [post]
func (es *EntryService) CreateEntry(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	var draft EntryDraft
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&draft); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := es.validator.ValidateStruct(&draft); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if !draft.Amount.IsPositive() {
		SendErrorResponse(w, "Amount must be positive", http.StatusBadRequest, nil)
		return
	}

	entry := models.Entry{
		Amount:             draft.Amount.Round(2),
		PaymentType:        draft.PaymentType,
		PayStatus:          draft.PayStatus,
		ModeOfPay:          draft.ModeOfPay,
		Tenant:             tenant,
		BankAccountID:      draft.BankAccountID,
		AffectsBankBalance: draft.AffectsBankBalance,
		NurseID:            draft.NurseID,
		ClientID:           draft.ClientID,
		Category:           draft.Category,
		Description:        draft.Description,
		PaymentDescription: draft.PaymentDescription,
		CreatedAt:          time.Now(),
		CustomPaidDate:     draft.CustomPaidDate,
	}

	err := es.db.QueryRowContext(r.Context(), `
		INSERT INTO daybook_entries
		(amount, payment_type, pay_status, mode_of_pay, tenant, bank_account_id, affects_bank_balance,
		 nurse_id, client_id, payment_type_specific, description, payment_description, created_at, custom_paid_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		entry.Amount.String(), entry.PaymentType, entry.PayStatus, entry.ModeOfPay, entry.Tenant,
		entry.BankAccountID, entry.AffectsBankBalance, entry.NurseID, entry.ClientID,
		entry.Category, entry.Description, entry.PaymentDescription, entry.CreatedAt, entry.CustomPaidDate,
	).Scan(&entry.ID)

	if err != nil {
		log.Printf("[ENTRY] Failed to create entry for tenant %s: %v", tenant, err)
		SendErrorResponse(w, "Failed to create entry", http.StatusInternalServerError, nil)
		return
	}

	es.invalidateCache(r.Context(), tenant)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(entry)
}

// UpdateEntry edits an entry, then synchronizes the bank ledger
// @Summary Update entry
// @Description Persist an entry edit, then create the matching bank transaction when the edit moves pay_status from unpaid to paid on a ledger-bound entry. The response reports the compound outcome; a partial failure means the entry was updated but the bank transaction was not created.
// @Tags entries
// @Accept json
// @Produce json
// @Param entryId path int true "Entry ID"
// @Param entry body EntryPatch true "Fields to change"
// @Success 200 {object} object{entry=models.Entry,sync=SyncResult,syncMessage=string}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /entries/{entryId} [put]
func (es *EntryService) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid entry ID", http.StatusBadRequest, nil)
		return
	}

	var patch EntryPatch
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&patch); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return
	}

	if err := es.validator.ValidateStruct(&patch); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		SendErrorResponse(w, "Amount must be positive", http.StatusBadRequest, nil)
		return
	}

	previous, err := es.fetchEntry(r.Context(), tenant, entryID)
	if err != nil {
		if err == sql.ErrNoRows {
			SendErrorResponse(w, "Entry not found", http.StatusNotFound, nil)
		} else {
			SendErrorResponse(w, "Failed to fetch entry", http.StatusInternalServerError, nil)
		}
		return
	}

	updated := applyPatch(previous, &patch)

	// Persist the entry first; the ledger write is a side effect of the
	// already-durable update and is never allowed to undo it.
	result, err := es.db.ExecContext(r.Context(), `
		UPDATE daybook_entries
		SET amount = $1, payment_type = $2, pay_status = $3, mode_of_pay = $4,
		    bank_account_id = $5, affects_bank_balance = $6, nurse_id = $7, client_id = $8,
		    payment_type_specific = $9, description = $10, payment_description = $11, custom_paid_date = $12
		WHERE id = $13 AND tenant = $14`,
		updated.Amount.String(), updated.PaymentType, updated.PayStatus, updated.ModeOfPay,
		updated.BankAccountID, updated.AffectsBankBalance, updated.NurseID, updated.ClientID,
		updated.Category, updated.Description, updated.PaymentDescription, updated.CustomPaidDate,
		entryID, tenant)
	if err != nil {
		log.Printf("[ENTRY] Failed to update entry %d: %v", entryID, err)
		SendErrorResponse(w, "Failed to update entry", http.StatusInternalServerError, nil)
		return
	}

	// The entry may have been deleted between the fetch and the update;
	// nothing was persisted then, so the ledger must not be touched.
	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Entry not found", http.StatusNotFound, nil)
		return
	}

	es.invalidateCache(r.Context(), tenant)

	syncCtx, cancel := context.WithTimeout(r.Context(), es.cfg.LedgerTimeout)
	defer cancel()
	syncResult := es.sync.Synchronize(syncCtx, previous, updated)

	response := map[string]interface{}{
		"entry": updated,
		"sync":  syncResult,
	}
	if msg := syncResult.Message(); msg != "" {
		response["syncMessage"] = msg
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// DeleteEntry removes an entry from the store
// @Summary Delete entry
// @Tags entries
// @Param entryId path int true "Entry ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /entries/{entryId} [delete]
func (es *EntryService) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	tenant, ok := r.Context().Value("tenant").(string)
	if !ok || tenant == "" {
		SendErrorResponse(w, "Tenant required", http.StatusUnauthorized, nil)
		return
	}

	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryId"), 10, 64)
	if err != nil {
		SendErrorResponse(w, "Invalid entry ID", http.StatusBadRequest, nil)
		return
	}

	result, err := es.db.ExecContext(r.Context(), `
		DELETE FROM daybook_entries WHERE id = $1 AND tenant = $2`, entryID, tenant)
	if err != nil {
		log.Printf("[ENTRY] Failed to delete entry %d: %v", entryID, err)
		SendErrorResponse(w, "Failed to delete entry", http.StatusInternalServerError, nil)
		return
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		SendErrorResponse(w, "Entry not found", http.StatusNotFound, nil)
		return
	}

	es.invalidateCache(r.Context(), tenant)
	w.WriteHeader(http.StatusNoContent)
}

// FetchEntries loads the tenant's full entry collection from the store
// and refreshes the cache. When the store is unreachable it falls back
// to the last cached collection; the second return value reports that
// staleness.
func (es *EntryService) FetchEntries(ctx context.Context, tenant string) ([]models.Entry, bool, error) {
	entries, err := es.queryEntries(ctx, tenant)
	if err == nil {
		es.cacheEntries(ctx, tenant, entries)
		return entries, false, nil
	}

	log.Printf("[ENTRY] Store fetch failed for tenant %s, trying cache: %v", tenant, err)
	if cached, cacheErr := es.cachedEntries(ctx, tenant); cacheErr == nil {
		return cached, true, nil
	}

	return nil, false, err
}

func (es *EntryService) queryEntries(ctx context.Context, tenant string) ([]models.Entry, error) {
	rows, err := es.db.QueryContext(ctx, `
		SELECT id, amount, payment_type, pay_status, mode_of_pay, tenant, bank_account_id,
		       affects_bank_balance, nurse_id, client_id,
		       COALESCE(payment_type_specific, '') AS payment_type_specific,
		       COALESCE(description, '') AS description,
		       COALESCE(payment_description, '') AS payment_description,
		       created_at, custom_paid_date
		FROM daybook_entries
		WHERE tenant = $1
		ORDER BY created_at DESC`, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func (es *EntryService) fetchEntry(ctx context.Context, tenant string, entryID int64) (*models.Entry, error) {
	row := es.db.QueryRowContext(ctx, `
		SELECT id, amount, payment_type, pay_status, mode_of_pay, tenant, bank_account_id,
		       affects_bank_balance, nurse_id, client_id,
		       COALESCE(payment_type_specific, '') AS payment_type_specific,
		       COALESCE(description, '') AS description,
		       COALESCE(payment_description, '') AS payment_description,
		       created_at, custom_paid_date
		FROM daybook_entries
		WHERE id = $1 AND tenant = $2`, entryID, tenant)

	return scanEntry(row)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.Entry, error) {
	var entry models.Entry
	var payStatus sql.NullString
	var bankAccountID, nurseID, clientID sql.NullInt64
	var customPaidDate sql.NullTime

	err := row.Scan(
		&entry.ID, &entry.Amount, &entry.PaymentType, &payStatus, &entry.ModeOfPay,
		&entry.Tenant, &bankAccountID, &entry.AffectsBankBalance, &nurseID, &clientID,
		&entry.Category, &entry.Description, &entry.PaymentDescription,
		&entry.CreatedAt, &customPaidDate,
	)
	if err != nil {
		return nil, err
	}

	if payStatus.Valid {
		status := models.PayStatus(payStatus.String)
		entry.PayStatus = &status
	}
	if bankAccountID.Valid {
		entry.BankAccountID = &bankAccountID.Int64
	}
	if nurseID.Valid {
		entry.NurseID = &nurseID.Int64
	}
	if clientID.Valid {
		entry.ClientID = &clientID.Int64
	}
	if customPaidDate.Valid {
		entry.CustomPaidDate = &customPaidDate.Time
	}

	return &entry, nil
}

func applyPatch(previous *models.Entry, patch *EntryPatch) *models.Entry {
	updated := *previous
	if patch.Amount != nil {
		updated.Amount = patch.Amount.Round(2)
	}
	if patch.PaymentType != nil {
		updated.PaymentType = *patch.PaymentType
	}
	if patch.PayStatus != nil {
		updated.PayStatus = patch.PayStatus
	}
	if patch.ModeOfPay != nil {
		updated.ModeOfPay = *patch.ModeOfPay
	}
	if patch.BankAccountID != nil {
		updated.BankAccountID = patch.BankAccountID
	}
	if patch.AffectsBankBalance != nil {
		updated.AffectsBankBalance = *patch.AffectsBankBalance
	}
	if patch.NurseID != nil {
		updated.NurseID = patch.NurseID
	}
	if patch.ClientID != nil {
		updated.ClientID = patch.ClientID
	}
	if patch.Category != nil {
		updated.Category = *patch.Category
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.PaymentDescription != nil {
		updated.PaymentDescription = *patch.PaymentDescription
	}
	if patch.CustomPaidDate != nil {
		updated.CustomPaidDate = patch.CustomPaidDate
	}
	return &updated
}

func parseCriteria(r *http.Request) FilterCriteria {
	q := r.URL.Query()

	criteria := FilterCriteria{
		SearchTerm: q.Get("q"),
		Type:       q.Get("type"),
		PayStatus:  q.Get("payStatus"),
		Category:   q.Get("category"),
	}

	if from := parseDateParam(q.Get("dateFrom"), false); from != nil {
		criteria.DateFrom = from
	}
	if to := parseDateParam(q.Get("dateTo"), true); to != nil {
		criteria.DateTo = to
	}
	if min, err := decimal.NewFromString(q.Get("minAmount")); err == nil {
		criteria.MinAmount = min
	}
	if max, err := decimal.NewFromString(q.Get("maxAmount")); err == nil {
		criteria.MaxAmount = max
	}
	if id, err := strconv.ParseInt(q.Get("nurseId"), 10, 64); err == nil {
		criteria.NurseID = &id
	}
	if id, err := strconv.ParseInt(q.Get("clientId"), 10, 64); err == nil {
		criteria.ClientID = &id
	}

	return criteria
}

// parseDateParam accepts RFC3339 timestamps or bare dates. A bare date
// used as an upper bound covers its whole day.
func parseDateParam(value string, endOfDay bool) *time.Time {
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return &t
	}
	return nil
}

func (es *EntryService) cacheKey(tenant string) string {
	return "entries:" + tenant
}

func (es *EntryService) cacheEntries(ctx context.Context, tenant string, entries []models.Entry) {
	if es.redis == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := es.redis.Set(ctx, es.cacheKey(tenant), data, es.cfg.EntryCacheTTL).Err(); err != nil {
		log.Printf("[ENTRY] Failed to cache entries for tenant %s: %v", tenant, err)
	}
}

func (es *EntryService) cachedEntries(ctx context.Context, tenant string) ([]models.Entry, error) {
	if es.redis == nil {
		return nil, redis.Nil
	}
	data, err := es.redis.Get(ctx, es.cacheKey(tenant)).Bytes()
	if err != nil {
		return nil, err
	}
	var entries []models.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (es *EntryService) invalidateCache(ctx context.Context, tenant string) {
	if es.redis == nil {
		return
	}
	if err := es.redis.Del(ctx, es.cacheKey(tenant)).Err(); err != nil {
		log.Printf("[ENTRY] Failed to invalidate cache for tenant %s: %v", tenant, err)
	}
}
