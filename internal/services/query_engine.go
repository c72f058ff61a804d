package services

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/daybookapp/backend/internal/models"
)

// FilterCriteria enumerates every recognized filter option. The zero
// value of each field imposes no constraint; "all" behaves the same as
// an empty string. Amount bounds of zero count as unset because every
// entry amount in this domain is positive.
type FilterCriteria struct {
	SearchTerm string
	DateFrom   *time.Time
	DateTo     *time.Time
	MinAmount  decimal.Decimal
	MaxAmount  decimal.Decimal
	Type       string // incoming, outgoing or all
	PayStatus  string // paid, unpaid or all
	Category   string // payment_type_specific or all
	NurseID    *int64
	ClientID   *int64
}

// Lookups carries the optional nurse/client cross-reference maps used
// to widen free-text matching. A missing map only narrows what can
// match, it never fails a query.
type Lookups struct {
	Nurses  map[int64]models.Nurse
	Clients map[int64]models.Client
}

// Relevance signal weights. Each signal is independent and the final
// score is their sum, so weights stay tunable without touching the
// sort plumbing.
const (
	scoreIDExact              = 100.0
	scoreIDPrefix             = 50.0
	scoreIDSubstring          = 25.0
	scoreDescriptionExact     = 80.0
	scoreDescriptionPrefix    = 40.0
	scoreDescriptionSubstring = 20.0
	scoreAmountExact          = 60.0
	scorePaymentTypeExact     = 30.0
	scoreModeOfPaySubstring   = 15.0

	recencyMaxBonus  = 10.0
	recencyDecayDays = 30.0
)

const (
	SortByDate      = "date"
	SortByAmount    = "amount"
	SortByRelevance = "relevance"

	SortAsc  = "asc"
	SortDesc = "desc"
)

// FilterEntries returns the entries matching every set constraint in
// criteria. Malformed bounds (min above max, from after to) yield an
// empty result rather than an error, since criteria come straight from
// free-form UI input. The input slice is never mutated.
func FilterEntries(entries []models.Entry, criteria FilterCriteria, lookups Lookups) []models.Entry {
	minSet := criteria.MinAmount.IsPositive()
	maxSet := criteria.MaxAmount.IsPositive()
	if minSet && maxSet && criteria.MinAmount.GreaterThan(criteria.MaxAmount) {
		return []models.Entry{}
	}
	if criteria.DateFrom != nil && criteria.DateTo != nil && criteria.DateFrom.After(*criteria.DateTo) {
		return []models.Entry{}
	}

	term := strings.ToLower(strings.TrimSpace(criteria.SearchTerm))

	result := []models.Entry{}
	for _, e := range entries {
		if term != "" && !matchesSearchTerm(&e, term, lookups) {
			continue
		}
		if criteria.DateFrom != nil && e.CreatedAt.Before(*criteria.DateFrom) {
			continue
		}
		if criteria.DateTo != nil && e.CreatedAt.After(*criteria.DateTo) {
			continue
		}
		if minSet && e.Amount.LessThan(criteria.MinAmount) {
			continue
		}
		if maxSet && e.Amount.GreaterThan(criteria.MaxAmount) {
			continue
		}
		if constrained(criteria.Type) && string(e.PaymentType) != criteria.Type {
			continue
		}
		if constrained(criteria.PayStatus) && string(e.EffectivePayStatus()) != criteria.PayStatus {
			continue
		}
		if constrained(criteria.Category) && e.Category != criteria.Category {
			continue
		}
		if criteria.NurseID != nil && (e.NurseID == nil || *e.NurseID != *criteria.NurseID) {
			continue
		}
		if criteria.ClientID != nil && (e.ClientID == nil || *e.ClientID != *criteria.ClientID) {
			continue
		}
		result = append(result, e)
	}

	return result
}

func constrained(option string) bool {
	return option != "" && option != "all"
}

// matchesSearchTerm checks the lowercased term against every
// searchable field; a hit in any one of them includes the entry.
func matchesSearchTerm(e *models.Entry, term string, lookups Lookups) bool {
	fields := []string{
		e.Description,
		strconv.FormatInt(e.ID, 10),
		string(e.PaymentType),
		string(e.ModeOfPay),
		e.Tenant,
		e.Amount.String(),
		e.Category,
		e.PaymentDescription,
	}

	if e.NurseID != nil && lookups.Nurses != nil {
		if n, ok := lookups.Nurses[*e.NurseID]; ok {
			fields = append(fields, n.Name, n.Registration, n.Phone)
		}
	}
	if e.ClientID != nil && lookups.Clients != nil {
		if c, ok := lookups.Clients[*e.ClientID]; ok {
			fields = append(fields, c.PatientName, c.RequestorName, c.Phone, c.City)
		}
	}

	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// SortEntries orders a copy of entries by date, amount or relevance.
// Relevance without a search term degrades to date descending. The
// sort is stable, so equal keys keep their input order.
func SortEntries(entries []models.Entry, sortBy, sortOrder, searchTerm string) []models.Entry {
	sorted := make([]models.Entry, len(entries))
	copy(sorted, entries)

	switch sortBy {
	case SortByAmount:
		sort.SliceStable(sorted, func(i, j int) bool {
			if sortOrder == SortDesc {
				return sorted[i].Amount.GreaterThan(sorted[j].Amount)
			}
			return sorted[i].Amount.LessThan(sorted[j].Amount)
		})
	case SortByRelevance:
		term := strings.ToLower(strings.TrimSpace(searchTerm))
		if term == "" {
			return SortEntries(entries, SortByDate, SortDesc, "")
		}
		now := time.Now()
		scores := make([]float64, len(sorted))
		for i := range sorted {
			scores[i] = RelevanceScore(&sorted[i], term, now)
		}
		indexes := make([]int, len(sorted))
		for i := range indexes {
			indexes[i] = i
		}
		sort.SliceStable(indexes, func(i, j int) bool {
			return scores[indexes[i]] > scores[indexes[j]]
		})
		ranked := make([]models.Entry, len(sorted))
		for i, idx := range indexes {
			ranked[i] = sorted[idx]
		}
		return ranked
	default: // date
		sort.SliceStable(sorted, func(i, j int) bool {
			if sortOrder == SortDesc {
				return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
			}
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		})
	}

	return sorted
}

// RelevanceScore sums the independent match signals for one entry
// against a lowercased search term. The id and description signals are
// mutually exclusive tiers where only the strongest applies.
func RelevanceScore(e *models.Entry, term string, now time.Time) float64 {
	score := 0.0

	id := strconv.FormatInt(e.ID, 10)
	switch {
	case id == term:
		score += scoreIDExact
	case strings.HasPrefix(id, term):
		score += scoreIDPrefix
	case strings.Contains(id, term):
		score += scoreIDSubstring
	}

	desc := strings.ToLower(e.Description)
	switch {
	case desc != "" && desc == term:
		score += scoreDescriptionExact
	case desc != "" && strings.HasPrefix(desc, term):
		score += scoreDescriptionPrefix
	case strings.Contains(desc, term):
		score += scoreDescriptionSubstring
	}

	if e.Amount.String() == term {
		score += scoreAmountExact
	}

	if string(e.PaymentType) == term {
		score += scorePaymentTypeExact
	}

	if strings.Contains(string(e.ModeOfPay), term) {
		score += scoreModeOfPaySubstring
	}

	ageDays := now.Sub(e.CreatedAt).Hours() / 24
	if bonus := recencyMaxBonus - ageDays/recencyDecayDays; bonus > 0 {
		if bonus > recencyMaxBonus {
			bonus = recencyMaxBonus
		}
		score += bonus
	}

	return score
}
