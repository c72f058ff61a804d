package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/daybookapp/backend/internal/models"
)

// Totals holds the incoming/outgoing sums and their difference for one
// time window.
type Totals struct {
	Incoming decimal.Decimal `json:"incoming"`
	Outgoing decimal.Decimal `json:"outgoing"`
	Net      decimal.Decimal `json:"net"`
}

// Summary is the dashboard view of an entry collection: totals for the
// calendar day of now, the trailing 7 days and the trailing 30 days.
type Summary struct {
	Today Totals `json:"today"`
	Week  Totals `json:"week"`
	Month Totals `json:"month"`
}

// Aggregate recomputes the windowed totals over the full in-memory
// collection. Windows use created_at, not custom_paid_date, and an
// entry may land in several overlapping windows at once.
func Aggregate(entries []models.Entry, now time.Time) Summary {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayEnd := dayStart.Add(24 * time.Hour)
	weekStart := now.Add(-7 * 24 * time.Hour)
	monthStart := now.Add(-30 * 24 * time.Hour)

	var summary Summary
	for _, e := range entries {
		ts := e.CreatedAt
		if !ts.Before(dayStart) && ts.Before(dayEnd) {
			summary.Today = summary.Today.add(&e)
		}
		if !ts.Before(weekStart) && !ts.After(now) {
			summary.Week = summary.Week.add(&e)
		}
		if !ts.Before(monthStart) && !ts.After(now) {
			summary.Month = summary.Month.add(&e)
		}
	}

	return summary
}

func (t Totals) add(e *models.Entry) Totals {
	if e.PaymentType == models.PaymentIncoming {
		t.Incoming = t.Incoming.Add(e.Amount)
	} else {
		t.Outgoing = t.Outgoing.Add(e.Amount)
	}
	t.Net = t.Incoming.Sub(t.Outgoing)
	return t
}
