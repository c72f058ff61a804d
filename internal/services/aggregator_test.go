package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/daybookapp/backend/internal/models"
)

func assertAmount(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(decimal.NewFromInt(want)), "want %d, got %s", want, got.String())
}

func TestAggregateWindows(t *testing.T) {
	now := time.Date(2026, time.May, 15, 10, 30, 0, 0, time.UTC)

	entries := []models.Entry{
		testEntry(1, 500, models.PaymentIncoming, "Morning visit", now.Add(-2*time.Hour)),
		testEntry(2, 200, models.PaymentOutgoing, "Supplies", now.Add(-1*time.Hour)),
		// 23:59 the previous day: out of today, inside week and month
		testEntry(3, 1000, models.PaymentIncoming, "Late payment", time.Date(2026, time.May, 14, 23, 59, 0, 0, time.UTC)),
		// 10 days back: month only
		testEntry(4, 300, models.PaymentOutgoing, "Rent share", now.AddDate(0, 0, -10)),
		// 45 days back: outside every window
		testEntry(5, 9999, models.PaymentIncoming, "Old entry", now.AddDate(0, 0, -45)),
	}

	summary := Aggregate(entries, now)

	assertAmount(t, 500, summary.Today.Incoming)
	assertAmount(t, 200, summary.Today.Outgoing)
	assertAmount(t, 300, summary.Today.Net)

	assertAmount(t, 1500, summary.Week.Incoming)
	assertAmount(t, 200, summary.Week.Outgoing)
	assertAmount(t, 1300, summary.Week.Net)

	assertAmount(t, 1500, summary.Month.Incoming)
	assertAmount(t, 500, summary.Month.Outgoing)
	assertAmount(t, 1000, summary.Month.Net)
}

func TestAggregateUsesCreatedAtNotPaidDate(t *testing.T) {
	now := time.Date(2026, time.May, 15, 10, 0, 0, 0, time.UTC)

	old := now.AddDate(0, 0, -60)
	e := testEntry(1, 400, models.PaymentIncoming, "Backfilled", old)
	paid := now
	e.CustomPaidDate = &paid

	summary := Aggregate([]models.Entry{e}, now)

	assertAmount(t, 0, summary.Today.Incoming)
	assertAmount(t, 0, summary.Month.Incoming)
}

func TestAggregateFutureEntriesExcludedFromTrailingWindows(t *testing.T) {
	now := time.Date(2026, time.May, 15, 10, 0, 0, 0, time.UTC)

	// Later today: counts for the calendar day but not the trailing windows.
	e := testEntry(1, 250, models.PaymentIncoming, "Evening visit", now.Add(3*time.Hour))
	summary := Aggregate([]models.Entry{e}, now)

	assertAmount(t, 250, summary.Today.Incoming)
	assertAmount(t, 0, summary.Week.Incoming)
	assertAmount(t, 0, summary.Month.Incoming)
}

func TestAggregateEmpty(t *testing.T) {
	summary := Aggregate(nil, time.Now())

	assertAmount(t, 0, summary.Today.Net)
	assertAmount(t, 0, summary.Week.Net)
	assertAmount(t, 0, summary.Month.Net)
}

// Splitting a collection and summing the partial aggregates must equal
// aggregating the whole collection.
func TestAggregateIsAdditive(t *testing.T) {
	now := time.Date(2026, time.May, 15, 10, 0, 0, 0, time.UTC)

	left := []models.Entry{
		testEntry(1, 500, models.PaymentIncoming, "A", now.Add(-1*time.Hour)),
		testEntry(2, 200, models.PaymentOutgoing, "B", now.AddDate(0, 0, -3)),
	}
	right := []models.Entry{
		testEntry(3, 120, models.PaymentIncoming, "C", now.AddDate(0, 0, -20)),
	}

	whole := Aggregate(append(append([]models.Entry{}, left...), right...), now)
	l := Aggregate(left, now)
	r := Aggregate(right, now)

	assert.True(t, whole.Month.Incoming.Equal(l.Month.Incoming.Add(r.Month.Incoming)))
	assert.True(t, whole.Month.Outgoing.Equal(l.Month.Outgoing.Add(r.Month.Outgoing)))
	assert.True(t, whole.Month.Net.Equal(l.Month.Net.Add(r.Month.Net)))
}
