package view

import (
	bk "github.com/hanksha/field-booking-realtime/booking"
	"github.com/shopspring/decimal"
)

type Stats struct {
	Total          int               `json:"total"`
	ByStatus       map[bk.Status]int `json:"by_status"`
	Revenue        decimal.Decimal   `json:"revenue"`         // approved + complete
	PendingRevenue decimal.Decimal   `json:"pending_revenue"` // pending
}

// ComputeStats derives the aggregates from a visible list. They are never stored
// apart from the list they describe.
func ComputeStats(items []bk.Booking) Stats {
	stats := Stats{
		Total:          len(items),
		ByStatus:       make(map[bk.Status]int, len(bk.Statuses)),
		Revenue:        decimal.Zero,
		PendingRevenue: decimal.Zero,
	}
	for _, s := range bk.Statuses {
		stats.ByStatus[s] = 0
	}

	for _, b := range items {
		stats.ByStatus[b.Status]++
		switch b.Status {
		case bk.StatusApproved, bk.StatusComplete:
			stats.Revenue = stats.Revenue.Add(b.Price)
		case bk.StatusPending:
			stats.PendingRevenue = stats.PendingRevenue.Add(b.Price)
		}
	}

	return stats
}
