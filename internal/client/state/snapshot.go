package state

import (
	"time"

	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/shopspring/decimal"
)

// Snapshot is one consistent view of the local data.
type Snapshot struct {
	Profiles      []models.Record
	ActiveProfile models.Record

	// Scoped to ActiveProfile. Transactions are sorted by date, newest first.
	Transactions []models.Record
	Categories   []models.Record
	Investments  []models.Record
	Notes        []models.Record

	// Shared by all profiles.
	Debts []models.Record
	Bills []models.Record

	LoadedAt time.Time
}

func (s Snapshot) ActiveProfileID() string {
	if s.ActiveProfile == nil {
		return ""
	}
	return s.ActiveProfile.ID()
}

// Collection returns the mirrored records of c.
func (s Snapshot) Collection(c models.Collection) []models.Record {
	switch c {
	case models.Profiles:
		return s.Profiles
	case models.Transactions:
		return s.Transactions
	case models.Categories:
		return s.Categories
	case models.Investments:
		return s.Investments
	case models.Notes:
		return s.Notes
	case models.Debts:
		return s.Debts
	case models.Bills:
		return s.Bills
	}
	return nil
}

// Summary totals transactions of one month.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
	Count   int
}

// MonthlySummary totals the active profile's transactions dated in the
// given month.
func (s Snapshot) MonthlySummary(year int, month time.Month) Summary {
	var sum Summary
	for _, tx := range s.Transactions {
		d := models.ParseTime(tx["date"])
		if d.Year() != year || d.Month() != month {
			continue
		}
		sum.Count++
		switch tx.String("type") {
		case models.Income:
			sum.Income = sum.Income.Add(tx.Decimal("amount"))
		case models.Expense:
			sum.Expense = sum.Expense.Add(tx.Decimal("amount"))
		}
	}
	sum.Balance = sum.Income.Sub(sum.Expense)
	return sum
}

// ActiveDebts counts debts not yet paid off.
func (s Snapshot) ActiveDebts() int {
	n := 0
	for _, d := range s.Debts {
		if paid, _ := d["isPaid"].(bool); !paid {
			n++
		}
	}
	return n
}

// UpcomingBills returns unpaid bills due within the next window from now.
func (s Snapshot) UpcomingBills(now time.Time, window time.Duration) []models.Record {
	var out []models.Record
	for _, b := range s.Bills {
		if paid, _ := b["isPaid"].(bool); paid {
			continue
		}
		due := models.ParseTime(b["dueDate"])
		if due.IsZero() || due.Before(now) || due.After(now.Add(window)) {
			continue
		}
		out = append(out, b)
	}
	return out
}
