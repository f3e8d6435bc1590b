package managers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
)

type Bills struct {
	*base
}

var defaultReminders = []int{1, 7}

func (m *Bills) Add(ctx context.Context, b models.Bill) (models.Bill, error) {
	if strings.TrimSpace(b.Name) == "" {
		return models.Bill{}, fmt.Errorf("%w: bill name is empty", common.ErrorInvalidArgument)
	}
	if err := requirePositive("amount", b.Amount); err != nil {
		return models.Bill{}, err
	}
	if _, err := time.Parse(models.DateLayout, b.DueDate); err != nil {
		return models.Bill{}, fmt.Errorf("%w: due date %q", common.ErrorInvalidArgument, b.DueDate)
	}
	if b.Frequency == "" {
		b.Frequency = models.Monthly
	}
	if err := requireOneOf("frequency", b.Frequency,
		models.Once, models.Monthly, models.Bimonthly, models.Quarterly, models.Yearly, models.Custom); err != nil {
		return models.Bill{}, err
	}
	if b.Category == "" {
		b.Category = "bills"
	}
	if b.Reminders == nil {
		b.Reminders = append([]int(nil), defaultReminders...)
	}
	if b.ProfileID == "" {
		id, err := m.activeProfileID()
		if err != nil {
			return models.Bill{}, err
		}
		b.ProfileID = id
	}
	b.IsPaid = false
	m.stampNew(&b.Base)
	return b, m.insert(ctx, models.Bills, b)
}

// MarkPaid marks a bill paid and, for recurring bills, adds the next
// occurrence. next is nil for one-off bills.
func (m *Bills) MarkPaid(ctx context.Context, id string) (paid models.Bill, next *models.Bill, err error) {
	paid, err = load[models.Bill](ctx, m.base, models.Bills, id)
	if err != nil {
		return models.Bill{}, nil, err
	}
	now := m.now()
	paid.IsPaid = true
	paid.PaidDate = models.FormatTime(now)
	paid.UpdatedAt = models.FormatTime(now)
	if err := m.save(ctx, models.Bills, paid); err != nil {
		return models.Bill{}, nil, err
	}

	due, ok := NextDueDate(paid.DueDate, paid.Frequency, paid.CustomDays)
	if !ok {
		return paid, nil, nil
	}
	n := paid
	n.Base = models.Base{ProfileID: paid.ProfileID}
	n.DueDate = due
	n.IsPaid = false
	n.PaidDate = ""
	m.stampNew(&n.Base)
	if err := m.insert(ctx, models.Bills, n); err != nil {
		return paid, nil, err
	}
	return paid, &n, nil
}

func (m *Bills) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, models.Bills, id)
}

// NextDueDate returns the due date following due for the given frequency.
// ok is false for one-off bills, custom bills without a period and
// unparsable dates.
func NextDueDate(due, frequency string, customDays int) (string, bool) {
	d, err := time.Parse(models.DateLayout, due)
	if err != nil {
		return "", false
	}
	days, ok := models.FrequencyDays[frequency]
	if frequency == models.Custom && customDays > 0 {
		days, ok = customDays, true
	}
	if !ok {
		return "", false
	}
	return d.AddDate(0, 0, days).Format(models.DateLayout), true
}
