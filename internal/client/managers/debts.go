package managers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/shopspring/decimal"
)

type Debts struct {
	*base
}

// Add records a new debt. The remaining amount starts at the full amount.
func (m *Debts) Add(ctx context.Context, d models.Debt) (models.Debt, error) {
	if err := requireOneOf("debt type", d.Type, models.Borrowed, models.Lent); err != nil {
		return models.Debt{}, err
	}
	if strings.TrimSpace(d.Person) == "" {
		return models.Debt{}, fmt.Errorf("%w: person is empty", common.ErrorInvalidArgument)
	}
	if err := requirePositive("amount", d.Amount); err != nil {
		return models.Debt{}, err
	}
	if d.ProfileID == "" {
		id, err := m.activeProfileID()
		if err != nil {
			return models.Debt{}, err
		}
		d.ProfileID = id
	}
	d.RemainingAmount = d.Amount
	d.IsPaid = false
	d.Payments = []models.Payment{}
	m.stampNew(&d.Base)
	return d, m.insert(ctx, models.Debts, d)
}

// AddPayment applies a payment. A debt paid down to zero or below is
// marked paid with nothing remaining.
func (m *Debts) AddPayment(ctx context.Context, id string, amount decimal.Decimal, date string) (models.Debt, error) {
	if err := requirePositive("payment", amount); err != nil {
		return models.Debt{}, err
	}
	d, err := load[models.Debt](ctx, m.base, models.Debts, id)
	if err != nil {
		return models.Debt{}, err
	}
	if date == "" {
		date = m.now().Format(models.DateLayout)
	}
	d.Payments = append(d.Payments, models.Payment{ID: m.newID(), Amount: amount, Date: date})
	d.RemainingAmount = d.RemainingAmount.Sub(amount)
	if !d.RemainingAmount.IsPositive() {
		d.RemainingAmount = decimal.Zero
		d.IsPaid = true
	}
	d.UpdatedAt = m.timestamp()
	return d, m.save(ctx, models.Debts, d)
}

func (m *Debts) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, models.Debts, id)
}

// Outstanding sums the remaining amount of unpaid debts of the given
// direction.
func (m *Debts) Outstanding(kind string) decimal.Decimal {
	total := decimal.Zero
	for _, d := range m.state.Snapshot().Debts {
		if d.String("type") != kind || d["isPaid"] == true {
			continue
		}
		total = total.Add(d.Decimal("remainingAmount"))
	}
	return total
}
