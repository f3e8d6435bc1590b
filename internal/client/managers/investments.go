package managers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/shopspring/decimal"
)

type Investments struct {
	*base
}

// Return summarises an investment portfolio.
type Return struct {
	TotalCost    decimal.Decimal
	CurrentValue decimal.Decimal
	Profit       decimal.Decimal
	Percentage   decimal.Decimal
}

func (m *Investments) Add(ctx context.Context, inv models.Investment) (models.Investment, error) {
	if strings.TrimSpace(inv.Name) == "" {
		return models.Investment{}, fmt.Errorf("%w: investment name is empty", common.ErrorInvalidArgument)
	}
	if err := requirePositive("purchase price", inv.PurchasePrice); err != nil {
		return models.Investment{}, err
	}
	if inv.Quantity.IsZero() {
		inv.Quantity = decimal.NewFromInt(1)
	}
	if inv.CurrentPrice.IsZero() {
		inv.CurrentPrice = inv.PurchasePrice
	}
	if inv.ProfileID == "" {
		id, err := m.activeProfileID()
		if err != nil {
			return models.Investment{}, err
		}
		inv.ProfileID = id
	}
	m.stampNew(&inv.Base)
	return inv, m.insert(ctx, models.Investments, inv)
}

func (m *Investments) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (models.Investment, error) {
	if err := requirePositive("price", price); err != nil {
		return models.Investment{}, err
	}
	inv, err := load[models.Investment](ctx, m.base, models.Investments, id)
	if err != nil {
		return models.Investment{}, err
	}
	inv.CurrentPrice = price
	inv.UpdatedAt = m.timestamp()
	return inv, m.save(ctx, models.Investments, inv)
}

func (m *Investments) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, models.Investments, id)
}

// Return computes cost, value and profit over the active profile's
// investments.
func (m *Investments) Return() Return {
	var r Return
	for _, rec := range m.state.Snapshot().Investments {
		qty := rec.Decimal("quantity")
		r.TotalCost = r.TotalCost.Add(qty.Mul(rec.Decimal("purchasePrice")))
		r.CurrentValue = r.CurrentValue.Add(qty.Mul(rec.Decimal("currentPrice")))
	}
	r.Profit = r.CurrentValue.Sub(r.TotalCost)
	if r.TotalCost.IsPositive() {
		r.Percentage = r.Profit.Div(r.TotalCost).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return r
}
