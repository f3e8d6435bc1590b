package managers

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCategories_AddDefaultsSkipsExistingNames(t *testing.T) {
	f := newFixture(t)
	pid := f.withProfile(t)

	n, err := f.m.Categories.AddDefaults(f.ctx, pid)
	require.NoError(t, err)
	assert.Zero(t, n)

	var food string
	for _, c := range f.st.Snapshot().Categories {
		if c.String("name") == "Food" {
			food = c.ID()
		}
	}
	require.NotEmpty(t, food)
	require.NoError(t, f.m.Categories.Delete(f.ctx, food))

	_, err = f.m.Categories.Add(f.ctx, models.Category{Type: models.Expense, Name: "FOOD"})
	require.NoError(t, err)
	_, err = f.m.Categories.Add(f.ctx, models.Category{Type: models.Expense, Name: "Pets"})
	require.NoError(t, err)

	n, err = f.m.Categories.AddDefaults(f.ctx, pid)
	require.NoError(t, err)
	assert.Zero(t, n, "FOOD matches Food case-insensitively")
	assert.Len(t, f.st.Snapshot().Categories, len(defaultCategories)+1)

	_, err = f.m.Categories.Add(f.ctx, models.Category{Type: "other", Name: "X"})
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestCategories_Update(t *testing.T) {
	f := newFixture(t)
	f.withProfile(t)

	c, err := f.m.Categories.Add(f.ctx, models.Category{Type: models.Expense, Name: "Pets"})
	require.NoError(t, err)
	f.tick(time.Second)

	upd, err := f.m.Categories.Update(f.ctx, models.Category{Base: models.Base{ID: c.ID}, Type: c.Type, Name: "Pet care", Color: "#000000"})
	require.NoError(t, err)
	assert.Equal(t, c.CreatedAt, upd.CreatedAt)
	assert.Equal(t, c.ProfileID, upd.ProfileID)
	assert.Equal(t, "Pet care", upd.Name)
}

func TestDebts_Payments(t *testing.T) {
	f := newFixture(t)
	f.withProfile(t)

	d, err := f.m.Debts.Add(f.ctx, models.Debt{Type: models.Lent, Person: "Ali", Amount: dec("100")})
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(d.RemainingAmount))
	assert.NotNil(t, d.Payments)

	d, err = f.m.Debts.AddPayment(f.ctx, d.ID, dec("40"), "")
	require.NoError(t, err)
	assert.True(t, dec("60").Equal(d.RemainingAmount))
	assert.False(t, d.IsPaid)
	require.Len(t, d.Payments, 1)
	assert.Equal(t, "2025-03-10", d.Payments[0].Date)
	assert.True(t, dec("60").Equal(f.m.Debts.Outstanding(models.Lent)))
	assert.True(t, f.m.Debts.Outstanding(models.Borrowed).IsZero())

	d, err = f.m.Debts.AddPayment(f.ctx, d.ID, dec("75"), "2025-03-11")
	require.NoError(t, err)
	assert.True(t, d.RemainingAmount.IsZero())
	assert.True(t, d.IsPaid)
	assert.Len(t, d.Payments, 2)
	assert.True(t, f.m.Debts.Outstanding(models.Lent).IsZero())

	_, err = f.m.Debts.AddPayment(f.ctx, d.ID, dec("0"), "")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	_, err = f.m.Debts.Add(f.ctx, models.Debt{Type: "gift", Person: "Ali", Amount: dec("1")})
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)

	require.NoError(t, f.m.Debts.Delete(f.ctx, d.ID))
	assert.Empty(t, f.st.Snapshot().Debts)
}

func TestInvestments_Return(t *testing.T) {
	f := newFixture(t)
	f.withProfile(t)

	a, err := f.m.Investments.Add(f.ctx, models.Investment{Type: "stock", Name: "ACME", PurchasePrice: dec("10")})
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(a.Quantity))
	assert.True(t, dec("10").Equal(a.CurrentPrice))

	_, err = f.m.Investments.Add(f.ctx, models.Investment{Type: "crypto", Name: "Coin", Quantity: dec("2"), PurchasePrice: dec("45"), CurrentPrice: dec("40")})
	require.NoError(t, err)

	_, err = f.m.Investments.UpdatePrice(f.ctx, a.ID, dec("30"))
	require.NoError(t, err)

	r := f.m.Investments.Return()
	assert.True(t, dec("100").Equal(r.TotalCost), r.TotalCost.String())
	assert.True(t, dec("110").Equal(r.CurrentValue), r.CurrentValue.String())
	assert.True(t, dec("10").Equal(r.Profit))
	assert.True(t, dec("10").Equal(r.Percentage))

	_, err = f.m.Investments.UpdatePrice(f.ctx, a.ID, dec("-1"))
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		freq   string
		custom int
		want   string
		ok     bool
	}{
		{models.Monthly, 0, "2025-02-14", true},
		{models.Bimonthly, 0, "2025-03-16", true},
		{models.Quarterly, 0, "2025-04-15", true},
		{models.Yearly, 0, "2026-01-15", true},
		{models.Custom, 10, "2025-01-25", true},
		{models.Custom, 0, "", false},
		{models.Once, 0, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.freq, func(t *testing.T) {
			got, ok := NextDueDate("2025-01-15", tt.freq, tt.custom)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := NextDueDate("15/01/2025", models.Monthly, 0)
	assert.False(t, ok)
}

func TestBills_MarkPaid(t *testing.T) {
	f := newFixture(t)
	f.withProfile(t)

	b, err := f.m.Bills.Add(f.ctx, models.Bill{Name: "Internet", Amount: dec("30"), DueDate: "2025-03-15"})
	require.NoError(t, err)
	assert.Equal(t, models.Monthly, b.Frequency)
	assert.Equal(t, "bills", b.Category)
	assert.Equal(t, []int{1, 7}, b.Reminders)

	paid, next, err := f.m.Bills.MarkPaid(f.ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.Equal(t, "2025-03-10T12:00:00.000Z", paid.PaidDate)
	require.NotNil(t, next)
	assert.Equal(t, "2025-04-14", next.DueDate)
	assert.False(t, next.IsPaid)
	assert.NotEqual(t, b.ID, next.ID)
	assert.Equal(t, 2, f.count(t, models.Bills))

	once, err := f.m.Bills.Add(f.ctx, models.Bill{Name: "Visa", Amount: dec("80"), DueDate: "2025-03-20", Frequency: models.Once})
	require.NoError(t, err)
	_, next, err = f.m.Bills.MarkPaid(f.ctx, once.ID)
	require.NoError(t, err)
	assert.Nil(t, next)
	assert.Equal(t, 3, f.count(t, models.Bills))

	_, err = f.m.Bills.Add(f.ctx, models.Bill{Name: "Bad", Amount: dec("1"), DueDate: "soon"})
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestNotes(t *testing.T) {
	f := newFixture(t)
	f.withProfile(t)

	n, err := f.m.Notes.Add(f.ctx, models.Note{Content: "Pay the plumber"})
	require.NoError(t, err)
	assert.Equal(t, defaultNoteTitle, n.Title)
	assert.Equal(t, defaultNoteColor, n.Color)
	assert.Equal(t, n.CreatedAt, n.UpdatedAt)

	_, err = f.m.Notes.Add(f.ctx, models.Note{Title: "Groceries", Tags: []string{"Shopping"}})
	require.NoError(t, err)

	f.tick(time.Minute)
	pinned, err := f.m.Notes.TogglePin(f.ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
	assert.Equal(t, "2025-03-10T12:01:00.000Z", pinned.UpdatedAt)

	all := f.m.Notes.Search("")
	require.Len(t, all, 2)
	assert.Equal(t, n.ID, all[0].ID(), "pinned first")

	hits := f.m.Notes.Search("shop")
	require.Len(t, hits, 1)
	assert.Equal(t, "Groceries", hits[0].String("title"))
	assert.Len(t, f.m.Notes.Search("PLUMBER"), 1)
	assert.Empty(t, f.m.Notes.Search("taxes"))

	require.NoError(t, f.m.Notes.Delete(f.ctx, n.ID))
	assert.Len(t, f.m.Notes.Search(""), 1)
}
