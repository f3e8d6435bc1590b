package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
	"github.com/shopspring/decimal"
)

func (a *App) ask(prompt string) (string, error) {
	return GetSimpleText(a.reader, prompt, a.out)
}

func (a *App) readDecimal(prompt string) (decimal.Decimal, error) {
	s, err := a.ask(prompt)
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q is not a number", common.ErrorInvalidArgument, s)
	}
	return d, nil
}

// Add prompts for the fields of a new record of the given kind.
func (a *App) Add(ctx context.Context, kind string) error {
	var (
		id  string
		err error
	)
	switch kind {
	case "transaction", "tx":
		id, err = a.addTransaction(ctx)
	case "note":
		id, err = a.addNote(ctx)
	case "debt":
		id, err = a.addDebt(ctx)
	case "bill":
		id, err = a.addBill(ctx)
	case "investment":
		id, err = a.addInvestment(ctx)
	case "category":
		id, err = a.addCategory(ctx)
	case "profile":
		id, err = a.addProfile(ctx)
	default:
		err = fmt.Errorf("%w: unknown kind %q", common.ErrorInvalidArgument, kind)
	}
	if err != nil {
		return a.fail(err)
	}
	a.printf("Added %s %s\n", kind, id)
	return nil
}

func (a *App) addTransaction(ctx context.Context) (string, error) {
	var t models.Transaction
	var err error
	if t.Type, err = a.ask("Type (income/expense)"); err != nil {
		return "", err
	}
	if t.Amount, err = a.readDecimal("Amount"); err != nil {
		return "", err
	}
	if t.Description, err = a.ask("Description"); err != nil {
		return "", err
	}
	if t.CategoryID, err = a.ask("Category id (optional)"); err != nil {
		return "", err
	}
	if t.Date, err = a.ask("Date YYYY-MM-DD (empty for today)"); err != nil {
		return "", err
	}
	t, err = a.managers.Transactions.Add(ctx, t)
	return t.ID, err
}

func (a *App) addNote(ctx context.Context) (string, error) {
	var n models.Note
	var err error
	if n.Title, err = a.ask("Title"); err != nil {
		return "", err
	}
	if n.Content, err = GetMultiline(a.reader, "Content", a.out); err != nil {
		return "", err
	}
	n, err = a.managers.Notes.Add(ctx, n)
	return n.ID, err
}

func (a *App) addDebt(ctx context.Context) (string, error) {
	var d models.Debt
	var err error
	if d.Type, err = a.ask("Type (borrowed/lent)"); err != nil {
		return "", err
	}
	if d.Person, err = a.ask("Person"); err != nil {
		return "", err
	}
	if d.Amount, err = a.readDecimal("Amount"); err != nil {
		return "", err
	}
	if d.DueDate, err = a.ask("Due date YYYY-MM-DD (optional)"); err != nil {
		return "", err
	}
	d, err = a.managers.Debts.Add(ctx, d)
	return d.ID, err
}

func (a *App) addBill(ctx context.Context) (string, error) {
	var b models.Bill
	var err error
	if b.Name, err = a.ask("Name"); err != nil {
		return "", err
	}
	if b.Amount, err = a.readDecimal("Amount"); err != nil {
		return "", err
	}
	if b.DueDate, err = a.ask("Due date YYYY-MM-DD"); err != nil {
		return "", err
	}
	if b.Frequency, err = a.ask("Frequency (once/monthly/bimonthly/quarterly/yearly/custom)"); err != nil {
		return "", err
	}
	if b.Frequency == models.Custom {
		s, err := a.ask("Every how many days")
		if err != nil {
			return "", err
		}
		if b.CustomDays, err = strconv.Atoi(s); err != nil || b.CustomDays <= 0 {
			return "", fmt.Errorf("%w: %q is not a number of days", common.ErrorInvalidArgument, s)
		}
	}
	b, err = a.managers.Bills.Add(ctx, b)
	return b.ID, err
}

func (a *App) addInvestment(ctx context.Context) (string, error) {
	var inv models.Investment
	var err error
	if inv.Name, err = a.ask("Name"); err != nil {
		return "", err
	}
	if inv.Type, err = a.ask("Type (stock/crypto/gold/fund/other)"); err != nil {
		return "", err
	}
	if inv.Quantity, err = a.readDecimal("Quantity"); err != nil {
		return "", err
	}
	if inv.PurchasePrice, err = a.readDecimal("Purchase price"); err != nil {
		return "", err
	}
	inv, err = a.managers.Investments.Add(ctx, inv)
	return inv.ID, err
}

func (a *App) addCategory(ctx context.Context) (string, error) {
	var c models.Category
	var err error
	if c.Type, err = a.ask("Type (income/expense)"); err != nil {
		return "", err
	}
	if c.Name, err = a.ask("Name"); err != nil {
		return "", err
	}
	c, err = a.managers.Categories.Add(ctx, c)
	return c.ID, err
}

func (a *App) addProfile(ctx context.Context) (string, error) {
	var p models.Profile
	var err error
	if p.Name, err = a.ask("Name"); err != nil {
		return "", err
	}
	if p.Currency, err = a.ask("Currency (empty for TRY)"); err != nil {
		return "", err
	}
	p, err = a.managers.Profiles.Create(ctx, p)
	return p.ID, err
}
