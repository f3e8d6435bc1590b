package managers

import (
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/models"
)

type defaultCategory struct {
	Type, Name, Icon, Color string
}

var defaultCategories = []defaultCategory{
	{models.Income, "Salary", "bi:cash-coin", "#4caf50"},
	{models.Income, "Freelance", "bi:laptop", "#2196f3"},
	{models.Income, "Investment Returns", "bi:graph-up-arrow", "#00bcd4"},
	{models.Income, "Rental Income", "bi:house-door", "#ff9800"},
	{models.Income, "Project Income", "bi:briefcase", "#673ab7"},
	{models.Income, "Other Income", "bi:wallet2", "#1e88e5"},
	{models.Expense, "Food", "bi:cart3", "#f44336"},
	{models.Expense, "Transport", "bi:car-front", "#ff5722"},
	{models.Expense, "Bills", "bi:receipt", "#ffc107"},
	{models.Expense, "Health", "bi:heart-pulse", "#4caf50"},
	{models.Expense, "Entertainment", "bi:film", "#9c27b0"},
	{models.Expense, "Clothing", "bi:bag", "#e91e63"},
	{models.Expense, "Education", "bi:book", "#009688"},
	{models.Expense, "Rent", "bi:house", "#3f51b5"},
	{models.Expense, "Digital Media", "bi:phone", "#03a9f4"},
	{models.Expense, "Tax Payments", "bi:bank", "#795548"},
	{models.Expense, "Building Fees", "bi:building", "#ff7043"},
	{models.Expense, "Other Expense", "bi:box-seam", "#607d8b"},
}

type Categories struct {
	*base
}

// AddDefaults adds every default category whose name the profile does not
// have yet (case-insensitive) and returns how many were added.
func (m *Categories) AddDefaults(ctx context.Context, profileID string) (int, error) {
	existing, err := m.store.GetAllByIndex(ctx, models.Categories, models.FieldProfileID, profileID)
	if err != nil {
		return 0, err
	}
	names := make(map[string]bool, len(existing))
	for _, c := range existing {
		names[strings.ToLower(c.String("name"))] = true
	}

	added := 0
	for _, d := range defaultCategories {
		if names[strings.ToLower(d.Name)] {
			continue
		}
		c := models.Category{
			Base:  models.Base{ProfileID: profileID},
			Type:  d.Type,
			Name:  d.Name,
			Icon:  d.Icon,
			Color: d.Color,
		}
		m.stampNew(&c.Base)
		rec, err := models.Encode(c)
		if err != nil {
			return added, err
		}
		if err := m.store.Add(ctx, models.Categories, rec); err != nil {
			return added, err
		}
		added++
	}
	if added > 0 {
		m.changed(ctx)
	}
	return added, nil
}

func (m *Categories) Add(ctx context.Context, c models.Category) (models.Category, error) {
	if err := requireOneOf("category type", c.Type, models.Income, models.Expense); err != nil {
		return models.Category{}, err
	}
	if strings.TrimSpace(c.Name) == "" {
		return models.Category{}, fmt.Errorf("%w: category name is empty", common.ErrorInvalidArgument)
	}
	if c.ProfileID == "" {
		id, err := m.activeProfileID()
		if err != nil {
			return models.Category{}, err
		}
		c.ProfileID = id
	}
	m.stampNew(&c.Base)
	return c, m.insert(ctx, models.Categories, c)
}

func (m *Categories) Update(ctx context.Context, c models.Category) (models.Category, error) {
	cur, err := load[models.Category](ctx, m.base, models.Categories, c.ID)
	if err != nil {
		return models.Category{}, err
	}
	c.CreatedAt = cur.CreatedAt
	if c.ProfileID == "" {
		c.ProfileID = cur.ProfileID
	}
	c.UpdatedAt = m.timestamp()
	return c, m.save(ctx, models.Categories, c)
}

func (m *Categories) Delete(ctx context.Context, id string) error {
	return m.remove(ctx, models.Categories, id)
}
