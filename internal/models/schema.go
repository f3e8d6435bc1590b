package models

import "github.com/shopspring/decimal"

// Base is embedded by every typed schema.
type Base struct {
	ID        string `json:"id"`
	ProfileID string `json:"profileId,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

type Profile struct {
	Base
	Name           string          `json:"name"`
	Icon           string          `json:"icon,omitempty"`
	Currency       string          `json:"currency"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	IsLocked       bool            `json:"isLocked"`
	PIN            string          `json:"pin,omitempty"`
}

// Transaction types.
const (
	Income  = "income"
	Expense = "expense"
)

type Transaction struct {
	Base
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
	CategoryID  string          `json:"categoryId,omitempty"`
	Date        string          `json:"date"`
	Tags        []string        `json:"tags,omitempty"`
	Note        string          `json:"note,omitempty"`
	IsRecurring bool            `json:"isRecurring,omitempty"`
}

type Category struct {
	Base
	Type  string `json:"type"`
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// Debt directions.
const (
	Borrowed = "borrowed"
	Lent     = "lent"
)

type Payment struct {
	ID     string          `json:"id"`
	Amount decimal.Decimal `json:"amount"`
	Date   string          `json:"date"`
}

type Debt struct {
	Base
	Type            string          `json:"type"`
	Person          string          `json:"person"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	InterestRate    decimal.Decimal `json:"interestRate"`
	DueDate         string          `json:"dueDate,omitempty"`
	Description     string          `json:"description,omitempty"`
	IsPaid          bool            `json:"isPaid"`
	Payments        []Payment       `json:"payments"`
}

type Investment struct {
	Base
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PurchaseDate  string          `json:"purchaseDate,omitempty"`
	Notes         string          `json:"notes,omitempty"`
}

// Value is quantity times current price.
func (i Investment) Value() decimal.Decimal {
	return i.Quantity.Mul(i.CurrentPrice)
}

// Gain is the unrealised profit (negative for a loss).
func (i Investment) Gain() decimal.Decimal {
	return i.Value().Sub(i.Quantity.Mul(i.PurchasePrice))
}

// Bill frequencies.
const (
	Once      = "once"
	Monthly   = "monthly"
	Bimonthly = "bimonthly"
	Quarterly = "quarterly"
	Yearly    = "yearly"
	Custom    = "custom"
)

// FrequencyDays maps fixed frequencies to their period in days.
var FrequencyDays = map[string]int{
	Monthly:   30,
	Bimonthly: 60,
	Quarterly: 90,
	Yearly:    365,
}

type Bill struct {
	Base
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    string          `json:"dueDate"`
	Frequency  string          `json:"frequency"`
	CustomDays int             `json:"customDays,omitempty"`
	Category   string          `json:"category,omitempty"`
	IsPaid     bool            `json:"isPaid"`
	PaidDate   string          `json:"paidDate,omitempty"`
	AutoPay    bool            `json:"autoPay"`
	Reminders  []int           `json:"reminders,omitempty"`
	Notes      string          `json:"notes,omitempty"`
}

type Note struct {
	Base
	Title              string   `json:"title"`
	Content            string   `json:"content"`
	Tags               []string `json:"tags,omitempty"`
	LinkedTransactions []string `json:"linkedTransactions,omitempty"`
	Attachments        []string `json:"attachments,omitempty"`
	Color              string   `json:"color,omitempty"`
	IsPinned           bool     `json:"isPinned"`
}
