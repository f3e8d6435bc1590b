// Package models holds the document shapes exchanged between the local
// store, the sync engine and the remote document store.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Common document fields.
const (
	FieldID        = "id"
	FieldProfileID = "profileId"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// TimeLayout is the ISO-8601 form written for every timestamp
// (millisecond precision, always UTC).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// DateLayout is used for calendar dates such as bill due dates.
const DateLayout = "2006-01-02"

// Record is a schemaless document. Every record carries a string "id";
// most carry "profileId", "createdAt" and "updatedAt".
type Record map[string]any

func (r Record) ID() string { return r.String(FieldID) }

func (r Record) ProfileID() string { return r.String(FieldProfileID) }

// String returns field as a string, or "" if absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Decimal reads a money or quantity field written either as a JSON number
// or as a decimal string. Anything else is zero.
func (r Record) Decimal(field string) decimal.Decimal {
	switch v := r[field].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	case decimal.Decimal:
		return v
	}
	return decimal.Zero
}

// Timestamp is the record's last-writer-wins clock: the later of updatedAt
// and createdAt. Records without a parsable timestamp return the zero time.
func (r Record) Timestamp() time.Time {
	created := ParseTime(r[FieldCreatedAt])
	updated := ParseTime(r[FieldUpdatedAt])
	if updated.After(created) {
		return updated
	}
	return created
}

// NewerThan reports whether r wins over other under last-writer-wins.
// Equal timestamps keep other.
func (r Record) NewerThan(other Record) bool {
	return r.Timestamp().After(other.Timestamp())
}

// Touch stamps updatedAt, and createdAt if it is missing.
func (r Record) Touch(now time.Time) {
	ts := FormatTime(now)
	if _, ok := r[FieldCreatedAt]; !ok {
		r[FieldCreatedAt] = ts
	}
	r[FieldUpdatedAt] = ts
}

// ParseTime accepts RFC 3339 strings (with or without fractional seconds),
// plain dates, and millisecond epoch numbers. Anything else is zero.
func ParseTime(v any) time.Time {
	switch value := v.(type) {
	case string:
		if value == "" {
			return time.Time{}
		}
		if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
			return t
		}
		if t, err := time.Parse(DateLayout, value); err == nil {
			return t
		}
	case float64:
		return time.UnixMilli(int64(value)).UTC()
	case int64:
		return time.UnixMilli(value).UTC()
	case time.Time:
		return value
	}
	return time.Time{}
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
