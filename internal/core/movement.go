package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Income  MovementType = "income"
	Expense MovementType = "expense"
)

type (
	MovementType string

	// Movement is a single income or expense record. Date holds the ISO-8601
	// creation timestamp exactly as it was stored.
	Movement struct {
		ID          string          `json:"id"`
		Amount      decimal.Decimal `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        string          `json:"date"`
		Type        MovementType    `json:"type"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrInvalidType      = errors.New("invalid movement type")

	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
)

const maxDescriptionLen = 200

// timestampLayouts are tried in order when reading a stored movement date.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func (t MovementType) IsValid() bool {
	return t == Income || t == Expense
}

// ParseTimestamp parses a stored ISO-8601 timestamp. Layouts without a zone
// are interpreted in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatTimestamp renders t the way new movements are stored.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// Time returns the parsed creation timestamp of the movement.
func (m Movement) Time(loc *time.Location) (time.Time, bool) {
	return ParseTimestamp(m.Date, loc)
}

func (m Movement) IsExpense() bool { return m.Type == Expense }

// Validate applies the entry-form rules for new movements. Aggregation never
// calls it.
func (m Movement) Validate() error {
	if !m.Type.IsValid() {
		return ErrInvalidType
	}
	if !m.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if len(strings.TrimSpace(m.Description)) == 0 {
		return ErrEmptyDescription
	}
	if utf8.RuneCountInString(m.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if strings.TrimSpace(m.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}
