// Package budget computes monthly spend status from the current month's
// expenses and the persisted budget settings.
package budget

import "github.com/shopspring/decimal"

// DefaultMonthlyLimit and DefaultAlertThreshold seed a fresh install.
var DefaultMonthlyLimit = decimal.NewFromInt(1500000)

const DefaultAlertThreshold = 0.8

type (
	// Reminders are notification toggles; they do not affect any math.
	Reminders struct {
		RemindDaily        bool     `json:"remindDaily"`
		RemindWeeklyReview bool     `json:"remindWeeklyReview"`
		CustomMessages     []string `json:"customMessages"`
	}

	// Settings is the single budget record of the app. Callers own a copy and
	// pass it explicitly to each computation.
	Settings struct {
		MonthlyLimit   decimal.Decimal `json:"monthlyLimit"`
		AlertThreshold float64         `json:"alertThreshold"`
		Reminders      Reminders       `json:"reminders"`
	}

	// SettingsPatch is a shallow partial update; a non-nil Reminders replaces
	// the whole nested object.
	SettingsPatch struct {
		MonthlyLimit   *decimal.Decimal `json:"monthlyLimit,omitempty"`
		AlertThreshold *float64         `json:"alertThreshold,omitempty"`
		Reminders      *Reminders       `json:"reminders,omitempty"`
	}

	// RemindersPatch merges into the nested reminders object. A nil
	// CustomMessages leaves the list alone; an empty non-nil one clears it.
	RemindersPatch struct {
		RemindDaily        *bool     `json:"remindDaily,omitempty"`
		RemindWeeklyReview *bool     `json:"remindWeeklyReview,omitempty"`
		CustomMessages     *[]string `json:"customMessages,omitempty"`
	}
)

func DefaultReminders() Reminders {
	return Reminders{
		RemindDaily:        true,
		RemindWeeklyReview: true,
		CustomMessages:     []string{defaultDailyMessage, defaultWeeklyMessage},
	}
}

func DefaultSettings() Settings {
	return Settings{
		MonthlyLimit:   DefaultMonthlyLimit,
		AlertThreshold: DefaultAlertThreshold,
		Reminders:      DefaultReminders(),
	}
}

// Apply merges p into s. No range checks are made; whatever the caller sends
// is kept.
func (s Settings) Apply(p SettingsPatch) Settings {
	if p.MonthlyLimit != nil {
		s.MonthlyLimit = *p.MonthlyLimit
	}
	if p.AlertThreshold != nil {
		s.AlertThreshold = *p.AlertThreshold
	}
	if p.Reminders != nil {
		s.Reminders = p.Reminders.clone()
	} else {
		s.Reminders = s.Reminders.clone()
	}
	return s
}

// ApplyReminders merges p into the nested reminders object.
func (s Settings) ApplyReminders(p RemindersPatch) Settings {
	r := s.Reminders.clone()
	if p.RemindDaily != nil {
		r.RemindDaily = *p.RemindDaily
	}
	if p.RemindWeeklyReview != nil {
		r.RemindWeeklyReview = *p.RemindWeeklyReview
	}
	if p.CustomMessages != nil {
		r.CustomMessages = append([]string{}, (*p.CustomMessages)...)
	}
	s.Reminders = r
	return s
}

func (r Reminders) clone() Reminders {
	if r.CustomMessages != nil {
		r.CustomMessages = append([]string{}, r.CustomMessages...)
	}
	return r
}
