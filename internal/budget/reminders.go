package budget

import (
	"strings"
	"time"
)

const (
	ReminderDaily  ReminderKind = "daily"
	ReminderWeekly ReminderKind = "weekly_review"
	ReminderCustom ReminderKind = "custom"

	defaultDailyMessage  = "Log today's expenses"
	defaultWeeklyMessage = "Review your weekly budget"
)

// WeeklyReviewDay is when the weekly review reminder fires.
const WeeklyReviewDay = time.Sunday

type (
	ReminderKind string

	Reminder struct {
		Kind    ReminderKind `json:"kind"`
		Message string       `json:"message"`
	}
)

// Due lists the reminders to deliver on now's calendar day. The daily
// reminder uses the first custom message as its text; the rest are sent
// alongside it. Blank messages are ignored.
func Due(s Settings, now time.Time) []Reminder {
	r := s.Reminders
	var messages []string
	for _, m := range r.CustomMessages {
		if m = strings.TrimSpace(m); m != "" {
			messages = append(messages, m)
		}
	}

	var out []Reminder
	if r.RemindDaily {
		text := defaultDailyMessage
		if len(messages) > 0 {
			text = messages[0]
			messages = messages[1:]
		}
		out = append(out, Reminder{Kind: ReminderDaily, Message: text})
		for _, m := range messages {
			out = append(out, Reminder{Kind: ReminderCustom, Message: m})
		}
	}
	if r.RemindWeeklyReview && now.Weekday() == WeeklyReviewDay {
		out = append(out, Reminder{Kind: ReminderWeekly, Message: defaultWeeklyMessage})
	}
	return out
}
