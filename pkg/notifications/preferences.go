package notifications

import (
	"fmt"
	"time"
)

// Frequency is the user's digest cadence for non-urgent notifications.
// It is stored and validated with the rest of the preferences; delivery
// itself is currently immediate for every value.
// TODO: batch hourly/daily/weekly sends into digest notifications in
// the scheduler.
type Frequency string

const (
	FrequencyImmediate Frequency = "immediate"
	FrequencyHourly    Frequency = "hourly"
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
)

var knownFrequencies = map[Frequency]struct{}{
	FrequencyImmediate: {},
	FrequencyHourly:    {},
	FrequencyDaily:     {},
	FrequencyWeekly:    {},
}

// QuietHours is a daily window during which non-urgent delivery is
// suppressed. The window may cross midnight (e.g. 22:00 to 07:00).
type QuietHours struct {
	Enabled  bool   `json:"enabled"`
	Start    string `json:"start"` // "HH:MM"
	End      string `json:"end"`   // "HH:MM"
	Timezone string `json:"timezone"`
}

// Preferences holds a user's delivery settings.
type Preferences struct {
	UserID       string            `json:"user_id"`
	Channels     map[Channel]bool  `json:"channels"`
	Categories   map[Category]bool `json:"categories"`
	Frequency    Frequency         `json:"frequency"`
	QuietHours   QuietHours        `json:"quiet_hours"`
	DoNotDisturb bool              `json:"do_not_disturb"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// DefaultPreferences returns the settings a user starts with: every
// channel and category enabled, immediate delivery, no quiet hours.
func DefaultPreferences(userID string) Preferences {
	channels := make(map[Channel]bool, len(Channels))
	for _, ch := range Channels {
		channels[ch] = true
	}
	categories := make(map[Category]bool, len(Categories))
	for _, c := range Categories {
		categories[c] = true
	}
	return Preferences{
		UserID:     userID,
		Channels:   channels,
		Categories: categories,
		Frequency:  FrequencyImmediate,
		QuietHours: QuietHours{Timezone: "UTC"},
		UpdatedAt:  time.Now().UTC(),
	}
}

// EffectiveChannels intersects the requested channels with the user's
// channel and category settings. An empty request means every enabled
// channel. A category the user opted out of yields no channels at all.
func (p Preferences) EffectiveChannels(requested []Channel, category Category) []Channel {
	if enabled, ok := p.Categories[category]; ok && !enabled {
		return nil
	}

	base := requested
	if len(base) == 0 {
		base = Channels
	}

	var out []Channel
	for _, ch := range base {
		if p.Channels[ch] {
			out = append(out, ch)
		}
	}
	return out
}

// Suppressed reports whether delivery at the given instant should be
// skipped for the given priority, with a machine-readable reason.
// Urgent notifications are never suppressed.
func (p Preferences) Suppressed(at time.Time, priority Priority) (bool, string) {
	if priority == PriorityUrgent {
		return false, ""
	}
	if p.DoNotDisturb {
		return true, "suppressed:do_not_disturb"
	}
	if p.inQuietHours(at) {
		return true, "suppressed:quiet_hours"
	}
	return false, ""
}

// inQuietHours evaluates the window in the user's timezone. Unparseable
// settings fail open: delivery proceeds.
func (p Preferences) inQuietHours(at time.Time) bool {
	if !p.QuietHours.Enabled {
		return false
	}

	loc, err := time.LoadLocation(p.QuietHours.Timezone)
	if err != nil {
		return false
	}
	start, err := parseClock(p.QuietHours.Start)
	if err != nil {
		return false
	}
	end, err := parseClock(p.QuietHours.End)
	if err != nil {
		return false
	}

	local := at.In(loc)
	now := local.Hour()*60 + local.Minute()

	if start <= end {
		return now >= start && now < end
	}
	// Window crosses midnight.
	return now >= start || now < end
}

// Validate checks the preference fields a client can set.
func (p Preferences) Validate() error {
	if _, ok := knownFrequencies[p.Frequency]; !ok {
		return fmt.Errorf("%w: frequency %q", ErrInvalidPreferences, p.Frequency)
	}
	if p.QuietHours.Enabled {
		if _, err := parseClock(p.QuietHours.Start); err != nil {
			return fmt.Errorf("%w: quiet hours start %q", ErrInvalidPreferences, p.QuietHours.Start)
		}
		if _, err := parseClock(p.QuietHours.End); err != nil {
			return fmt.Errorf("%w: quiet hours end %q", ErrInvalidPreferences, p.QuietHours.End)
		}
		if _, err := time.LoadLocation(p.QuietHours.Timezone); err != nil {
			return fmt.Errorf("%w: timezone %q", ErrInvalidPreferences, p.QuietHours.Timezone)
		}
	}
	return nil
}

// parseClock parses "HH:MM" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
