package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

type (
	// Granularity is the calendar period size used for filtering.
	Granularity string

	Date struct {
		time.Time
	}

	// Activity is a user-created calendar entry.
	Activity struct {
		ID          string
		Title       string
		Description string
		Date        Date
		TypeID      string
	}

	// ActivityType is a named, colored classification applied to activities.
	ActivityType struct {
		ID    string
		Label string
		Color ColorToken
	}
)

var (
	ErrEmptyTitle  = errors.New("empty title")
	ErrEmptyLabel  = errors.New("empty label")
	ErrEmptyTypeID = errors.New("empty type id")
	ErrUnknownType = errors.New("unknown activity type")
	ErrInvalidDate = errors.New("invalid date")
	ErrNotFound    = errors.New("not found")
	ErrLastType    = errors.New("cannot delete the last activity type")
)

// DateLayout is the wire format for activity dates.
const DateLayout = "2006-01-02"

// NewDate creates a Date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (g Granularity) IsValid() bool {
	switch g {
	case Day, Week, Month:
		return true
	default:
		return false
	}
}

func (a Activity) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrEmptyTitle
	}
	if len(a.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if err := a.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(a.TypeID) == "" {
		return ErrEmptyTypeID
	}
	return nil
}

func (t ActivityType) Validate() error {
	if strings.TrimSpace(t.Label) == "" {
		return ErrEmptyLabel
	}
	if len(t.Label) > 100 {
		return errors.New("label too long (max 100 characters)")
	}
	if err := t.Color.Validate(); err != nil {
		return err
	}
	return nil
}
