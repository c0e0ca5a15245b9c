package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"calendario/internal/core"
)

var errBadPayload = errors.New("malformed request body")

// activityPayload is the wire form of an activity.
type activityPayload struct {
	ID          string `json:"id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	TypeID      string `json:"typeId"`
}

// typePayload is the wire form of an activity type. The label travels as
// "name" for compatibility with existing clients.
type typePayload struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// decodeActivity parses and validates an activity request body.
func decodeActivity(body io.Reader) (core.Activity, error) {
	var p activityPayload
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return core.Activity{}, fmt.Errorf("%w: %v", errBadPayload, err)
	}

	date, err := core.ParseDate(strings.TrimSpace(p.Date))
	if err != nil {
		return core.Activity{}, err
	}

	a := core.Activity{
		Title:       sanitizeInput(p.Title),
		Description: sanitizeInput(p.Description),
		Date:        date,
		TypeID:      strings.TrimSpace(p.TypeID),
	}
	if err := a.Validate(); err != nil {
		return core.Activity{}, err
	}
	return a, nil
}

// decodeType parses and validates an activity-type request body.
func decodeType(body io.Reader) (core.ActivityType, error) {
	var p typePayload
	if err := json.NewDecoder(body).Decode(&p); err != nil {
		return core.ActivityType{}, fmt.Errorf("%w: %v", errBadPayload, err)
	}

	t := core.ActivityType{
		Label: sanitizeInput(p.Name),
		Color: core.ColorToken(strings.TrimSpace(p.Color)),
	}
	if err := t.Validate(); err != nil {
		return core.ActivityType{}, err
	}
	return t, nil
}

// parseMonthQuery extracts the month filter from query parameters.
// Clients send the month 0-based (January is 0); the returned filter is
// 1-based. Returns nil when neither parameter is present.
func parseMonthQuery(query url.Values) (*monthQuery, error) {
	ms := strings.TrimSpace(query.Get("month"))
	ys := strings.TrimSpace(query.Get("year"))
	if ms == "" && ys == "" {
		return nil, nil
	}
	if ms == "" || ys == "" {
		return nil, fmt.Errorf("%w: month and year must be provided together", errBadPayload)
	}

	m, err := strconv.Atoi(ms)
	if err != nil || m < 0 || m > 11 {
		return nil, fmt.Errorf("%w: invalid month %q", errBadPayload, ms)
	}
	y, err := strconv.Atoi(ys)
	if err != nil || y < 1 {
		return nil, fmt.Errorf("%w: invalid year %q", errBadPayload, ys)
	}

	return &monthQuery{Year: y, Month: m + 1}, nil
}

// monthQuery holds a parsed 1-based month filter.
type monthQuery struct {
	Year  int
	Month int
}

// parseRangeQuery extracts granularity and anchor date for period listing.
func parseRangeQuery(query url.Values) (core.Granularity, core.Date, error) {
	g := core.Granularity(strings.TrimSpace(query.Get("granularity")))
	if g == "" {
		g = core.Month
	}
	if !g.IsValid() {
		return "", core.Date{}, fmt.Errorf("%w: invalid granularity %q", errBadPayload, g)
	}

	ds := strings.TrimSpace(query.Get("date"))
	if ds == "" {
		return "", core.Date{}, fmt.Errorf("%w: date is required", errBadPayload)
	}
	d, err := core.ParseDate(ds)
	if err != nil {
		return "", core.Date{}, err
	}

	return g, d, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// pathID extracts the {id} path segment.
func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
