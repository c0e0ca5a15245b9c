// Package google mirrors activities onto a Google Calendar.
package google

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"

	"calendario/internal/core"
)

type Client struct {
	svc        *gcal.Service
	calendarID string
}

// NewFromEnv creates a Calendar client using environment variables.
// Required: GOOGLE_CALENDAR_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS; without a service account it falls
// back to GOOGLE_OAUTH_CLIENT_JSON/FILE plus the token written by
// oauth-init (GOOGLE_OAUTH_TOKEN_JSON/FILE).
func NewFromEnv(ctx context.Context) (*Client, error) {
	calendarID := strings.TrimSpace(os.Getenv("GOOGLE_CALENDAR_ID"))
	if calendarID == "" {
		return nil, errors.New("missing GOOGLE_CALENDAR_ID")
	}

	svc, err := newCalendarService(ctx)
	if err != nil {
		return nil, fmt.Errorf("calendar service: %w", err)
	}

	return &Client{
		svc:        svc,
		calendarID: calendarID,
	}, nil
}

// newCalendarService initializes a Calendar Service, preferring Service
// Account credentials and falling back to an OAuth client + stored token.
func newCalendarService(ctx context.Context) (*gcal.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return newOAuthCalendarService(ctx)
	}

	service, err := gcal.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gcal.CalendarEventsScope))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return service, nil
}

// newOAuthCalendarService authenticates with the OAuth client credentials
// and the token saved by oauth-init.
func newOAuthCalendarService(ctx context.Context) (*gcal.Service, error) {
	clientJSON, err := readEnvJSON("GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE")
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	if clientJSON == nil {
		return nil, errors.New("missing Google credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_APPLICATION_CREDENTIALS, or an OAuth client via GOOGLE_OAUTH_CLIENT_JSON/GOOGLE_OAUTH_CLIENT_FILE)")
	}

	cfg, err := google.ConfigFromJSON(clientJSON, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}

	tokenJSON, err := readEnvJSON("GOOGLE_OAUTH_TOKEN_JSON", "GOOGLE_OAUTH_TOKEN_FILE")
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if tokenJSON == nil {
		return nil, errors.New("missing OAuth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE; run oauth-init to obtain one)")
	}

	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}

	service, err := gcal.NewService(ctx, goption.WithHTTPClient(cfg.Client(ctx, &tok)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return service, nil
}

// readEnvJSON resolves inline-JSON-or-file env var pairs. A nil result
// with no error means neither variable is set.
func readEnvJSON(jsonKey, fileKey string) ([]byte, error) {
	if v := strings.TrimSpace(os.Getenv(jsonKey)); v != "" {
		return []byte(v), nil
	}
	if f := strings.TrimSpace(os.Getenv(fileKey)); f != "" {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		return b, nil
	}
	return nil, nil
}

// eventID derives a Calendar-safe event id from an activity id.
// Google event ids only allow base32hex characters, hex encoding keeps
// the mapping deterministic for any id the store hands out.
func eventID(activityID string) string {
	return hex.EncodeToString([]byte(activityID))
}

// UpsertEvent creates or updates the all-day event mirroring an activity.
// The activity's type label travels as the event's shared category so
// edits stay visible in the mirrored calendar.
func (c *Client) UpsertEvent(ctx context.Context, a core.Activity, typeLabel string) error {
	ev := &gcal.Event{
		Id:      eventID(a.ID),
		Summary: a.Title,
		Start:   &gcal.EventDateTime{Date: a.Date.String()},
		End:     &gcal.EventDateTime{Date: a.Date.AddDate(0, 0, 1).Format(core.DateLayout)},
	}
	if a.Description != "" {
		ev.Description = a.Description
	}
	if typeLabel != "" {
		ev.ExtendedProperties = &gcal.EventExtendedProperties{
			Shared: map[string]string{"category": typeLabel},
		}
	}

	_, err := c.svc.Events.Update(c.calendarID, ev.Id, ev).Context(ctx).Do()
	if isNotFound(err) {
		_, err = c.svc.Events.Insert(c.calendarID, ev).Context(ctx).Do()
	}
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", ev.Id, err)
	}

	slog.InfoContext(ctx, "Mirrored activity to Google Calendar", "activity_id", a.ID, "event_id", ev.Id)
	return nil
}

// DeleteEvent removes the mirrored event. Missing events are treated as
// already deleted.
func (c *Client) DeleteEvent(ctx context.Context, activityID string) error {
	id := eventID(activityID)
	err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do()
	if err != nil && !isNotFound(err) && !isGone(err) {
		return fmt.Errorf("delete event %s: %w", id, err)
	}

	slog.InfoContext(ctx, "Removed mirrored event", "activity_id", activityID, "event_id", id)
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusGone
}
