// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package googlecalendar provides an agent tool that lists today's
// events from the user's primary Google Calendar.
//
// The tool reads its access token from the request credentials carried
// by the context. Without a token it returns an authorization-required
// marker instead of calling the API, and API failures are returned as
// tool output rather than errors, so the model always receives a
// response it can relay.
package googlecalendar

import (
	"cmp"
	"context"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/nlpodyssey/agent-identity-go/agents"
	"github.com/nlpodyssey/agent-identity-go/identity"
)

// Name and description of the tool, as shown to the model.
const (
	ToolName        = "Get_calendar_events_today"
	ToolDescription = "Retrieves the calendar events for the day from your Google Calendar"
)

// AuthRequiredMessage accompanies the authorization-required marker.
const AuthRequiredMessage = "Google Calendar authentication is required. Please wait while we set up the authorization."

// Toolkit builds the Google Calendar tool.
type Toolkit struct {
	provider string
	location *time.Location
	endpoint string
	now      func() time.Time
}

type ToolkitParams struct {
	// Provider names the request-credentials entry holding the access
	// token. Defaults to identity.GoogleCalendarProviderName.
	Provider string

	// Location is the time zone the "today" window is computed in.
	// Defaults to time.Local.
	Location *time.Location

	// Endpoint overrides the Calendar API base URL. Mainly for testing.
	Endpoint string
}

// New creates a new Toolkit.
func New(params ToolkitParams) *Toolkit {
	location := params.Location
	if location == nil {
		location = time.Local
	}
	return &Toolkit{
		provider: cmp.Or(params.Provider, identity.GoogleCalendarProviderName),
		location: location,
		endpoint: params.Endpoint,
		now:      time.Now,
	}
}

// Provider returns the name of the identity provider whose credentials
// the tool consumes.
func (t *Toolkit) Provider() string { return t.provider }

// Tool returns the function tool listing today's calendar events.
func (t *Toolkit) Tool() agents.FunctionTool {
	return agents.FunctionTool{
		Name:        ToolName,
		Description: ToolDescription,
		ParamsJSONSchema: map[string]any{
			"title":                "get_calendar_events_today_args",
			"type":                 "object",
			"required":             []string{},
			"additionalProperties": false,
			"properties":           map[string]any{},
		},
		OnInvokeTool: func(ctx context.Context, _ string) (any, error) {
			return t.eventsToday(ctx), nil
		},
	}
}

// authRequiredOutput asks the caller to run an authorization flow. The
// auth_required field makes the condition detectable without scanning
// the message text.
type authRequiredOutput struct {
	AuthRequired bool              `json:"auth_required"`
	Message      string            `json:"message"`
	Events       []*calendar.Event `json:"events"`
}

func (o authRequiredOutput) AuthorizationRequired() bool { return o.AuthRequired }

type eventsOutput struct {
	Events []*calendar.Event `json:"events"`
}

type errorOutput struct {
	Error  string            `json:"error"`
	Events []*calendar.Event `json:"events"`
}

func (t *Toolkit) eventsToday(ctx context.Context) any {
	token := t.accessToken(ctx)
	if token == "" {
		return authRequiredOutput{
			AuthRequired: true,
			Message:      AuthRequiredMessage,
			Events:       []*calendar.Event{},
		}
	}

	service, err := t.newService(ctx, token)
	if err != nil {
		return errorOutput{Error: err.Error(), Events: []*calendar.Event{}}
	}

	dayStart, dayEnd := t.todayWindow()
	response, err := service.Events.List("primary").
		TimeMin(dayStart).
		TimeMax(dayEnd).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return errorOutput{Error: err.Error(), Events: []*calendar.Event{}}
	}

	events := response.Items
	if events == nil {
		events = []*calendar.Event{}
	}
	return eventsOutput{Events: events}
}

func (t *Toolkit) accessToken(ctx context.Context) string {
	credentials, ok := identity.RequestCredentials(ctx)
	if !ok {
		return ""
	}
	return credentials.Token(t.provider)
}

func (t *Toolkit) newService(ctx context.Context, token string) (*calendar.Service, error) {
	opts := []option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})),
	}
	if t.endpoint != "" {
		opts = append(opts, option.WithEndpoint(t.endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// todayWindow returns the RFC 3339 bounds of the current day in the
// configured time zone.
func (t *Toolkit) todayWindow() (string, string) {
	year, month, day := t.now().In(t.location).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.location)
	end := time.Date(year, month, day, 23, 59, 59, 0, t.location)
	return start.Format(time.RFC3339), end.Format(time.RFC3339)
}
