package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/stretchr/testify/require"
)

func createBody() map[string]any {
	return map[string]any{
		"title":       "Chess Club",
		"description": "Casual games after school.",
		"category":    "gaming",
		"location":    "Room 12",
		"date":        "2026-11-03",
		"start_time":  "15:30",
		"end_time":    "17:00",
		"capacity":    2,
	}
}

func TestCreateEvent(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")

	rec := serve(t, env.eventsH.Create, call{method: http.MethodPost, target: "/api/events", body: createBody(), user: host})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode[eventMessageResponse](t, rec)
	require.Equal(t, "Event created successfully", resp.Message)
	require.Equal(t, "Gaming", resp.Event.Category)
	require.Equal(t, host.ID, resp.Event.HostID)
	require.Equal(t, "Grace Tester", resp.Event.Host)
	require.Equal(t, 1, resp.Event.AttendeesCount)
	require.True(t, resp.Event.IsHost)
	require.True(t, resp.Event.IsAttending)
	require.NotNil(t, resp.Event.School)
	require.Equal(t, "Northside High", *resp.Event.School)
	require.Equal(t, 2, *resp.Event.Capacity)
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")

	tests := []struct {
		name  string
		patch map[string]any
		field string
	}{
		{name: "unknown category", patch: map[string]any{"category": "Knitting"}, field: "category"},
		{name: "missing title", patch: map[string]any{"title": ""}, field: "title"},
		{name: "zero capacity", patch: map[string]any{"capacity": 0}, field: "capacity"},
		{name: "bad date", patch: map[string]any{"date": "next tuesday"}, field: "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := createBody()
			for k, v := range tt.patch {
				body[k] = v
			}
			rec := serve(t, env.eventsH.Create, call{method: http.MethodPost, target: "/api/events", body: body, user: host})
			p := requireProblem(t, rec, http.StatusBadRequest, "")
			require.Contains(t, p.Errors, tt.field)
		})
	}
}

func TestCreateEventCommaSeparatedLabels(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")

	body := `{
		"title": "Study Hall",
		"description": "Quiet revision before finals.",
		"category": "Reading",
		"date": "2026-12-01",
		"time": "3:00 PM - 5:00 PM",
		"start_time": "15:00",
		"end_time": "17:00",
		"location": "Library",
		"school_years": "9th, 10th",
		"genders": "Male, Female",
		"image": ""
	}`
	rec := serve(t, env.eventsH.Create, call{method: http.MethodPost, target: "/api/events/create", body: body, user: host})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decode[eventMessageResponse](t, rec).Event
	require.Equal(t, []string{"9th", "10th"}, got.SchoolYears)
	require.Equal(t, []string{"Male", "Female"}, got.Genders)

	rec = serve(t, env.eventsH.Update, call{
		method: http.MethodPut,
		target: "/api/events/" + got.ID,
		body:   `{"school_years": "11th", "genders": ["Non-binary"]}`,
		user:   host,
		path:   map[string]string{"id": got.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[eventMessageResponse](t, rec).Event
	require.Equal(t, []string{"11th"}, updated.SchoolYears)
	require.Equal(t, []string{"Non-binary"}, updated.Genders)

	body = `{"title": "Bad", "description": "x", "category": "Art", "location": "Hall", "date": "2026-12-01", "genders": 7}`
	rec = serve(t, env.eventsH.Create, call{method: http.MethodPost, target: "/api/events/create", body: body, user: host})
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestGetEvent(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")
	viewer := env.signup(t, "Ada", "ada@example.com")
	event := env.createEvent(t, host, "Art", nil)

	rec := serve(t, env.eventsH.Get, call{method: http.MethodGet, target: "/api/events/" + event.ID, user: viewer, path: map[string]string{"id": event.ID}})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[eventResponse](t, rec).Event
	require.Equal(t, event.ID, got.ID)
	require.False(t, got.IsHost)
	require.False(t, got.IsAttending)
	require.Nil(t, got.Capacity)

	rec = serve(t, env.eventsH.Get, call{method: http.MethodGet, target: "/api/events/nope", user: viewer, path: map[string]string{"id": "nope"}})
	requireProblem(t, rec, http.StatusNotFound, "Event not found")
}

func TestListEvents(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")
	viewer := env.signup(t, "Ada", "ada@example.com", "music", "Poetry")
	env.createEvent(t, host, "Music", nil)
	env.createEvent(t, host, "Sports", nil)
	env.createEvent(t, host, "Music", nil)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "everything", target: "/api/events", want: 3},
		{name: "all category", target: "/api/events?category=all", want: 3},
		{name: "one category", target: "/api/events?category=sports", want: 1},
		{name: "interests only", target: "/api/events?interests_only=true", want: 2},
		{name: "interests off", target: "/api/events?interests_only=false", want: 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, env.eventsH.List, call{method: http.MethodGet, target: tt.target, user: viewer})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			require.Len(t, decode[eventsResponse](t, rec).Events, tt.want)
		})
	}

	rec := serve(t, env.eventsH.List, call{method: http.MethodGet, target: "/api/events?category=Knitting", user: viewer})
	requireProblem(t, rec, http.StatusBadRequest, "")

	rec = serve(t, env.eventsH.List, call{method: http.MethodGet, target: "/api/events?interests_only=maybe", user: viewer})
	requireProblem(t, rec, http.StatusBadRequest, "invalid interests_only: must be true or false")

	uninterested := env.signup(t, "Bob", "bob@example.com")
	rec = serve(t, env.eventsH.List, call{method: http.MethodGet, target: "/api/events?interests_only=true", user: uninterested})
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"events":[]}`, rec.Body.String())

	rec = serve(t, env.eventsH.All, call{method: http.MethodGet, target: "/api/events/all?category=Music", user: uninterested})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[eventsResponse](t, rec).Events, 2)
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")
	env.createEvent(t, host, "Photography", nil)

	rec := serve(t, env.eventsH.Categories, call{method: http.MethodGet, target: "/api/events/categories", user: host})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, events.Categories, decode[categoriesResponse](t, rec).Categories)

	rec = serve(t, env.eventsH.ByCategory, call{method: http.MethodGet, target: "/api/events/category/photography", user: host, path: map[string]string{"name": "photography"}})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[categoryEventsResponse](t, rec)
	require.Len(t, resp.Events, 1)

	rec = serve(t, env.eventsH.ByCategory, call{method: http.MethodGet, target: "/api/events/category/Knitting", user: host, path: map[string]string{"name": "Knitting"}})
	requireProblem(t, rec, http.StatusBadRequest, "")
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")
	guest := env.signup(t, "Ada", "ada@example.com")
	event := env.createEvent(t, host, "Art", intPtr(5))
	_, err := env.events.Join(t.Context(), event.ID, guest.ID)
	require.NoError(t, err)

	path := map[string]string{"id": event.ID}
	target := "/api/events/" + event.ID

	rec := serve(t, env.eventsH.Update, call{method: http.MethodPut, target: target, body: map[string]any{"title": "Hijacked"}, user: guest, path: path})
	requireProblem(t, rec, http.StatusForbidden, "Only the host can edit this event")

	rec = serve(t, env.eventsH.Update, call{method: http.MethodPut, target: target, body: map[string]any{"capacity": 1}, user: host, path: path})
	requireProblem(t, rec, http.StatusConflict, "Capacity cannot be lower than the current number of attendees")

	rec = serve(t, env.eventsH.Update, call{method: http.MethodPut, target: target, body: map[string]any{"capacity": "ten"}, user: host, path: path})
	requireProblem(t, rec, http.StatusBadRequest, "invalid capacity: must be a whole number or null")

	rec = serve(t, env.eventsH.Update, call{method: http.MethodPut, target: target, body: map[string]any{"title": "Watercolor Jam", "capacity": 2}, user: host, path: path})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[eventMessageResponse](t, rec).Event
	require.Equal(t, "Watercolor Jam", updated.Title)
	require.Equal(t, 2, *updated.Capacity)
	require.Equal(t, 2, updated.AttendeesCount)

	rec = serve(t, env.eventsH.Update, call{method: http.MethodPut, target: target, body: `{"capacity": null}`, user: host, path: path})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = decode[eventMessageResponse](t, rec).Event
	require.Nil(t, updated.Capacity)
	require.Equal(t, "Watercolor Jam", updated.Title)
}

func TestParseCapacity(t *testing.T) {
	got, err := parseCapacity(nil)
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = parseCapacity(json.RawMessage(" null "))
	require.NoError(t, err)
	require.Equal(t, &events.CapacityUpdate{Unlimited: true}, got)

	got, err = parseCapacity(json.RawMessage("12"))
	require.NoError(t, err)
	require.Equal(t, &events.CapacityUpdate{Value: 12}, got)

	_, err = parseCapacity(json.RawMessage("1.5"))
	require.Error(t, err)
}

func TestJoinAndLeave(t *testing.T) {
	env := newTestEnv(t)
	host := env.signup(t, "Grace", "grace@example.com")
	ada := env.signup(t, "Ada", "ada@example.com")
	bob := env.signup(t, "Bob", "bob@example.com")
	event := env.createEvent(t, host, "Sports", intPtr(2))

	path := map[string]string{"id": event.ID}
	target := "/api/events/" + event.ID + "/rsvp"

	rec := serve(t, env.eventsH.Join, call{method: http.MethodPost, target: target, user: ada, path: path})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	joined := decode[eventMessageResponse](t, rec)
	require.Equal(t, "Successfully joined event", joined.Message)
	require.Equal(t, 2, joined.Event.AttendeesCount)
	require.True(t, joined.Event.IsAttending)

	rec = serve(t, env.eventsH.Join, call{method: http.MethodPost, target: target, user: ada, path: path})
	requireProblem(t, rec, http.StatusConflict, "You are already attending this event")

	rec = serve(t, env.eventsH.Join, call{method: http.MethodPost, target: target, user: bob, path: path})
	requireProblem(t, rec, http.StatusConflict, "Event is at full capacity")

	rec = serve(t, env.eventsH.Leave, call{method: http.MethodDelete, target: target, user: bob, path: path})
	requireProblem(t, rec, http.StatusBadRequest, "You are not attending this event")

	rec = serve(t, env.eventsH.Leave, call{method: http.MethodDelete, target: target, user: ada, path: path})
	require.Equal(t, http.StatusOK, rec.Code)
	left := decode[eventMessageResponse](t, rec)
	require.Equal(t, 1, left.Event.AttendeesCount)
	require.False(t, left.Event.IsAttending)

	rec = serve(t, env.eventsH.Join, call{method: http.MethodPost, target: target, user: bob, path: path})
	require.Equal(t, http.StatusOK, rec.Code)

	missing := map[string]string{"id": "01HYX3KQW7ERTV9XNBM2P8QJZF"}
	rec = serve(t, env.eventsH.Join, call{method: http.MethodPost, target: "/api/events/x/rsvp", user: ada, path: missing})
	requireProblem(t, rec, http.StatusNotFound, "Event not found")
}
