package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/serendipity/internal/api/middleware"
	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/Togather-Foundation/serendipity/internal/metrics"
)

type EventsHandler struct {
	Service *events.Service
	Env     string
}

func NewEventsHandler(service *events.Service, env string) *EventsHandler {
	return &EventsHandler{Service: service, Env: env}
}

type eventResponse struct {
	Event eventPayload `json:"event"`
}

type eventMessageResponse struct {
	Message string       `json:"message"`
	Event   eventPayload `json:"event"`
}

type categoriesResponse struct {
	Categories []string `json:"categories"`
}

type categoryEventsResponse struct {
	Category string         `json:"category"`
	Events   []eventPayload `json:"events"`
}

// List is the feed: ?category= narrows to one category ("all" means no
// filter) and ?interests_only=true keeps categories matching the caller's
// interests.
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	query := r.URL.Query()

	opts := events.ListOptions{Category: query.Get("category")}
	if raw := query.Get("interests_only"); raw != "" {
		interestsOnly, err := strconv.ParseBool(raw)
		if err != nil {
			writeDomainError(w, r, events.ValidationError{Field: "interests_only", Message: "must be true or false"}, h.Env)
			return
		}
		opts.InterestsOnly = interestsOnly
		opts.Interests = user.Interests
	}

	list, err := h.Service.List(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: newEventPayloads(list, user.ID)})
}

// All ignores interests and only honours ?category=.
func (h *EventsHandler) All(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	list, err := h.Service.List(r.Context(), events.ListOptions{Category: r.URL.Query().Get("category")})
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: newEventPayloads(list, user.ID)})
}

func (h *EventsHandler) ByCategory(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	category := pathParam(r, "name")
	list, err := h.Service.ListByCategory(r.Context(), category)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, categoryEventsResponse{Category: category, Events: newEventPayloads(list, user.ID)})
}

func (h *EventsHandler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{Categories: h.Service.Categories()})
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var input events.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Create(r.Context(), hostOf(user), input)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	metrics.EventsCreated.Inc()
	writeJSON(w, http.StatusCreated, eventMessageResponse{Message: "Event created successfully", Event: newEventPayload(event, user.ID)})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	event, err := h.Service.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventResponse{Event: newEventPayload(event, user.ID)})
}

// updateRequest mirrors events.UpdateInput. Capacity is kept raw so that an
// explicit null (remove the limit) differs from an absent field.
type updateRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Category    *string         `json:"category"`
	Location    *string         `json:"location"`
	Date        *string         `json:"date"`
	Time        *string         `json:"time"`
	StartTime   *string         `json:"start_time"`
	EndTime     *string         `json:"end_time"`
	Capacity    json.RawMessage `json:"capacity"`
	SchoolYears events.Labels   `json:"school_years"`
	Genders     events.Labels   `json:"genders"`
	Image       *string         `json:"image"`
}

func (req updateRequest) toInput() (events.UpdateInput, error) {
	in := events.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
		Date:        req.Date,
		Time:        req.Time,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		SchoolYears: req.SchoolYears,
		Genders:     req.Genders,
		ImageURL:    req.Image,
	}
	capacity, err := parseCapacity(req.Capacity)
	if err != nil {
		return events.UpdateInput{}, err
	}
	in.Capacity = capacity
	return in, nil
}

// parseCapacity returns nil for an absent field, Unlimited for null, and
// the value for a whole number.
func parseCapacity(raw json.RawMessage) (*events.CapacityUpdate, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	if bytes.Equal(raw, []byte("null")) {
		return &events.CapacityUpdate{Unlimited: true}, nil
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, events.ValidationError{Field: "capacity", Message: "must be a whole number or null"}
	}
	return &events.CapacityUpdate{Value: value}, nil
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var req updateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	input, err := req.toInput()
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	event, err := h.Service.Update(r.Context(), user.ID, pathParam(r, "id"), input)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventMessageResponse{Message: "Event updated successfully", Event: newEventPayload(event, user.ID)})
}

// Join RSVPs the caller to the event.
func (h *EventsHandler) Join(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	event, err := h.Service.Join(r.Context(), pathParam(r, "id"), user.ID)
	metrics.RSVPOperations.WithLabelValues("join", rsvpResult(err)).Inc()
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventMessageResponse{Message: "Successfully joined event", Event: newEventPayload(event, user.ID)})
}

// Leave withdraws the caller's RSVP.
func (h *EventsHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	event, err := h.Service.Leave(r.Context(), pathParam(r, "id"), user.ID)
	metrics.RSVPOperations.WithLabelValues("leave", rsvpResult(err)).Inc()
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventMessageResponse{Message: "Successfully left event", Event: newEventPayload(event, user.ID)})
}

func hostOf(user *users.User) events.Host {
	return events.Host{ID: user.ID, Name: user.Name(), School: user.School}
}

func rsvpResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, events.ErrAlreadyMember):
		return "already_member"
	case errors.Is(err, events.ErrNotMember):
		return "not_member"
	case errors.Is(err, events.ErrCapacityExceeded):
		return "full"
	case errors.Is(err, events.ErrNotFound):
		return "not_found"
	case errors.Is(err, events.ErrContention):
		return "contention"
	default:
		return "error"
	}
}
