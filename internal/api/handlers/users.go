package handlers

import (
	"net/http"
	"strconv"

	"github.com/Togather-Foundation/serendipity/internal/api/middleware"
	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
)

// UsersHandler serves the caller's own profile and other users' public
// profiles.
type UsersHandler struct {
	Users  *users.Service
	Events *events.Service
	Env    string
}

func NewUsersHandler(userService *users.Service, eventService *events.Service, env string) *UsersHandler {
	return &UsersHandler{Users: userService, Events: eventService, Env: env}
}

type userResponse struct {
	User userPayload `json:"user"`
}

type userUpdateResponse struct {
	Message string      `json:"message"`
	User    userPayload `json:"user"`
}

type publicUserPayload struct {
	userPayload
	HostingEvents []eventPayload `json:"hosting_events,omitempty"`
}

type publicUserResponse struct {
	User publicUserPayload `json:"user"`
}

type eventsResponse struct {
	Events []eventPayload `json:"events"`
}

func (h *UsersHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	writeJSON(w, http.StatusOK, userResponse{User: newUserPayload(user)})
}

func (h *UsersHandler) UpdateBio(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Bio *string `json:"bio"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	user, err := h.Users.UpdateBio(r.Context(), middleware.CurrentUser(r.Context()).ID, input.Bio)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, userUpdateResponse{Message: "Bio updated successfully", User: newUserPayload(user)})
}

func (h *UsersHandler) UpdateInterests(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Interests []string `json:"interests"`
	}
	if err := decodeJSON(r, &input); err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	user, err := h.Users.UpdateInterests(r.Context(), middleware.CurrentUser(r.Context()).ID, input.Interests)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, userUpdateResponse{Message: "Interests updated successfully", User: newUserPayload(user)})
}

// Get shows another user's profile. With ?full=true the events they host
// are included.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.CurrentUser(r.Context())
	user, err := h.Users.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}

	payload := publicUserPayload{userPayload: newPublicUserPayload(user)}
	if user.ID == viewer.ID {
		payload.userPayload = newUserPayload(user)
	}

	if full, _ := strconv.ParseBool(r.URL.Query().Get("full")); full {
		hosting, err := h.Events.Hosting(r.Context(), user.ID)
		if err != nil {
			writeDomainError(w, r, err, h.Env)
			return
		}
		payload.HostingEvents = newEventPayloads(hosting, viewer.ID)
	}

	writeJSON(w, http.StatusOK, publicUserResponse{User: payload})
}

// Attending lists the events the caller is a member of.
func (h *UsersHandler) Attending(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	list, err := h.Events.Attending(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: newEventPayloads(list, user.ID)})
}

// Hosting lists the events the caller created.
func (h *UsersHandler) Hosting(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	list, err := h.Events.Hosting(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err, h.Env)
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: newEventPayloads(list, user.ID)})
}
