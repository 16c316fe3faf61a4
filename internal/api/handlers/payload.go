package handlers

import (
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
)

// userPayload is the account as its owner sees it.
type userPayload struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Email          string    `json:"email,omitempty"`
	School         string    `json:"school"`
	GradeLevel     string    `json:"grade_level"`
	Gender         string    `json:"gender"`
	Interests      []string  `json:"interests"`
	Bio            *string   `json:"bio"`
	ProfilePicture *string   `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
}

func newUserPayload(u *users.User) userPayload {
	interests := u.Interests
	if interests == nil {
		interests = []string{}
	}
	return userPayload{
		ID:             u.ID,
		Name:           u.Name(),
		FirstName:      u.FirstName,
		LastName:       u.LastName,
		Email:          u.Email,
		School:         u.School,
		GradeLevel:     u.GradeLevel,
		Gender:         u.Gender,
		Interests:      interests,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

// newPublicUserPayload hides the email address from other users.
func newPublicUserPayload(u *users.User) userPayload {
	p := newUserPayload(u)
	p.Email = ""
	return p
}

type eventPayload struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Category       string    `json:"category"`
	Location       string    `json:"location"`
	Date           string    `json:"date"`
	Time           string    `json:"time"`
	StartTime      string    `json:"start_time,omitempty"`
	EndTime        string    `json:"end_time,omitempty"`
	Capacity       *int      `json:"capacity"`
	HostID         string    `json:"host_id"`
	Host           string    `json:"host"`
	School         *string   `json:"school"`
	SchoolYears    []string  `json:"school_years"`
	Genders        []string  `json:"genders"`
	Image          *string   `json:"image"`
	Members        []string  `json:"members"`
	AttendeesCount int       `json:"attendees_count"`
	IsAttending    bool      `json:"is_attending"`
	IsHost         bool      `json:"is_host"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// newEventPayload renders e from viewerID's point of view.
func newEventPayload(e *events.Event, viewerID string) eventPayload {
	return eventPayload{
		ID:             e.ID,
		Title:          e.Title,
		Description:    e.Description,
		Category:       e.Category,
		Location:       e.Location,
		Date:           e.Date,
		Time:           e.Time,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Capacity:       e.Capacity,
		HostID:         e.HostID,
		Host:           e.HostName,
		School:         e.School,
		SchoolYears:    nonNil(e.SchoolYears),
		Genders:        nonNil(e.Genders),
		Image:          e.ImageURL,
		Members:        nonNil(e.Members),
		AttendeesCount: e.AttendeeCount(),
		IsAttending:    e.HasMember(viewerID),
		IsHost:         e.HostID == viewerID,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func newEventPayloads(list []events.Event, viewerID string) []eventPayload {
	out := make([]eventPayload, 0, len(list))
	for i := range list {
		out = append(out, newEventPayload(&list[i], viewerID))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
