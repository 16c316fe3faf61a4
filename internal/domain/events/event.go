package events

import (
	"errors"
	"strings"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/validate"
)

var (
	ErrNotFound                = errors.New("event not found")
	ErrNotHost                 = errors.New("only the host can edit this event")
	ErrAlreadyMember           = errors.New("already attending this event")
	ErrNotMember               = errors.New("not attending this event")
	ErrCapacityExceeded        = errors.New("event is at full capacity")
	ErrCapacityBelowAttendance = errors.New("capacity cannot be lower than the current number of attendees")
	ErrContention              = errors.New("event changed concurrently")

	// ErrConditionNotMet is returned by Repository conditional updates when
	// the guard predicate did not match. The service re-reads the event to
	// decide which domain error applies.
	ErrConditionNotMet = errors.New("event update condition not met")
)

type ValidationError = validate.FieldError

// Categories is the fixed set of event categories, in display order.
var Categories = []string{
	"Sports",
	"Music",
	"Art",
	"Technology",
	"Science",
	"Reading",
	"Gaming",
	"Cooking",
	"Travel",
	"Photography",
}

// CanonicalCategory matches name against Categories case-insensitively.
func CanonicalCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range Categories {
		if strings.EqualFold(c, name) {
			return c, true
		}
	}
	return "", false
}

// Event is a gathering with an ordered attendee list. Members[0] is the
// host unless the host has left.
type Event struct {
	ID          string
	Title       string
	Description string
	Category    string
	Location    string
	Date        string
	Time        string
	StartTime   string
	EndTime     string
	Capacity    *int
	HostID      string
	HostName    string
	School      *string
	SchoolYears []string
	Genders     []string
	ImageURL    *string
	Members     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e *Event) AttendeeCount() int {
	return len(e.Members)
}

func (e *Event) HasMember(userID string) bool {
	for _, m := range e.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Full reports whether a new member would exceed the capacity.
func (e *Event) Full() bool {
	return e.Capacity != nil && len(e.Members) >= *e.Capacity
}
