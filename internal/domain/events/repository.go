package events

import (
	"context"
	"time"
)

// Filter narrows List. Empty fields do not filter. A non-nil empty
// Categories slice matches nothing.
type Filter struct {
	Category   string
	Categories []string
	HostID     string
	MemberID   string
}

// Changes holds the fields an update sets. Nil fields are left unchanged.
// When SetCapacity is true Capacity replaces the stored value, nil meaning
// unlimited. A non-zero ExpectedUpdatedAt must equal the stored updated_at
// for the write to apply, so an edit validated against one version of the
// event is never stored over a newer one.
type Changes struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	Date        *string
	Time        *string
	StartTime   *string
	EndTime     *string
	SchoolYears []string
	Genders     []string
	ImageURL    *string
	SetCapacity bool
	Capacity    *int
	UpdatedAt   time.Time

	ExpectedUpdatedAt time.Time
}

// Repository persists events. AddMember, RemoveMember and Update are single
// atomic conditional writes that return ErrConditionNotMet when their guard
// does not hold, including when the event does not exist.
type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	// List returns events ordered by date, then creation.
	List(ctx context.Context, filter Filter) ([]Event, error)

	// AddMember appends userID when it is not yet a member and the event
	// has room.
	AddMember(ctx context.Context, eventID, userID string) (*Event, error)
	// RemoveMember removes userID when it is a member.
	RemoveMember(ctx context.Context, eventID, userID string) (*Event, error)
	// Update applies changes when hostID is the event host, a new capacity,
	// if any, is not below the member count and the event is unchanged
	// since changes.ExpectedUpdatedAt.
	Update(ctx context.Context, eventID, hostID string, changes Changes) (*Event, error)
}
