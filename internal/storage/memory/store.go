// Package memory is an in-process Store used for local development and
// tests. Every operation runs under one mutex, so conditional writes are
// atomic in the same way as the database-backed stores.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
)

type Store struct {
	mu      sync.Mutex
	users   map[string]users.User
	byEmail map[string]string
	events  map[string]events.Event
}

func New() *Store {
	return &Store{
		users:   make(map[string]users.User),
		byEmail: make(map[string]string),
		events:  make(map[string]events.Event),
	}
}

func (s *Store) Users() users.Repository   { return (*userRepo)(s) }
func (s *Store) Events() events.Repository { return (*eventRepo)(s) }

func (s *Store) Ping(context.Context) error    { return nil }
func (s *Store) Migrate(context.Context) error { return nil }
func (s *Store) Close(context.Context) error   { return nil }

type userRepo Store

func (r *userRepo) Create(_ context.Context, user *users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return users.ErrEmailTaken
	}
	r.users[user.ID] = cloneUser(*user)
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	r.mu.Lock()
	id, ok := r.byEmail[email]
	r.mu.Unlock()
	if !ok {
		return nil, users.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *userRepo) UpdateBio(_ context.Context, id string, bio string) (*users.User, error) {
	return r.update(id, func(u *users.User) { u.Bio = &bio })
}

func (r *userRepo) UpdateInterests(_ context.Context, id string, interests []string) (*users.User, error) {
	return r.update(id, func(u *users.User) { u.Interests = append([]string{}, interests...) })
}

func (r *userRepo) update(id string, fn func(*users.User)) (*users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	fn(&u)
	r.users[id] = u
	out := cloneUser(u)
	return &out, nil
}

type eventRepo Store

func (r *eventRepo) Create(_ context.Context, event *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[event.ID] = cloneEvent(*event)
	return nil
}

func (r *eventRepo) GetByID(_ context.Context, id string) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, events.ErrNotFound
	}
	out := cloneEvent(e)
	return &out, nil
}

func (r *eventRepo) List(_ context.Context, filter events.Filter) ([]events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]events.Event, 0)
	for _, e := range r.events {
		if matches(&e, filter) {
			out = append(out, cloneEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *eventRepo) AddMember(_ context.Context, eventID, userID string) (*events.Event, error) {
	return r.modify(eventID, func(e *events.Event) bool {
		if e.HasMember(userID) || e.Full() {
			return false
		}
		e.Members = append(e.Members, userID)
		return true
	})
}

func (r *eventRepo) RemoveMember(_ context.Context, eventID, userID string) (*events.Event, error) {
	return r.modify(eventID, func(e *events.Event) bool {
		if !e.HasMember(userID) {
			return false
		}
		kept := e.Members[:0:0]
		for _, m := range e.Members {
			if m != userID {
				kept = append(kept, m)
			}
		}
		e.Members = kept
		return true
	})
}

func (r *eventRepo) Update(_ context.Context, eventID, hostID string, c events.Changes) (*events.Event, error) {
	return r.modify(eventID, func(e *events.Event) bool {
		if e.HostID != hostID {
			return false
		}
		if !c.ExpectedUpdatedAt.IsZero() && !e.UpdatedAt.Equal(c.ExpectedUpdatedAt) {
			return false
		}
		if c.SetCapacity && c.Capacity != nil && *c.Capacity < len(e.Members) {
			return false
		}
		applyChanges(e, c)
		return true
	})
}

// modify runs fn on a copy of the event and stores it only when fn
// reports that its guard held.
func (r *eventRepo) modify(eventID string, fn func(*events.Event) bool) (*events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.events[eventID]
	if !ok {
		return nil, events.ErrConditionNotMet
	}
	e := cloneEvent(stored)
	if !fn(&e) {
		return nil, events.ErrConditionNotMet
	}
	r.events[eventID] = e
	out := cloneEvent(e)
	return &out, nil
}

func matches(e *events.Event, f events.Filter) bool {
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Categories != nil {
		found := false
		for _, c := range f.Categories {
			if e.Category == c {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.HostID != "" && e.HostID != f.HostID {
		return false
	}
	if f.MemberID != "" && !e.HasMember(f.MemberID) {
		return false
	}
	return true
}

func applyChanges(e *events.Event, c events.Changes) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&e.Title, c.Title)
	set(&e.Description, c.Description)
	set(&e.Category, c.Category)
	set(&e.Location, c.Location)
	set(&e.Date, c.Date)
	set(&e.Time, c.Time)
	set(&e.StartTime, c.StartTime)
	set(&e.EndTime, c.EndTime)
	if c.SchoolYears != nil {
		e.SchoolYears = append([]string{}, c.SchoolYears...)
	}
	if c.Genders != nil {
		e.Genders = append([]string{}, c.Genders...)
	}
	if c.ImageURL != nil {
		if *c.ImageURL == "" {
			e.ImageURL = nil
		} else {
			v := *c.ImageURL
			e.ImageURL = &v
		}
	}
	if c.SetCapacity {
		e.Capacity = cloneInt(c.Capacity)
	}
	e.UpdatedAt = c.UpdatedAt
}

func cloneUser(u users.User) users.User {
	u.Interests = append([]string(nil), u.Interests...)
	u.Bio = cloneString(u.Bio)
	u.ProfilePicture = cloneString(u.ProfilePicture)
	return u
}

func cloneEvent(e events.Event) events.Event {
	e.Members = append([]string(nil), e.Members...)
	e.SchoolYears = append([]string(nil), e.SchoolYears...)
	e.Genders = append([]string(nil), e.Genders...)
	e.Capacity = cloneInt(e.Capacity)
	e.School = cloneString(e.School)
	e.ImageURL = cloneString(e.ImageURL)
	return e
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
