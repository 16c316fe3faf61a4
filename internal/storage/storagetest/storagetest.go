// Package storagetest holds behaviour tests shared by every storage.Store
// implementation.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/ids"
	"github.com/Togather-Foundation/serendipity/internal/domain/users"
	"github.com/Togather-Foundation/serendipity/internal/storage"
	"github.com/stretchr/testify/require"
)

// Run exercises store against the repository contracts. newStore must
// return an empty, migrated store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("UserCreateAndLookup", func(t *testing.T) { testUserCreateAndLookup(t, newStore(t)) })
	t.Run("UserDuplicateEmail", func(t *testing.T) { testUserDuplicateEmail(t, newStore(t)) })
	t.Run("UserUpdates", func(t *testing.T) { testUserUpdates(t, newStore(t)) })
	t.Run("EventRoundTrip", func(t *testing.T) { testEventRoundTrip(t, newStore(t)) })
	t.Run("EventMembership", func(t *testing.T) { testEventMembership(t, newStore(t)) })
	t.Run("EventConcurrentJoins", func(t *testing.T) { testEventConcurrentJoins(t, newStore(t)) })
	t.Run("EventUpdateGuards", func(t *testing.T) { testEventUpdateGuards(t, newStore(t)) })
	t.Run("EventList", func(t *testing.T) { testEventList(t, newStore(t)) })
	t.Run("Ping", func(t *testing.T) { require.NoError(t, newStore(t).Ping(context.Background())) })
}

func newID(t *testing.T) string {
	t.Helper()
	id, err := ids.NewULID()
	require.NoError(t, err)
	return id
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func newUser(t *testing.T, email string) *users.User {
	t.Helper()
	return &users.User{
		ID:           newID(t),
		FirstName:    "Test",
		LastName:     "User",
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
		School:       "Northside High",
		Interests:    []string{"Music"},
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func newEvent(t *testing.T, hostID, category, date string, capacity *int) *events.Event {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &events.Event{
		ID:          newID(t),
		Title:       "Event " + category,
		Description: "Description",
		Category:    category,
		Location:    "Gym",
		Date:        date,
		Time:        "18:00",
		StartTime:   "18:00",
		Capacity:    capacity,
		HostID:      hostID,
		HostName:    "Host",
		School:      strPtr("Northside High"),
		SchoolYears: []string{"11", "12"},
		Genders:     []string{},
		Members:     []string{hostID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func testUserCreateAndLookup(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Users()
	user := newUser(t, "ada@example.com")
	require.NoError(t, repo.Create(ctx, user))

	byID, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.Equal(t, user.Email, byID.Email)
	require.Equal(t, user.PasswordHash, byID.PasswordHash)
	require.Equal(t, []string{"Music"}, byID.Interests)
	require.Nil(t, byID.Bio)
	require.True(t, user.CreatedAt.Equal(byID.CreatedAt))

	byEmail, err := repo.GetByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, newID(t))
	require.ErrorIs(t, err, users.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, users.ErrNotFound)
}

func testUserDuplicateEmail(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Users()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		taken   int
		other   []error
	)
	candidates := make([]*users.User, 6)
	for i := range candidates {
		candidates[i] = newUser(t, "dup@example.com")
	}
	for _, candidate := range candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Create(ctx, candidate)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, users.ErrEmailTaken):
				taken++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.Equal(t, 1, created)
	require.Equal(t, 5, taken)
}

func testUserUpdates(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Users()
	user := newUser(t, "bio@example.com")
	require.NoError(t, repo.Create(ctx, user))

	updated, err := repo.UpdateBio(ctx, user.ID, "Hello there")
	require.NoError(t, err)
	require.NotNil(t, updated.Bio)
	require.Equal(t, "Hello there", *updated.Bio)
	require.Equal(t, []string{"Music"}, updated.Interests)

	updated, err = repo.UpdateInterests(ctx, user.ID, []string{"Art", "Gaming"})
	require.NoError(t, err)
	require.Equal(t, []string{"Art", "Gaming"}, updated.Interests)
	require.Equal(t, "Hello there", *updated.Bio)

	_, err = repo.UpdateBio(ctx, newID(t), "x")
	require.ErrorIs(t, err, users.ErrNotFound)
	_, err = repo.UpdateInterests(ctx, newID(t), []string{})
	require.ErrorIs(t, err, users.ErrNotFound)
}

func testEventRoundTrip(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Events()
	event := newEvent(t, newID(t), "Music", "2026-11-01", intPtr(10))
	require.NoError(t, repo.Create(ctx, event))

	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, event.Title, got.Title)
	require.Equal(t, event.Members, got.Members)
	require.Equal(t, 10, *got.Capacity)
	require.Equal(t, "Northside High", *got.School)
	require.Equal(t, []string{"11", "12"}, got.SchoolYears)
	require.Nil(t, got.ImageURL)
	require.True(t, event.CreatedAt.Equal(got.CreatedAt))

	_, err = repo.GetByID(ctx, newID(t))
	require.ErrorIs(t, err, events.ErrNotFound)
}

func testEventMembership(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Events()
	hostID := newID(t)
	event := newEvent(t, hostID, "Sports", "2026-11-01", intPtr(2))
	require.NoError(t, repo.Create(ctx, event))
	userID := newID(t)

	joined, err := repo.AddMember(ctx, event.ID, userID)
	require.NoError(t, err)
	require.Equal(t, []string{hostID, userID}, joined.Members)

	_, err = repo.AddMember(ctx, event.ID, userID)
	require.ErrorIs(t, err, events.ErrConditionNotMet)

	_, err = repo.AddMember(ctx, event.ID, newID(t))
	require.ErrorIs(t, err, events.ErrConditionNotMet, "event is full")

	left, err := repo.RemoveMember(ctx, event.ID, userID)
	require.NoError(t, err)
	require.Equal(t, []string{hostID}, left.Members)

	_, err = repo.RemoveMember(ctx, event.ID, userID)
	require.ErrorIs(t, err, events.ErrConditionNotMet)

	_, err = repo.AddMember(ctx, newID(t), userID)
	require.ErrorIs(t, err, events.ErrConditionNotMet)

	unlimited := newEvent(t, hostID, "Sports", "2026-11-02", nil)
	require.NoError(t, repo.Create(ctx, unlimited))
	for i := 0; i < 5; i++ {
		_, err := repo.AddMember(ctx, unlimited.ID, newID(t))
		require.NoError(t, err)
	}
	got, err := repo.GetByID(ctx, unlimited.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, 6)
}

func testEventConcurrentJoins(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Events()
	const capacity = 4
	event := newEvent(t, newID(t), "Gaming", "2026-11-01", intPtr(capacity))
	require.NoError(t, repo.Create(ctx, event))

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		joined int
		errs   []error
	)
	for i := 0; i < 12; i++ {
		userID := fmt.Sprintf("%s-%02d", event.ID, i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddMember(ctx, event.ID, userID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				joined++
				return
			}
			if !errors.Is(err, events.ErrConditionNotMet) {
				errs = append(errs, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, capacity-1, joined)
	got, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, got.Members, capacity)
}

func testEventUpdateGuards(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Events()
	hostID := newID(t)
	event := newEvent(t, hostID, "Art", "2026-11-01", intPtr(5))
	require.NoError(t, repo.Create(ctx, event))
	for i := 0; i < 2; i++ {
		_, err := repo.AddMember(ctx, event.ID, newID(t))
		require.NoError(t, err)
	}
	later := event.UpdatedAt.Add(time.Minute)

	_, err := repo.Update(ctx, event.ID, newID(t), events.Changes{Title: strPtr("Nope"), UpdatedAt: later})
	require.ErrorIs(t, err, events.ErrConditionNotMet)

	_, err = repo.Update(ctx, event.ID, hostID, events.Changes{SetCapacity: true, Capacity: intPtr(2), UpdatedAt: later})
	require.ErrorIs(t, err, events.ErrConditionNotMet)

	updated, err := repo.Update(ctx, event.ID, hostID, events.Changes{
		Title:       strPtr("Painting"),
		ImageURL:    strPtr("https://example.com/p.png"),
		SetCapacity: true,
		Capacity:    intPtr(3),
		UpdatedAt:   later,
	})
	require.NoError(t, err)
	require.Equal(t, "Painting", updated.Title)
	require.Equal(t, "Gym", updated.Location)
	require.Equal(t, 3, *updated.Capacity)
	require.Equal(t, "https://example.com/p.png", *updated.ImageURL)
	require.Len(t, updated.Members, 3)
	require.True(t, later.Equal(updated.UpdatedAt))

	cleared, err := repo.Update(ctx, event.ID, hostID, events.Changes{
		ImageURL:    strPtr(""),
		SetCapacity: true,
		UpdatedAt:   later,
	})
	require.NoError(t, err)
	require.Nil(t, cleared.Capacity)
	require.Nil(t, cleared.ImageURL)

	stored, err := repo.GetByID(ctx, event.ID)
	require.NoError(t, err)
	next := later.Add(time.Minute)

	_, err = repo.Update(ctx, event.ID, hostID, events.Changes{
		EndTime:           strPtr("20:00"),
		UpdatedAt:         next,
		ExpectedUpdatedAt: event.UpdatedAt,
	})
	require.ErrorIs(t, err, events.ErrConditionNotMet, "stale version must not be written")

	versioned, err := repo.Update(ctx, event.ID, hostID, events.Changes{
		EndTime:           strPtr("20:00"),
		UpdatedAt:         next,
		ExpectedUpdatedAt: stored.UpdatedAt,
	})
	require.NoError(t, err)
	require.Equal(t, "20:00", versioned.EndTime)
	require.True(t, next.Equal(versioned.UpdatedAt))
}

func testEventList(t *testing.T, store storage.Store) {
	ctx := context.Background()
	repo := store.Events()
	hostA, hostB, member := newID(t), newID(t), newID(t)

	late := newEvent(t, hostA, "Music", "2026-12-24", nil)
	early := newEvent(t, hostB, "Music", "2026-10-31", nil)
	art := newEvent(t, hostA, "Art", "2026-11-15", nil)
	for _, e := range []*events.Event{late, early, art} {
		require.NoError(t, repo.Create(ctx, e))
	}
	_, err := repo.AddMember(ctx, art.ID, member)
	require.NoError(t, err)

	idsOf := func(list []events.Event) []string {
		out := make([]string, 0, len(list))
		for _, e := range list {
			out = append(out, e.ID)
		}
		return out
	}

	all, err := repo.List(ctx, events.Filter{})
	require.NoError(t, err)
	require.Equal(t, []string{early.ID, art.ID, late.ID}, idsOf(all))

	music, err := repo.List(ctx, events.Filter{Category: "Music"})
	require.NoError(t, err)
	require.Equal(t, []string{early.ID, late.ID}, idsOf(music))

	in, err := repo.List(ctx, events.Filter{Categories: []string{"Art", "Cooking"}})
	require.NoError(t, err)
	require.Equal(t, []string{art.ID}, idsOf(in))

	none, err := repo.List(ctx, events.Filter{Categories: []string{}})
	require.NoError(t, err)
	require.Empty(t, none)

	both, err := repo.List(ctx, events.Filter{Category: "Music", Categories: []string{"Art"}})
	require.NoError(t, err)
	require.Empty(t, both)

	hosted, err := repo.List(ctx, events.Filter{HostID: hostA})
	require.NoError(t, err)
	require.Equal(t, []string{art.ID, late.ID}, idsOf(hosted))

	attending, err := repo.List(ctx, events.Filter{MemberID: member})
	require.NoError(t, err)
	require.Equal(t, []string{art.ID}, idsOf(attending))
}
