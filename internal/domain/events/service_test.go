package events_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/Togather-Foundation/serendipity/internal/domain/ids"
	"github.com/Togather-Foundation/serendipity/internal/storage/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newService(t *testing.T) *events.Service {
	t.Helper()
	return events.NewService(memory.New().Events(), zerolog.Nop())
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

var host = events.Host{ID: "01J0HOST00000000000000000A", Name: "Grace Hopper", School: "Northside High"}

func newUserID(t *testing.T) string {
	t.Helper()
	id, err := ids.NewULID()
	require.NoError(t, err)
	return id
}

func validInput() events.CreateInput {
	return events.CreateInput{
		Title:       "Robotics Night",
		Description: "Build and battle small robots.",
		Category:    "technology",
		Location:    "Room 204",
		Date:        "2026-11-14",
		StartTime:   "18:00",
		EndTime:     "20:30",
	}
}

func createEvent(t *testing.T, svc *events.Service, capacity *int) *events.Event {
	t.Helper()
	in := validInput()
	in.Capacity = capacity
	event, err := svc.Create(context.Background(), host, in)
	require.NoError(t, err)
	return event
}

func TestCreateEnrollsHost(t *testing.T) {
	svc := newService(t)

	event := createEvent(t, svc, intPtr(10))
	require.NoError(t, ids.ValidateULID(event.ID))
	require.Equal(t, "Technology", event.Category)
	require.Equal(t, []string{host.ID}, event.Members)
	require.Equal(t, host.Name, event.HostName)
	require.NotNil(t, event.School)
	require.Equal(t, "Northside High", *event.School)
	require.Equal(t, "18:00 - 20:30", event.Time)
	require.Equal(t, 1, event.AttendeeCount())
}

func TestCreateValidation(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name   string
		mutate func(*events.CreateInput)
		field  string
	}{
		{name: "missing title", mutate: func(in *events.CreateInput) { in.Title = "  " }, field: "title"},
		{name: "unknown category", mutate: func(in *events.CreateInput) { in.Category = "Knitting" }, field: "category"},
		{name: "bad date", mutate: func(in *events.CreateInput) { in.Date = "14/11/2026" }, field: "date"},
		{name: "zero capacity", mutate: func(in *events.CreateInput) { in.Capacity = intPtr(0) }, field: "capacity"},
		{name: "bad start time", mutate: func(in *events.CreateInput) { in.StartTime = "6pm" }, field: "start_time"},
		{name: "end before start", mutate: func(in *events.CreateInput) { in.EndTime = "17:00" }, field: "end_time"},
		{name: "bad image", mutate: func(in *events.CreateInput) { in.ImageURL = "javascript:alert(1)" }, field: "image"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := svc.Create(context.Background(), host, in)
			var verr events.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestConcurrentJoinsRespectCapacity(t *testing.T) {
	svc := newService(t)
	const capacity = 5
	event := createEvent(t, svc, intPtr(capacity))

	const joiners = 20
	var (
		joined atomic.Int32
		full   atomic.Int32
	)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < joiners; i++ {
		userID := fmt.Sprintf("user-%02d", i)
		g.Go(func() error {
			_, err := svc.Join(ctx, event.ID, userID)
			switch {
			case err == nil:
				joined.Add(1)
			case errors.Is(err, events.ErrCapacityExceeded):
				full.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, int32(capacity-1), joined.Load())
	require.Equal(t, int32(joiners-capacity+1), full.Load())

	stored, err := svc.Get(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, stored.Members, capacity)
	require.Equal(t, host.ID, stored.Members[0])
}

func TestConcurrentDuplicateJoin(t *testing.T) {
	svc := newService(t)
	event := createEvent(t, svc, nil)
	userID := newUserID(t)

	var (
		mu      sync.Mutex
		results []error
	)
	var g errgroup.Group
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			_, err := svc.Join(context.Background(), event.ID, userID)
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		require.ErrorIs(t, err, events.ErrAlreadyMember)
	}
	require.Equal(t, 1, succeeded)

	stored, err := svc.Get(context.Background(), event.ID)
	require.NoError(t, err)
	require.Len(t, stored.Members, 2)
}

func TestJoinLeaveJoin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	event := createEvent(t, svc, nil)
	userID := newUserID(t)

	joined, err := svc.Join(ctx, event.ID, userID)
	require.NoError(t, err)
	require.Equal(t, 2, joined.AttendeeCount())

	_, err = svc.Join(ctx, event.ID, userID)
	require.ErrorIs(t, err, events.ErrAlreadyMember)

	left, err := svc.Leave(ctx, event.ID, userID)
	require.NoError(t, err)
	require.Equal(t, 1, left.AttendeeCount())
	require.False(t, left.HasMember(userID))

	rejoined, err := svc.Join(ctx, event.ID, userID)
	require.NoError(t, err)
	require.Equal(t, joined.AttendeeCount(), rejoined.AttendeeCount())
	require.Equal(t, []string{host.ID, userID}, rejoined.Members)
}

func TestCapacityOneEvent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	event := createEvent(t, svc, intPtr(1))

	_, err := svc.Join(ctx, event.ID, newUserID(t))
	require.ErrorIs(t, err, events.ErrCapacityExceeded)

	_, err = svc.Leave(ctx, event.ID, host.ID)
	require.NoError(t, err)

	taker := newUserID(t)
	after, err := svc.Join(ctx, event.ID, taker)
	require.NoError(t, err)
	require.Equal(t, []string{taker}, after.Members)

	_, err = svc.Join(ctx, event.ID, newUserID(t))
	require.ErrorIs(t, err, events.ErrCapacityExceeded)
}

func TestLeaveWithoutJoining(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	event := createEvent(t, svc, intPtr(3))

	_, err := svc.Leave(ctx, event.ID, newUserID(t))
	require.ErrorIs(t, err, events.ErrNotMember)

	stored, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, event.Members, stored.Members)
	require.Equal(t, event.UpdatedAt, stored.UpdatedAt)
}

func TestJoinLeaveUnknownEvent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Join(ctx, "01HYX3KQW7ERTV9XNBM2P8QJZF", "user")
	require.ErrorIs(t, err, events.ErrNotFound)

	_, err = svc.Leave(ctx, "01HYX3KQW7ERTV9XNBM2P8QJZF", "user")
	require.ErrorIs(t, err, events.ErrNotFound)

	_, err = svc.Join(ctx, "not-an-id", "user")
	require.ErrorIs(t, err, events.ErrNotFound)
}

func TestUpdateHostOnly(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	event := createEvent(t, svc, intPtr(4))
	attendee := newUserID(t)
	_, err := svc.Join(ctx, event.ID, attendee)
	require.NoError(t, err)

	_, err = svc.Update(ctx, attendee, event.ID, events.UpdateInput{Title: strPtr("Hijacked")})
	require.ErrorIs(t, err, events.ErrNotHost)

	stored, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, "Robotics Night", stored.Title)

	updated, err := svc.Update(ctx, host.ID, event.ID, events.UpdateInput{
		Title:    strPtr("Robotics Night II"),
		Category: strPtr("science"),
		Capacity: &events.CapacityUpdate{Value: 2},
	})
	require.NoError(t, err)
	require.Equal(t, "Robotics Night II", updated.Title)
	require.Equal(t, "Science", updated.Category)
	require.Equal(t, 2, *updated.Capacity)
	require.Equal(t, []string{host.ID, attendee}, updated.Members)
	require.Equal(t, "Room 204", updated.Location)
}

func TestUpdateCapacityBelowAttendance(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	event := createEvent(t, svc, intPtr(5))
	for i := 0; i < 2; i++ {
		_, err := svc.Join(ctx, event.ID, newUserID(t))
		require.NoError(t, err)
	}

	_, err := svc.Update(ctx, host.ID, event.ID, events.UpdateInput{Capacity: &events.CapacityUpdate{Value: 2}})
	require.ErrorIs(t, err, events.ErrCapacityBelowAttendance)

	_, err = svc.Update(ctx, host.ID, event.ID, events.UpdateInput{Capacity: &events.CapacityUpdate{Value: 0}})
	var verr events.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "capacity", verr.Field)

	unlimited, err := svc.Update(ctx, host.ID, event.ID, events.UpdateInput{Capacity: &events.CapacityUpdate{Unlimited: true}})
	require.NoError(t, err)
	require.Nil(t, unlimited.Capacity)
}

// interleavedRepo runs before once, ahead of the first Update it forwards.
type interleavedRepo struct {
	events.Repository
	once   sync.Once
	before func()
}

func (r *interleavedRepo) Update(ctx context.Context, eventID, hostID string, c events.Changes) (*events.Event, error) {
	r.once.Do(r.before)
	return r.Repository.Update(ctx, eventID, hostID, c)
}

func TestUpdateRevalidatesAfterConcurrentEdit(t *testing.T) {
	ctx := context.Background()
	repo := memory.New().Events()
	other := events.NewService(repo, zerolog.Nop())
	event, err := other.Create(ctx, host, validInput())
	require.NoError(t, err)

	wrapped := &interleavedRepo{Repository: repo}
	wrapped.before = func() {
		_, err := other.Update(ctx, host.ID, event.ID, events.UpdateInput{StartTime: strPtr("19:30")})
		require.NoError(t, err)
	}
	svc := events.NewService(wrapped, zerolog.Nop())

	_, err = svc.Update(ctx, host.ID, event.ID, events.UpdateInput{EndTime: strPtr("19:00")})
	var verr events.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "end_time", verr.Field)

	stored, err := svc.Get(ctx, event.ID)
	require.NoError(t, err)
	require.Equal(t, "19:30", stored.StartTime)
	require.Equal(t, "20:30", stored.EndTime)
}

func TestListFilters(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	music := validInput()
	music.Category = "Music"
	music.Date = "2026-12-01"
	_, err := svc.Create(ctx, host, music)
	require.NoError(t, err)

	tech := createEvent(t, svc, nil)

	all, err := svc.List(ctx, events.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, tech.ID, all[0].ID)

	byCategory, err := svc.ListByCategory(ctx, "MUSIC")
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	require.Equal(t, "Music", byCategory[0].Category)

	_, err = svc.ListByCategory(ctx, "Knitting")
	require.ErrorAs(t, err, new(events.ValidationError))

	everything, err := svc.ListByCategory(ctx, "all")
	require.NoError(t, err)
	require.Len(t, everything, 2)

	interests, err := svc.List(ctx, events.ListOptions{InterestsOnly: true, Interests: []string{"technology", "chess"}})
	require.NoError(t, err)
	require.Len(t, interests, 1)
	require.Equal(t, tech.ID, interests[0].ID)

	none, err := svc.List(ctx, events.ListOptions{InterestsOnly: true})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestHostingAndAttending(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	event := createEvent(t, svc, nil)
	attendee := newUserID(t)

	hosting, err := svc.Hosting(ctx, host.ID)
	require.NoError(t, err)
	require.Len(t, hosting, 1)

	attending, err := svc.Attending(ctx, attendee)
	require.NoError(t, err)
	require.Empty(t, attending)

	_, err = svc.Join(ctx, event.ID, attendee)
	require.NoError(t, err)

	attending, err = svc.Attending(ctx, attendee)
	require.NoError(t, err)
	require.Len(t, attending, 1)

	hosting, err = svc.Hosting(ctx, attendee)
	require.NoError(t, err)
	require.Empty(t, hosting)
}

func TestCategoriesIsCopy(t *testing.T) {
	svc := newService(t)
	cats := svc.Categories()
	require.Contains(t, cats, "Photography")
	cats[0] = "Mutated"
	require.Equal(t, "Sports", svc.Categories()[0])
}
