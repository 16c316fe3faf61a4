package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/ids"
	"github.com/Togather-Foundation/serendipity/internal/domain/validate"
	"github.com/Togather-Foundation/serendipity/internal/sanitize"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// maxAttempts bounds how often a conditional write is retried when the
// re-read shows the guard would now hold.
const maxAttempts = 3

// Host is the creating user as seen by the events domain.
type Host struct {
	ID     string
	Name   string
	School string
}

// CreateInput is the event creation payload.
type CreateInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"required,max=5000"`
	Category    string   `json:"category" validate:"required"`
	Location    string   `json:"location" validate:"required,max=300"`
	Date        string   `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string   `json:"time" validate:"max=50"`
	StartTime   string   `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime     string   `json:"end_time" validate:"omitempty,datetime=15:04"`
	Capacity    *int     `json:"capacity" validate:"omitempty,gte=1"`
	SchoolYears Labels   `json:"school_years" validate:"max=20,dive,max=50"`
	Genders     Labels   `json:"genders" validate:"max=10,dive,max=50"`
	ImageURL    string   `json:"image" validate:"omitempty,http_url,max=2048"`
}

// CapacityUpdate sets a new limit, or removes it when Unlimited is true.
type CapacityUpdate struct {
	Unlimited bool
	Value     int
}

// UpdateInput carries the fields a host wants to change. Nil means
// unchanged. Membership and host cannot be changed.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Location    *string
	Date        *string
	Time        *string
	StartTime   *string
	EndTime     *string
	Capacity    *CapacityUpdate
	SchoolYears []string
	Genders     []string
	ImageURL    *string
}

// ListOptions selects events for the feed. When InterestsOnly is set only
// events whose category matches one of Interests are returned.
type ListOptions struct {
	Category      string
	InterestsOnly bool
	Interests     []string
}

// Service implements event creation, discovery and the RSVP state machine.
type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validate.New(),
		now:      time.Now,
		logger:   logger.With().Str("component", "events").Logger(),
	}
}

// Create stores a new event with the host as its first member.
func (s *Service) Create(ctx context.Context, host Host, in CreateInput) (*Event, error) {
	if host.ID == "" {
		return nil, errors.New("create event: host id required")
	}
	in = cleanCreateInput(in)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	now := s.now().UTC()
	event := &Event{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		Date:        in.Date,
		Time:        displayTime(in.Time, in.StartTime, in.EndTime),
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		Capacity:    in.Capacity,
		HostID:      host.ID,
		HostName:    host.Name,
		SchoolYears: in.SchoolYears,
		Genders:     in.Genders,
		Members:     []string{host.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if school := strings.TrimSpace(host.School); school != "" {
		event.School = &school
	}
	if in.ImageURL != "" {
		event.ImageURL = &in.ImageURL
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Info().Str("event_id", event.ID).Str("host_id", host.ID).Msg("event created")
	return event, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Event, error) {
	id, err := ids.Normalize(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// Categories returns the fixed category list.
func (s *Service) Categories() []string {
	out := make([]string, len(Categories))
	copy(out, Categories)
	return out
}

func (s *Service) List(ctx context.Context, opts ListOptions) ([]Event, error) {
	filter := Filter{}
	if c := strings.TrimSpace(opts.Category); c != "" && !strings.EqualFold(c, "all") {
		canonical, ok := CanonicalCategory(c)
		if !ok {
			return nil, ValidationError{Field: "category", Message: "must be one of: " + strings.Join(Categories, ", ")}
		}
		filter.Category = canonical
	}
	if opts.InterestsOnly {
		filter.Categories = interestCategories(opts.Interests)
	}
	return s.repo.List(ctx, filter)
}

func (s *Service) ListByCategory(ctx context.Context, category string) ([]Event, error) {
	return s.List(ctx, ListOptions{Category: category})
}

// Hosting lists events created by userID.
func (s *Service) Hosting(ctx context.Context, userID string) ([]Event, error) {
	return s.repo.List(ctx, Filter{HostID: userID})
}

// Attending lists events userID is a member of, hosted ones included.
func (s *Service) Attending(ctx context.Context, userID string) ([]Event, error) {
	return s.repo.List(ctx, Filter{MemberID: userID})
}

// Join adds userID to the event's members.
func (s *Service) Join(ctx context.Context, eventID, userID string) (*Event, error) {
	eventID, err := ids.Normalize(eventID)
	if err != nil {
		return nil, ErrNotFound
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		event, err := s.repo.AddMember(ctx, eventID, userID)
		if err == nil {
			s.logger.Debug().Str("event_id", eventID).Str("user_id", userID).Msg("joined event")
			return event, nil
		}
		if !errors.Is(err, ErrConditionNotMet) {
			return nil, fmt.Errorf("join event: %w", err)
		}

		current, err := s.repo.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if current.HasMember(userID) {
			return nil, ErrAlreadyMember
		}
		if current.Full() {
			return nil, ErrCapacityExceeded
		}
	}
	s.logger.Warn().Str("event_id", eventID).Int("attempts", maxAttempts).Msg("join contention")
	return nil, ErrContention
}

// Leave removes userID from the event's members.
func (s *Service) Leave(ctx context.Context, eventID, userID string) (*Event, error) {
	eventID, err := ids.Normalize(eventID)
	if err != nil {
		return nil, ErrNotFound
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		event, err := s.repo.RemoveMember(ctx, eventID, userID)
		if err == nil {
			s.logger.Debug().Str("event_id", eventID).Str("user_id", userID).Msg("left event")
			return event, nil
		}
		if !errors.Is(err, ErrConditionNotMet) {
			return nil, fmt.Errorf("leave event: %w", err)
		}

		current, err := s.repo.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if !current.HasMember(userID) {
			return nil, ErrNotMember
		}
	}
	return nil, ErrContention
}

// Update applies a host's edit. The host check and the capacity check are
// repeated inside the store's conditional write, which also fails when
// another edit landed after the event was read and validated.
func (s *Service) Update(ctx context.Context, requesterID, eventID string, in UpdateInput) (*Event, error) {
	eventID, err := ids.Normalize(eventID)
	if err != nil {
		return nil, ErrNotFound
	}
	in = cleanUpdateInput(in)

	for attempt := 0; attempt < maxAttempts; attempt++ {
		current, err := s.repo.GetByID(ctx, eventID)
		if err != nil {
			return nil, err
		}
		if current.HostID != requesterID {
			return nil, ErrNotHost
		}

		merged := mergeInput(current, in)
		if err := s.validateInput(merged); err != nil {
			return nil, err
		}
		if merged.Capacity != nil && *merged.Capacity < current.AttendeeCount() {
			return nil, ErrCapacityBelowAttendance
		}

		changes := buildChanges(in, merged, s.now().UTC())
		changes.ExpectedUpdatedAt = current.UpdatedAt
		updated, err := s.repo.Update(ctx, eventID, requesterID, changes)
		if err == nil {
			s.logger.Info().Str("event_id", eventID).Msg("event updated")
			return updated, nil
		}
		if !errors.Is(err, ErrConditionNotMet) {
			return nil, fmt.Errorf("update event: %w", err)
		}
	}
	return nil, ErrContention
}

func (s *Service) validateInput(in CreateInput) error {
	if err := validate.Struct(s.validate, in); err != nil {
		return err
	}
	if _, ok := CanonicalCategory(in.Category); !ok {
		return ValidationError{Field: "category", Message: "must be one of: " + strings.Join(Categories, ", ")}
	}
	if in.StartTime != "" && in.EndTime != "" && in.EndTime < in.StartTime {
		return ValidationError{Field: "end_time", Message: "must not be before start_time"}
	}
	return nil
}

func cleanCreateInput(in CreateInput) CreateInput {
	in.Title = sanitize.Text(in.Title)
	in.Description = sanitize.Text(in.Description)
	in.Location = sanitize.Text(in.Location)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = sanitize.Text(in.Time)
	in.StartTime = strings.TrimSpace(in.StartTime)
	in.EndTime = strings.TrimSpace(in.EndTime)
	in.SchoolYears = sanitize.Labels(in.SchoolYears)
	in.Genders = sanitize.Labels(in.Genders)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if c, ok := CanonicalCategory(in.Category); ok {
		in.Category = c
	}
	return in
}

func cleanUpdateInput(in UpdateInput) UpdateInput {
	text := func(p *string, clean func(string) string) *string {
		if p == nil {
			return nil
		}
		v := clean(*p)
		return &v
	}
	in.Title = text(in.Title, sanitize.Text)
	in.Description = text(in.Description, sanitize.Text)
	in.Location = text(in.Location, sanitize.Text)
	in.Date = text(in.Date, strings.TrimSpace)
	in.Time = text(in.Time, sanitize.Text)
	in.StartTime = text(in.StartTime, strings.TrimSpace)
	in.EndTime = text(in.EndTime, strings.TrimSpace)
	in.ImageURL = text(in.ImageURL, strings.TrimSpace)
	in.Category = text(in.Category, func(v string) string {
		if c, ok := CanonicalCategory(v); ok {
			return c
		}
		return v
	})
	if in.SchoolYears != nil {
		in.SchoolYears = sanitize.Labels(in.SchoolYears)
	}
	if in.Genders != nil {
		in.Genders = sanitize.Labels(in.Genders)
	}
	return in
}

// mergeInput overlays in onto the stored event so the result can be
// validated with the creation rules.
func mergeInput(current *Event, in UpdateInput) CreateInput {
	merged := CreateInput{
		Title:       current.Title,
		Description: current.Description,
		Category:    current.Category,
		Location:    current.Location,
		Date:        current.Date,
		Time:        current.Time,
		StartTime:   current.StartTime,
		EndTime:     current.EndTime,
		Capacity:    current.Capacity,
		SchoolYears: current.SchoolYears,
		Genders:     current.Genders,
	}
	if current.ImageURL != nil {
		merged.ImageURL = *current.ImageURL
	}

	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&merged.Title, in.Title)
	set(&merged.Description, in.Description)
	set(&merged.Category, in.Category)
	set(&merged.Location, in.Location)
	set(&merged.Date, in.Date)
	set(&merged.Time, in.Time)
	set(&merged.StartTime, in.StartTime)
	set(&merged.EndTime, in.EndTime)
	set(&merged.ImageURL, in.ImageURL)
	if in.SchoolYears != nil {
		merged.SchoolYears = in.SchoolYears
	}
	if in.Genders != nil {
		merged.Genders = in.Genders
	}
	if in.Capacity != nil {
		if in.Capacity.Unlimited {
			merged.Capacity = nil
		} else {
			v := in.Capacity.Value
			merged.Capacity = &v
		}
	}
	return merged
}

func buildChanges(in UpdateInput, merged CreateInput, now time.Time) Changes {
	changes := Changes{
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Location:    in.Location,
		Date:        in.Date,
		Time:        in.Time,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		SchoolYears: in.SchoolYears,
		Genders:     in.Genders,
		ImageURL:    in.ImageURL,
		UpdatedAt:   now,
	}
	if in.Capacity != nil {
		changes.SetCapacity = true
		changes.Capacity = merged.Capacity
	}
	return changes
}

// interestCategories maps free-form interests onto known categories. The
// result is never nil so an empty interest set filters everything out.
func interestCategories(interests []string) []string {
	out := make([]string, 0, len(interests))
	seen := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		c, ok := CanonicalCategory(interest)
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

func displayTime(display, start, end string) string {
	if display != "" {
		return display
	}
	switch {
	case start != "" && end != "":
		return start + " - " + end
	default:
		return start
	}
}
