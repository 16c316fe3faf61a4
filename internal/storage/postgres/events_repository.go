package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ events.Repository = (*EventRepository)(nil)

const eventColumns = `id, title, description, category, location, event_date, time_label, start_time,
       end_time, capacity, host_id, host_name, school, school_years, genders, image_url,
       members, created_at, updated_at`

type EventRepository struct {
	pool *pgxpool.Pool
}

func (r *EventRepository) Create(ctx context.Context, e *events.Event) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO events (id, title, description, category, location, event_date, time_label, start_time,
                    end_time, capacity, host_id, host_name, school, school_years, genders, image_url,
                    members, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		e.ID, e.Title, e.Description, e.Category, e.Location, e.Date, e.Time, e.StartTime,
		e.EndTime, e.Capacity, e.HostID, e.HostName, e.School, nonNil(e.SchoolYears), nonNil(e.Genders), e.ImageURL,
		nonNil(e.Members), e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	event, err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (r *EventRepository) List(ctx context.Context, filter events.Filter) ([]events.Event, error) {
	var categories any
	if filter.Categories != nil {
		categories = filter.Categories
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+eventColumns+`
  FROM events
 WHERE ($1::text = '' OR category = $1::text)
   AND ($2::text[] IS NULL OR category = ANY($2::text[]))
   AND ($3::text = '' OR host_id = $3::text)
   AND ($4::text = '' OR members @> ARRAY[$4::text])
 ORDER BY event_date, id`,
		filter.Category, categories, filter.HostID, filter.MemberID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	out := make([]events.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, *event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// AddMember appends userID in one UPDATE whose WHERE clause carries the
// membership and capacity guards. Concurrent updates of the same row
// re-check the guard after acquiring the row lock.
func (r *EventRepository) AddMember(ctx context.Context, eventID, userID string) (*events.Event, error) {
	return r.conditional(r.pool.QueryRow(ctx, `
UPDATE events
   SET members = array_append(members, $2::text)
 WHERE id = $1
   AND NOT ($2::text = ANY(members))
   AND (capacity IS NULL OR cardinality(members) < capacity)
RETURNING `+eventColumns, eventID, userID))
}

func (r *EventRepository) RemoveMember(ctx context.Context, eventID, userID string) (*events.Event, error) {
	return r.conditional(r.pool.QueryRow(ctx, `
UPDATE events
   SET members = array_remove(members, $2::text)
 WHERE id = $1
   AND $2::text = ANY(members)
RETURNING `+eventColumns, eventID, userID))
}

func (r *EventRepository) Update(ctx context.Context, eventID, hostID string, c events.Changes) (*events.Event, error) {
	args := []any{eventID, hostID, c.UpdatedAt}
	sets := []string{"updated_at = $3"}
	add := func(column string, value any) int {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
		return len(args)
	}
	str := func(column string, value *string) {
		if value != nil {
			add(column, *value)
		}
	}
	str("title", c.Title)
	str("description", c.Description)
	str("category", c.Category)
	str("location", c.Location)
	str("event_date", c.Date)
	str("time_label", c.Time)
	str("start_time", c.StartTime)
	str("end_time", c.EndTime)
	if c.SchoolYears != nil {
		add("school_years", c.SchoolYears)
	}
	if c.Genders != nil {
		add("genders", c.Genders)
	}
	if c.ImageURL != nil {
		var image *string
		if *c.ImageURL != "" {
			image = c.ImageURL
		}
		add("image_url", image)
	}

	where := "id = $1 AND host_id = $2"
	if !c.ExpectedUpdatedAt.IsZero() {
		args = append(args, c.ExpectedUpdatedAt)
		where += fmt.Sprintf(" AND updated_at = $%d", len(args))
	}
	if c.SetCapacity {
		idx := add("capacity", c.Capacity)
		if c.Capacity != nil {
			where += fmt.Sprintf(" AND cardinality(members) <= $%d::integer", idx)
		}
	}

	query := fmt.Sprintf("UPDATE events SET %s WHERE %s RETURNING %s", strings.Join(sets, ", "), where, eventColumns)
	return r.conditional(r.pool.QueryRow(ctx, query, args...))
}

func (r *EventRepository) conditional(row pgx.Row) (*events.Event, error) {
	event, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, events.ErrConditionNotMet
	}
	if err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.Category, &e.Location, &e.Date, &e.Time, &e.StartTime,
		&e.EndTime, &e.Capacity, &e.HostID, &e.HostName, &e.School, &e.SchoolYears, &e.Genders, &e.ImageURL,
		&e.Members, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return &e, nil
}
