package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Togather-Foundation/serendipity/internal/domain/events"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type eventDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	Category    string    `bson:"category"`
	Location    string    `bson:"location"`
	Date        string    `bson:"date"`
	Time        string    `bson:"time"`
	StartTime   string    `bson:"start_time"`
	EndTime     string    `bson:"end_time"`
	Capacity    *int      `bson:"capacity"`
	HostID      string    `bson:"host_id"`
	HostName    string    `bson:"host_name"`
	School      *string   `bson:"school"`
	SchoolYears []string  `bson:"school_years"`
	Genders     []string  `bson:"genders"`
	ImageURL    *string   `bson:"image_url"`
	Members     []string  `bson:"members"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toEventDoc(e *events.Event) eventDoc {
	return eventDoc{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Category:    e.Category,
		Location:    e.Location,
		Date:        e.Date,
		Time:        e.Time,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
		Capacity:    e.Capacity,
		HostID:      e.HostID,
		HostName:    e.HostName,
		School:      e.School,
		SchoolYears: nonNil(e.SchoolYears),
		Genders:     nonNil(e.Genders),
		ImageURL:    e.ImageURL,
		Members:     nonNil(e.Members),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func (d eventDoc) toEvent() events.Event {
	return events.Event{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Location:    d.Location,
		Date:        d.Date,
		Time:        d.Time,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Capacity:    d.Capacity,
		HostID:      d.HostID,
		HostName:    d.HostName,
		School:      d.School,
		SchoolYears: d.SchoolYears,
		Genders:     d.Genders,
		ImageURL:    d.ImageURL,
		Members:     d.Members,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type EventRepository struct {
	coll *mongo.Collection
}

func (r *EventRepository) Create(ctx context.Context, event *events.Event) error {
	if _, err := r.coll.InsertOne(ctx, toEventDoc(event)); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, id string) (*events.Event, error) {
	var doc eventDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	event := doc.toEvent()
	return &event, nil
}

func (r *EventRepository) List(ctx context.Context, filter events.Filter) ([]events.Event, error) {
	conds := bson.A{}
	if filter.Category != "" {
		conds = append(conds, bson.D{{Key: "category", Value: filter.Category}})
	}
	if filter.Categories != nil {
		conds = append(conds, bson.D{{Key: "category", Value: bson.D{{Key: "$in", Value: filter.Categories}}}})
	}
	if filter.HostID != "" {
		conds = append(conds, bson.D{{Key: "host_id", Value: filter.HostID}})
	}
	if filter.MemberID != "" {
		conds = append(conds, bson.D{{Key: "members", Value: filter.MemberID}})
	}
	query := bson.D{}
	if len(conds) > 0 {
		query = bson.D{{Key: "$and", Value: conds}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	out := make([]events.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toEvent())
	}
	return out, nil
}

// AddMember pushes userID only if it is absent and the member count is
// below capacity, evaluated atomically by the server.
func (r *EventRepository) AddMember(ctx context.Context, eventID, userID string) (*events.Event, error) {
	filter := bson.D{
		{Key: "_id", Value: eventID},
		{Key: "members", Value: bson.D{{Key: "$ne", Value: userID}}},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "capacity", Value: nil}},
			bson.D{{Key: "$expr", Value: bson.D{{Key: "$lt", Value: bson.A{
				bson.D{{Key: "$size", Value: "$members"}},
				"$capacity",
			}}}}},
		}},
	}
	update := bson.D{{Key: "$push", Value: bson.D{{Key: "members", Value: userID}}}}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *EventRepository) RemoveMember(ctx context.Context, eventID, userID string) (*events.Event, error) {
	filter := bson.D{
		{Key: "_id", Value: eventID},
		{Key: "members", Value: userID},
	}
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "members", Value: userID}}}}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *EventRepository) Update(ctx context.Context, eventID, hostID string, c events.Changes) (*events.Event, error) {
	filter := bson.D{
		{Key: "_id", Value: eventID},
		{Key: "host_id", Value: hostID},
	}
	if !c.ExpectedUpdatedAt.IsZero() {
		filter = append(filter, bson.E{Key: "updated_at", Value: c.ExpectedUpdatedAt})
	}
	if c.SetCapacity && c.Capacity != nil {
		filter = append(filter, bson.E{Key: "$expr", Value: bson.D{{Key: "$lte", Value: bson.A{
			bson.D{{Key: "$size", Value: "$members"}},
			*c.Capacity,
		}}}})
	}

	set := bson.D{{Key: "updated_at", Value: c.UpdatedAt}}
	str := func(key string, v *string) {
		if v != nil {
			set = append(set, bson.E{Key: key, Value: *v})
		}
	}
	str("title", c.Title)
	str("description", c.Description)
	str("category", c.Category)
	str("location", c.Location)
	str("date", c.Date)
	str("time", c.Time)
	str("start_time", c.StartTime)
	str("end_time", c.EndTime)
	if c.SchoolYears != nil {
		set = append(set, bson.E{Key: "school_years", Value: c.SchoolYears})
	}
	if c.Genders != nil {
		set = append(set, bson.E{Key: "genders", Value: c.Genders})
	}
	if c.ImageURL != nil {
		if *c.ImageURL == "" {
			set = append(set, bson.E{Key: "image_url", Value: nil})
		} else {
			set = append(set, bson.E{Key: "image_url", Value: *c.ImageURL})
		}
	}
	if c.SetCapacity {
		if c.Capacity == nil {
			set = append(set, bson.E{Key: "capacity", Value: nil})
		} else {
			set = append(set, bson.E{Key: "capacity", Value: *c.Capacity})
		}
	}

	return r.findOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: set}})
}

func (r *EventRepository) findOneAndUpdate(ctx context.Context, filter, update bson.D) (*events.Event, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc eventDoc
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, events.ErrConditionNotMet
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	event := doc.toEvent()
	return &event, nil
}
