package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rental-scraper/models"
	"rental-scraper/utils"
)

// MongoStore keeps one collection per site in a single database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger *utils.Logger
	now    func() time.Time
}

// NewMongoStore connects to uri and pings the deployment before returning.
func NewMongoStore(ctx context.Context, uri, database string, logger *utils.Logger) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}
	logger.Info("[mongo] Connected to %s", database)

	return &MongoStore{
		client: client,
		db:     client.Database(database),
		logger: logger,
		now:    time.Now,
	}, nil
}

func (m *MongoStore) Insert(ctx context.Context, site models.Site, entries []models.Entry) error {
	if len(entries) == 0 {
		m.logger.Warn("[mongo] No data to save")
		return nil
	}

	stamped := stamp(entries, m.now())
	docs := make([]interface{}, 0, len(stamped))
	for _, e := range stamped {
		docs = append(docs, e)
	}

	res, err := m.db.Collection(string(site)).InsertMany(ctx, docs)
	if err != nil {
		return fmt.Errorf("mongo: insert into %s: %w", site, err)
	}
	m.logger.Info("[mongo] Inserted %d listings into %s", len(res.InsertedIDs), site)
	return nil
}

func (m *MongoStore) FindByDateRange(ctx context.Context, site models.Site, start, end string) ([]models.Entry, error) {
	return m.find(ctx, site, dateRangeFilter(start, end))
}

func (m *MongoStore) FindByName(ctx context.Context, site models.Site, pattern string) ([]models.Entry, error) {
	return m.find(ctx, site, nameFilter(site, pattern))
}

func (m *MongoStore) find(ctx context.Context, site models.Site, filter bson.M) ([]models.Entry, error) {
	cur, err := m.db.Collection(string(site)).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongo: find in %s: %w", site, err)
	}
	defer cur.Close(ctx)

	var entries []models.Entry
	for cur.Next(ctx) {
		e, err := decodeBSON(site, cur)
		if err != nil {
			return nil, fmt.Errorf("mongo: decode %s entry: %w", site, err)
		}
		entries = append(entries, e)
	}
	return entries, cur.Err()
}

func decodeBSON(site models.Site, cur *mongo.Cursor) (models.Entry, error) {
	switch site {
	case models.SiteBooking:
		var e models.BookingEntry
		err := cur.Decode(&e)
		return e, err
	case models.SiteAirbnb:
		var e models.AirbnbEntry
		err := cur.Decode(&e)
		return e, err
	}
	return nil, fmt.Errorf("unknown site %q", site)
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongo: disconnect: %w", err)
	}
	m.logger.Info("[mongo] Connection closed")
	return nil
}

func dateRangeFilter(start, end string) bson.M {
	return bson.M{
		"start_date": bson.M{"$gte": start},
		"end_date":   bson.M{"$lte": end},
	}
}

// nameFilter matches the flat name of booking entries and the nested
// listing name of airbnb entries.
func nameFilter(site models.Site, pattern string) bson.M {
	field := "name"
	if site == models.SiteAirbnb {
		field = "listing.name"
	}
	return bson.M{field: primitive.Regex{Pattern: pattern, Options: "i"}}
}
