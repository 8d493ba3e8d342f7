package implementation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	envmodels "gitlab.com/terrasense1/env.sensor_server/src/production/ENV.Models"
)

// Per-operation deadlines so a wedged Mongo node cannot hold a request
// open for the full server write timeout.
const (
	insertTimeout = 3 * time.Second
	queryTimeout  = 5 * time.Second
)

// MongoReadingRepository persists readings in a single Mongo collection,
// one document per push.
type MongoReadingRepository struct {
	coll *mongo.Collection
}

func NewMongoReadingRepository(coll *mongo.Collection) *MongoReadingRepository {
	return &MongoReadingRepository{coll: coll}
}

func (r *MongoReadingRepository) CreateReading(ctx context.Context, reading envmodels.Reading) (*envmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, insertTimeout)
	defer cancel()

	res, err := r.coll.InsertOne(ctx, reading)
	if err != nil {
		return nil, err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		reading.ID = oid
	}
	return &reading, nil
}

func (r *MongoReadingRepository) GetRecentReadings(ctx context.Context, limit int) ([]envmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "recorded_at", Value: -1}}).
		SetLimit(int64(limit))

	cur, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var readings []envmodels.Reading
	if err := cur.All(ctx, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *MongoReadingRepository) GetLatestReading(ctx context.Context) (*envmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	opts := options.FindOne().SetSort(bson.D{{Key: "recorded_at", Value: -1}})

	var reading envmodels.Reading
	err := r.coll.FindOne(ctx, bson.D{}, opts).Decode(&reading)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (r *MongoReadingRepository) GetReadingsByTimeRange(ctx context.Context, start, end time.Time) ([]envmodels.Reading, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"recorded_at": bson.M{"$gte": start, "$lt": end}}
	opts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: 1}})

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var readings []envmodels.Reading
	if err := cur.All(ctx, &readings); err != nil {
		return nil, err
	}
	return readings, nil
}
