package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/domain/models"
	"github.com/mamadbah2/floorlog/internal/repository"
)

const (
	countersCollection   = "counters"
	accessConfigCollName = "auth_config"
	accessConfigID       = 1
)

type recordDocument struct {
	ID             int64              `bson:"_id"`
	CreatedAt      time.Time          `bson:"created_at"`
	CollectionDate string             `bson:"collection_date"`
	ProductionLine string             `bson:"production_line"`
	SKU            string             `bson:"sku"`
	BagWeight      float64            `bson:"bag_weight"`
	PanelParameter *float64           `bson:"panel_parameter"`
	Acrisson       *float64           `bson:"acrisson"`
	Measurements   map[string]float64 `bson:"measurements"`
}

type counterDocument struct {
	Seq int64 `bson:"seq"`
}

type accessConfigDocument struct {
	AccessCode string `bson:"access_code"`
}

// MongoDBRepository implements repository.Store on MongoDB. Each group lives
// in its own collection with a unique index on (collection_date,
// production_line); ids come from a counters collection.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
	now    func() time.Time
}

// NewMongoDBRepository connects, verifies the connection and ensures indexes.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	r := &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
		now:    time.Now,
	}
	if err := r.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("mongodb store ready", zap.String("database", dbName))
	return r, nil
}

func (r *MongoDBRepository) ensureIndexes(ctx context.Context) error {
	for _, g := range models.Groups {
		schema := models.SchemaFor(g)
		model := mongo.IndexModel{
			Keys:    bson.D{{Key: "collection_date", Value: 1}, {Key: "production_line", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(schema.Table + "_date_line_key"),
		}
		if _, err := r.collection(g).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create unique index on %s: %w", schema.Table, err)
		}
	}
	return nil
}

func (r *MongoDBRepository) collection(group models.Group) *mongo.Collection {
	return r.db.Collection(models.SchemaFor(group).Table)
}

func (r *MongoDBRepository) List(ctx context.Context, group models.Group) ([]models.Record, error) {
	return r.find(ctx, group, bson.M{})
}

func (r *MongoDBRepository) ListByDate(ctx context.Context, group models.Group, date string) ([]models.Record, error) {
	return r.find(ctx, group, bson.M{"collection_date": date})
}

func (r *MongoDBRepository) find(ctx context.Context, group models.Group, filter bson.M) ([]models.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "collection_date", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.collection(group).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find %s records: %w", group, err)
	}

	var docs []recordDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode %s records: %w", group, err)
	}

	out := make([]models.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, fromDocument(group, d))
	}
	return out, nil
}

func (r *MongoDBRepository) Get(ctx context.Context, group models.Group, id int64) (models.Record, error) {
	var doc recordDocument
	err := r.collection(group).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Record{}, repository.ErrNotFound
	}
	if err != nil {
		return models.Record{}, fmt.Errorf("find %s record %d: %w", group, id, err)
	}
	return fromDocument(group, doc), nil
}

func (r *MongoDBRepository) Create(ctx context.Context, record models.Record) (models.Record, error) {
	id, err := r.nextID(ctx, record.Group)
	if err != nil {
		return models.Record{}, err
	}
	record.ID = id
	record.CreatedAt = r.now().UTC().Truncate(time.Millisecond)

	if _, err := r.collection(record.Group).InsertOne(ctx, toDocument(record)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Record{}, repository.ErrDuplicate
		}
		return models.Record{}, fmt.Errorf("failed to insert %s record: %w", record.Group, err)
	}
	return record, nil
}

func (r *MongoDBRepository) nextID(ctx context.Context, group models.Group) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter counterDocument
	err := r.db.Collection(countersCollection).
		FindOneAndUpdate(ctx, bson.M{"_id": models.SchemaFor(group).Table}, bson.M{"$inc": bson.M{"seq": 1}}, opts).
		Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", group, err)
	}
	return counter.Seq, nil
}

func (r *MongoDBRepository) Update(ctx context.Context, group models.Group, id int64, patch models.Patch) (models.Record, error) {
	existing, err := r.Get(ctx, group, id)
	if err != nil {
		return models.Record{}, err
	}
	updated := patch.Apply(existing)

	res, err := r.collection(group).ReplaceOne(ctx, bson.M{"_id": id}, toDocument(updated))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.Record{}, repository.ErrDuplicate
		}
		return models.Record{}, fmt.Errorf("replace %s record %d: %w", group, id, err)
	}
	if res.MatchedCount == 0 {
		return models.Record{}, repository.ErrNotFound
	}
	return updated, nil
}

func (r *MongoDBRepository) Delete(ctx context.Context, group models.Group, id int64) error {
	res, err := r.collection(group).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete %s record %d: %w", group, id, err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *MongoDBRepository) AccessCode(ctx context.Context) (string, error) {
	var doc accessConfigDocument
	err := r.db.Collection(accessConfigCollName).FindOne(ctx, bson.M{"_id": accessConfigID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", repository.ErrAccessCodeMissing
	}
	if err != nil {
		return "", fmt.Errorf("read access code: %w", err)
	}
	return doc.AccessCode, nil
}

func (r *MongoDBRepository) SeedAccessCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return errors.New("access code must not be empty")
	}
	_, err := r.db.Collection(accessConfigCollName).UpdateOne(ctx,
		bson.M{"_id": accessConfigID},
		bson.M{"$setOnInsert": bson.M{"access_code": code}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("seed access code: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

func toDocument(rec models.Record) recordDocument {
	schema := models.SchemaFor(rec.Group)
	measurements := make(map[string]float64, len(schema.Measurements))
	for _, f := range schema.Measurements {
		measurements[f.Column] = rec.Measurements[f.Key]
	}
	return recordDocument{
		ID:             rec.ID,
		CreatedAt:      rec.CreatedAt,
		CollectionDate: rec.CollectionDate,
		ProductionLine: rec.ProductionLine,
		SKU:            rec.SKU,
		BagWeight:      rec.BagWeight,
		PanelParameter: rec.PanelParameter,
		Acrisson:       rec.Acrisson,
		Measurements:   measurements,
	}
}

func fromDocument(group models.Group, doc recordDocument) models.Record {
	schema := models.SchemaFor(group)
	rec := models.Record{
		ID:             doc.ID,
		Group:          group,
		CollectionDate: doc.CollectionDate,
		ProductionLine: doc.ProductionLine,
		SKU:            doc.SKU,
		BagWeight:      doc.BagWeight,
		PanelParameter: doc.PanelParameter,
		Acrisson:       doc.Acrisson,
		Measurements:   make(map[string]float64, len(schema.Measurements)),
		CreatedAt:      doc.CreatedAt.UTC(),
	}
	for _, f := range schema.Measurements {
		rec.Measurements[f.Key] = doc.Measurements[f.Column]
	}
	return rec
}
