package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	models "github.com/xtocast/contest-voting-go/models"
)

// MongoStore implements Store on a MongoDB database.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the indexes the pipeline depends on. The unique
// indexes on transactions.reference and votes.payment_reference are the
// idempotency gates; this must run before the server accepts traffic.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		"contests": {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"categories": {
			{Keys: bson.D{{Key: "contest_id", Value: 1}, {Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"nominees": {
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
		},
		"votes": {
			{Keys: bson.D{{Key: "payment_reference", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "nominee_id", Value: 1}}},
		},
		"transactions": {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}

	for col, indexes := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	return nil
}

// ---------------- contests ----------------

func (s *MongoStore) ListContests(ctx context.Context) ([]models.Contest, error) {
	cursor, err := s.db.Collection("contests").Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find contests: %w", err)
	}

	var contests []models.Contest
	if err := cursor.All(ctx, &contests); err != nil {
		return nil, fmt.Errorf("decode contests: %w", err)
	}
	return contests, nil
}

func (s *MongoStore) GetContestBySlug(ctx context.Context, slug string) (*models.Contest, error) {
	var contest models.Contest
	err := s.db.Collection("contests").FindOne(ctx, bson.M{"slug": slug}).Decode(&contest)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contest %q: %w", slug, err)
	}
	return &contest, nil
}

func (s *MongoStore) GetContestByID(ctx context.Context, id primitive.ObjectID) (*models.Contest, error) {
	var contest models.Contest
	err := s.db.Collection("contests").FindOne(ctx, bson.M{"_id": id}).Decode(&contest)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find contest %s: %w", id.Hex(), err)
	}
	return &contest, nil
}

// ---------------- categories ----------------

func (s *MongoStore) ListCategories(ctx context.Context, contestID primitive.ObjectID) ([]models.Category, error) {
	cursor, err := s.db.Collection("categories").Find(ctx, bson.M{"contest_id": contestID})
	if err != nil {
		return nil, fmt.Errorf("find categories: %w", err)
	}

	var categories []models.Category
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	return categories, nil
}

func (s *MongoStore) GetCategoryBySlug(ctx context.Context, contestID primitive.ObjectID, slug string) (*models.Category, error) {
	var category models.Category
	err := s.db.Collection("categories").
		FindOne(ctx, bson.M{"contest_id": contestID, "slug": slug}).
		Decode(&category)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", slug, err)
	}
	return &category, nil
}

// ---------------- nominees ----------------

func (s *MongoStore) ListNominees(ctx context.Context, categoryID primitive.ObjectID) ([]models.Nominee, error) {
	cursor, err := s.db.Collection("nominees").Find(ctx, bson.M{"category_id": categoryID})
	if err != nil {
		return nil, fmt.Errorf("find nominees: %w", err)
	}

	var nominees []models.Nominee
	if err := cursor.All(ctx, &nominees); err != nil {
		return nil, fmt.Errorf("decode nominees: %w", err)
	}
	return nominees, nil
}

// GetNomineeBySlugOrCode matches key case-insensitively against either the
// nominee's slug or its human-friendly nominee_code.
func (s *MongoStore) GetNomineeBySlugOrCode(ctx context.Context, categoryID primitive.ObjectID, key string) (*models.Nominee, error) {
	exact := primitive.Regex{Pattern: "^" + regexp.QuoteMeta(key) + "$", Options: "i"}
	filter := bson.M{
		"category_id": categoryID,
		"$or": []bson.M{
			{"slug": exact},
			{"nominee_code": exact},
		},
	}

	var nominee models.Nominee
	err := s.db.Collection("nominees").FindOne(ctx, filter).Decode(&nominee)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find nominee %q: %w", key, err)
	}
	return &nominee, nil
}

func (s *MongoStore) GetNomineeByID(ctx context.Context, id primitive.ObjectID) (*models.Nominee, error) {
	var nominee models.Nominee
	err := s.db.Collection("nominees").FindOne(ctx, bson.M{"_id": id}).Decode(&nominee)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find nominee %s: %w", id.Hex(), err)
	}
	return &nominee, nil
}

func (s *MongoStore) CountNominees(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	n, err := s.db.Collection("nominees").CountDocuments(ctx, bson.M{"category_id": categoryID})
	if err != nil {
		return 0, fmt.Errorf("count nominees: %w", err)
	}
	return n, nil
}

// ---------------- votes ----------------

func (s *MongoStore) CountVotes(ctx context.Context, nomineeID primitive.ObjectID) (int64, error) {
	n, err := s.db.Collection("votes").CountDocuments(ctx, bson.M{"nominee_id": nomineeID})
	if err != nil {
		return 0, fmt.Errorf("count votes: %w", err)
	}
	return n, nil
}

func (s *MongoStore) CountVotesByNominee(ctx context.Context, nomineeIDs []primitive.ObjectID) (map[primitive.ObjectID]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"nominee_id": bson.M{"$in": nomineeIDs}}}},
		{{Key: "$group", Value: bson.M{"_id": "$nominee_id", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := s.db.Collection("votes").Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate votes: %w", err)
	}

	var rows []struct {
		ID    primitive.ObjectID `bson:"_id"`
		Count int64              `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode vote counts: %w", err)
	}

	counts := make(map[primitive.ObjectID]int64, len(rows))
	for _, row := range rows {
		counts[row.ID] = row.Count
	}
	return counts, nil
}

// ---------------- payments ----------------

func (s *MongoStore) CreateTransaction(ctx context.Context, txn *models.Transaction) error {
	now := time.Now()
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	txn.CreatedAt = now
	txn.UpdatedAt = now

	if _, err := s.db.Collection("transactions").InsertOne(ctx, txn); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// RecordPayment is the idempotent write unit for a confirmed payment.
//
// The completed-transaction upsert is the compare-and-swap gate: the filter
// excludes already-completed rows, so a reference that was fully processed
// trips the unique index on insert and surfaces as ErrDuplicateReference. A
// pending row from checkout initialization is promoted in place. Two
// concurrent callers that both promote the same pending row are serialized by
// the second gate, the unique index on votes.payment_reference.
func (s *MongoStore) RecordPayment(ctx context.Context, txn *models.Transaction, vote *models.Vote) error {
	now := time.Now()

	filter := bson.M{
		"reference": txn.Reference,
		"status":    bson.M{"$ne": models.TxnStatusCompleted},
	}
	update := bson.M{
		"$set": bson.M{
			"contest_id": txn.ContestID,
			"nominee_id": txn.NomineeID,
			"voter":      txn.Voter,
			"channel":    txn.Channel,
			"vote_count": txn.VoteCount,
			"amount":     txn.Amount,
			"status":     models.TxnStatusCompleted,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}

	_, err := s.db.Collection("transactions").
		UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("record transaction %s: %w", txn.Reference, err)
	}

	if vote.ID.IsZero() {
		vote.ID = primitive.NewObjectID()
	}
	vote.CreatedAt = now
	if _, err := s.db.Collection("votes").InsertOne(ctx, vote); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReference
		}
		return fmt.Errorf("record vote %s: %w", txn.Reference, err)
	}

	_, err = s.db.Collection("nominees").UpdateOne(ctx,
		bson.M{"_id": vote.NomineeID},
		bson.M{
			"$inc": bson.M{"votes": txn.VoteCount},
			"$set": bson.M{"updated_at": now},
		})
	if err != nil {
		return fmt.Errorf("increment votes for %s: %w", vote.NomineeID.Hex(), err)
	}
	return nil
}

// ---------------- transactions ----------------

func (s *MongoStore) ListTransactions(ctx context.Context, f TransactionFilter) ([]models.Transaction, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Reference != "" {
		filter["reference"] = f.Reference
	}

	cursor, err := s.db.Collection("transactions").
		Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}

	var txns []models.Transaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	return txns, nil
}

func (s *MongoStore) ListUnreconciled(ctx context.Context) ([]models.Transaction, error) {
	completed, err := s.ListTransactions(ctx, TransactionFilter{Status: models.TxnStatusCompleted})
	if err != nil {
		return nil, err
	}
	if len(completed) == 0 {
		return nil, nil
	}

	refs := make([]string, 0, len(completed))
	for _, txn := range completed {
		refs = append(refs, txn.Reference)
	}

	cursor, err := s.db.Collection("votes").Find(ctx,
		bson.M{"payment_reference": bson.M{"$in": refs}},
		options.Find().SetProjection(bson.M{"payment_reference": 1}))
	if err != nil {
		return nil, fmt.Errorf("find votes by reference: %w", err)
	}

	var votes []struct {
		PaymentReference string `bson:"payment_reference"`
	}
	if err := cursor.All(ctx, &votes); err != nil {
		return nil, fmt.Errorf("decode vote references: %w", err)
	}

	recorded := make(map[string]bool, len(votes))
	for _, v := range votes {
		recorded[v.PaymentReference] = true
	}

	var missing []models.Transaction
	for _, txn := range completed {
		if !recorded[txn.Reference] {
			missing = append(missing, txn)
		}
	}
	return missing, nil
}
