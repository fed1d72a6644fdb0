package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/kevin07696/subscription-tracker/internal/domain"
	"github.com/kevin07696/subscription-tracker/internal/domain/ports"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// SubscriptionRepository implements ports.SubscriptionRepository on a MongoDB collection
type SubscriptionRepository struct {
	coll *mongo.Collection
}

// NewSubscriptionRepository binds the repository to db's subscriptions collection
func NewSubscriptionRepository(db *mongo.Database) *SubscriptionRepository {
	return &SubscriptionRepository{coll: db.Collection(subscriptionsCollection)}
}

// EnsureIndexes creates the indexes the queries below rely on
func (r *SubscriptionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "nextBillingDate", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "nextBillingDate", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create subscription indexes: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *domain.Subscription) error {
	doc, err := toSubscriptionDocument(sub)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "insert subscription", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*domain.Subscription, error) {
	var doc subscriptionDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "find subscription", err)
	}
	return doc.toDomain()
}

func (r *SubscriptionRepository) Update(ctx context.Context, sub *domain.Subscription) error {
	doc, err := toSubscriptionDocument(sub)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": sub.ID}, doc)
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "replace subscription", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) UpdateIfActive(ctx context.Context, sub *domain.Subscription) (bool, error) {
	doc, err := toSubscriptionDocument(sub)
	if err != nil {
		return false, err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{
		"_id":    sub.ID,
		"status": string(domain.SubscriptionStatusActive),
	}, doc)
	if err != nil {
		return false, domain.WrapError(domain.ErrorCodeDatabaseError, "replace active subscription", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return domain.WrapError(domain.ErrorCodeDatabaseError, "delete subscription", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *SubscriptionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Subscription, error) {
	return r.find(ctx, bson.M{"userId": userID}, newestFirst())
}

func (r *SubscriptionRepository) ListAll(ctx context.Context) ([]*domain.Subscription, error) {
	return r.find(ctx, bson.M{}, newestFirst())
}

func (r *SubscriptionRepository) ListUpcoming(ctx context.Context, f ports.UpcomingFilter) ([]*domain.Subscription, error) {
	filter := bson.M{
		"status":          string(domain.SubscriptionStatusActive),
		"nextBillingDate": bson.M{"$gte": f.From, "$lte": f.To},
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.NotificationsOnly {
		filter["notificationEnabled"] = true
	}
	if f.DueOnly {
		// nextBillingDate <= From + notificationDays days
		filter["$expr"] = bson.M{"$lte": bson.A{
			"$nextBillingDate",
			bson.M{"$add": bson.A{f.From, bson.M{"$multiply": bson.A{"$notificationDays", dayMillis}}}},
		}}
	}

	opts := options.Find().SetSort(bson.D{{Key: "nextBillingDate", Value: 1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	return r.find(ctx, filter, opts)
}

func (r *SubscriptionRepository) ListOverdue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error) {
	filter := bson.M{
		"status":          string(domain.SubscriptionStatusActive),
		"nextBillingDate": bson.M{"$lt": asOf},
	}
	opts := options.Find().SetSort(bson.D{{Key: "nextBillingDate", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *SubscriptionRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptionsBuilder) ([]*domain.Subscription, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "find subscriptions", err)
	}

	var docs []subscriptionDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, domain.WrapError(domain.ErrorCodeDatabaseError, "decode subscriptions", err)
	}

	subs := make([]*domain.Subscription, 0, len(docs))
	for i := range docs {
		sub, err := docs[i].toDomain()
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func newestFirst() *options.FindOptionsBuilder {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
}
