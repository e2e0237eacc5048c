package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	userserrors "rentmate/internal/users/errors"
	"rentmate/pkg/config"
	mongotx "rentmate/pkg/db/mongo"
	"rentmate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "users"
)

// UserRepository is the slice of the user directory the rental core reads
// and writes. Profile management lives elsewhere.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error)
	FindCandidates(ctx context.Context, q model.CandidateQuery) ([]*model.User, error)
	DebitCredits(ctx context.Context, id string, amount int) (*model.Credits, error)
	RefundCredits(ctx context.Context, id string, amount int) error
	PushActiveBooking(ctx context.Context, id string, ref model.BookingRef) error
	SetActiveBookingStatus(ctx context.Context, id, rentalID, status string) error
	SetOnRent(ctx context.Context, id string, onRent bool) error
}

type mongoUserRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserRepository(cfg *config.Config) UserRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	var user model.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return &user, nil
}

// FindByIDs returns the users that exist, keyed by id. Unknown or malformed
// ids are absent from the map.
func (r *mongoUserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*model.User, error) {
	result := make(map[string]*model.User, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return result, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *mongoUserRepository) FindCandidates(ctx context.Context, q model.CandidateQuery) ([]*model.User, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSkip(q.Skip).
		SetLimit(int64(q.Limit))
	if q.SortByLastSeen {
		opts.SetSort(bson.D{{Key: "status.last_seen", Value: -1}, {Key: "_id", Value: 1}})
	}

	cursor, err := r.collection.Find(ctx, BuildCandidateFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*model.User
	if err = cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}

	return users, nil
}

// DebitCredits subtracts amount only while the balance covers it, so two
// concurrent debits can never drive the balance negative.
func (r *mongoUserRepository) DebitCredits(ctx context.Context, id string, amount int) (*model.Credits, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":             objectID,
		"credits.balance": bson.M{"$gte": amount},
	}
	update := bson.M{
		"$inc": bson.M{"credits.balance": -amount, "credits.spent": amount},
		"$set": bson.M{"updated_at": now()},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"credits": 1})

	var updated model.User
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, userserrors.ErrInsufficientCredits
		}
		return nil, fmt.Errorf("failed to debit credits: %w", err)
	}

	return &updated.Credits, nil
}

func (r *mongoUserRepository) RefundCredits(ctx context.Context, id string, amount int) error {
	return r.updateOne(ctx, id, nil, bson.M{
		"$inc": bson.M{"credits.balance": amount, "credits.spent": -amount},
		"$set": bson.M{"updated_at": now()},
	})
}

// PushActiveBooking appends ref unless the rental is already listed.
func (r *mongoUserRepository) PushActiveBooking(ctx context.Context, id string, ref model.BookingRef) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":                       objectID,
		"active_bookings.rental_id": bson.M{"$ne": ref.RentalID},
	}
	update := bson.M{
		"$push": bson.M{"active_bookings": ref},
		"$set":  bson.M{"updated_at": now()},
	}

	if _, err := r.collection.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to push active booking: %w", err)
	}
	return nil
}

func (r *mongoUserRepository) SetActiveBookingStatus(ctx context.Context, id, rentalID, status string) error {
	return r.updateOne(ctx, id, bson.M{"active_bookings.rental_id": rentalID}, bson.M{
		"$set": bson.M{
			"active_bookings.$.status": status,
			"updated_at":               now(),
		},
	})
}

func (r *mongoUserRepository) SetOnRent(ctx context.Context, id string, onRent bool) error {
	return r.updateOne(ctx, id, nil, bson.M{
		"$set": bson.M{"is_on_rent": onRent, "updated_at": now()},
	})
}

func (r *mongoUserRepository) updateOne(ctx context.Context, id string, extra bson.M, update bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", userserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	for k, v := range extra {
		filter[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return userserrors.ErrNotFound
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
