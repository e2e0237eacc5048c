package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	rentalserrors "rentmate/internal/rentals/errors"
	"rentmate/pkg/config"
	mongotx "rentmate/pkg/db/mongo"
	"rentmate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "rentals"
)

// StatusChange moves a rental to To, but only while its status is one of
// From. Optional fields are written alongside the status.
type StatusChange struct {
	From       []string
	To         string
	At         time.Time
	Reason     string
	Verified   bool
	VerifiedBy string
	Refunded   bool
}

type RentalRepository interface {
	Create(ctx context.Context, rental *model.Rental) error
	FindByID(ctx context.Context, id string) (*model.Rental, error)
	FindActiveAt(ctx context.Context, userID, bookingDate string, bookingHour int) (*model.Rental, error)
	UpdateStatus(ctx context.Context, id string, change StatusChange) (*model.Rental, error)
	FindForUser(ctx context.Context, userID string, bucket model.OrderBucket, today string, skip int64, limit int) ([]*model.Rental, error)
	CountForUser(ctx context.Context, userID string, bucket model.OrderBucket, today string) (int64, error)
	FindFiltered(ctx context.Context, filter model.RentalFilter, skip int64, limit int) ([]*model.Rental, error)
	CountFiltered(ctx context.Context, filter model.RentalFilter) (int64, error)
}

type mongoRentalRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRentalRepository(cfg *config.Config) RentalRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRentalRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoRentalRepository) Create(ctx context.Context, rental *model.Rental) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	rental.ID = ""
	result, err := r.collection.InsertOne(ctx, rental)
	if err != nil {
		return fmt.Errorf("failed to create rental: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		rental.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRentalRepository) FindByID(ctx context.Context, id string) (*model.Rental, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", rentalserrors.ErrInvalidID, id)
	}

	var rental model.Rental
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&rental)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rentalserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find rental: %w", err)
	}

	return &rental, nil
}

// FindActiveAt returns the active rental userID takes part in at the slot,
// or ErrNotFound.
func (r *mongoRentalRepository) FindActiveAt(ctx context.Context, userID, bookingDate string, bookingHour int) (*model.Rental, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"$or":          bson.A{bson.M{"renter_id": userID}, bson.M{"host_id": userID}},
		"booking_date": bookingDate,
		"booking_hour": bookingHour,
		"status":       bson.M{"$in": model.ActiveStatuses},
	}

	var rental model.Rental
	err := r.collection.FindOne(ctx, filter).Decode(&rental)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rentalserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find active rental: %w", err)
	}

	return &rental, nil
}

// UpdateStatus applies change atomically. If the rental exists but is no
// longer in one of change.From it returns ErrStatusChanged.
func (r *mongoRentalRepository) UpdateStatus(ctx context.Context, id string, change StatusChange) (*model.Rental, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", rentalserrors.ErrInvalidID, id)
	}

	filter := bson.M{
		"_id":    objectID,
		"status": bson.M{"$in": change.From},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var rental model.Rental
	err = r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": StatusChangeSet(change)}, opts).Decode(&rental)
	if err == nil {
		return &rental, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update rental status: %w", err)
	}

	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
	if err != nil {
		return nil, fmt.Errorf("failed to check rental existence: %w", err)
	}
	if count == 0 {
		return nil, rentalserrors.ErrNotFound
	}
	return nil, rentalserrors.ErrStatusChanged
}

// StatusChangeSet is the $set document for change.
func StatusChangeSet(change StatusChange) bson.M {
	set := bson.M{
		"status":     change.To,
		"updated_at": change.At,
	}

	switch change.To {
	case model.StatusCompleted:
		set["completed_at"] = change.At
	case model.StatusCancelled:
		set["cancelled_at"] = change.At
		if change.Reason != "" {
			set["cancel_reason"] = change.Reason
		}
	}

	if change.Verified {
		set["otp_stage.verified"] = true
		set["otp_stage.verified_at"] = change.At
		if change.VerifiedBy != "" {
			set["otp_stage.verified_by"] = change.VerifiedBy
		}
	}

	if change.Refunded {
		set["refunded_at"] = change.At
	}

	return set
}

func (r *mongoRentalRepository) FindForUser(ctx context.Context, userID string, bucket model.OrderBucket, today string, skip int64, limit int) ([]*model.Rental, error) {
	sort := bson.D{{Key: "booking_date", Value: -1}, {Key: "booking_hour", Value: -1}}
	return r.find(ctx, BucketFilter(userID, bucket, today), sort, skip, limit)
}

func (r *mongoRentalRepository) CountForUser(ctx context.Context, userID string, bucket model.OrderBucket, today string) (int64, error) {
	return r.count(ctx, BucketFilter(userID, bucket, today))
}

func (r *mongoRentalRepository) FindFiltered(ctx context.Context, filter model.RentalFilter, skip int64, limit int) ([]*model.Rental, error) {
	sort := bson.D{{Key: "booking_date", Value: 1}, {Key: "booking_hour", Value: 1}}
	return r.find(ctx, AdminFilter(filter), sort, skip, limit)
}

func (r *mongoRentalRepository) CountFiltered(ctx context.Context, filter model.RentalFilter) (int64, error) {
	return r.count(ctx, AdminFilter(filter))
}

func (r *mongoRentalRepository) find(ctx context.Context, filter bson.M, sort bson.D, skip int64, limit int) ([]*model.Rental, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(sort).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find rentals: %w", err)
	}
	defer cursor.Close(ctx)

	var rentals []*model.Rental
	if err = cursor.All(ctx, &rentals); err != nil {
		return nil, fmt.Errorf("failed to decode rentals: %w", err)
	}
	return rentals, nil
}

func (r *mongoRentalRepository) count(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count rentals: %w", err)
	}
	return count, nil
}
