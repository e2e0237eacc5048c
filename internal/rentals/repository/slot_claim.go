package repository

import (
	"context"
	"fmt"

	rentalserrors "rentmate/internal/rentals/errors"
	"rentmate/pkg/config"
	mongotx "rentmate/pkg/db/mongo"
	"rentmate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	SlotClaimCollectionName = "slot_claims"
)

// SlotClaimRepository holds one document per party per active rental.
// The _id is the slot key, so a second claim on a taken slot fails.
type SlotClaimRepository interface {
	Create(ctx context.Context, claim *model.SlotClaim) error
	DeleteByRental(ctx context.Context, rentalID string) error
	ClaimedUserIDs(ctx context.Context, bookingDate string, bookingHour int) ([]string, error)
}

type mongoSlotClaimRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoSlotClaimRepository(cfg *config.Config) SlotClaimRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSlotClaimRepository{
		cfg:        cfg,
		collection: db.Collection(SlotClaimCollectionName),
	}
}

func (r *mongoSlotClaimRepository) Create(ctx context.Context, claim *model.SlotClaim) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, claim); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", rentalserrors.ErrSlotTaken, claim.ID)
		}
		return fmt.Errorf("failed to create slot claim: %w", err)
	}
	return nil
}

func (r *mongoSlotClaimRepository) DeleteByRental(ctx context.Context, rentalID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"rental_id": rentalID}); err != nil {
		return fmt.Errorf("failed to delete slot claims: %w", err)
	}
	return nil
}

func (r *mongoSlotClaimRepository) ClaimedUserIDs(ctx context.Context, bookingDate string, bookingHour int) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "user_id", bson.M{
		"booking_date": bookingDate,
		"booking_hour": bookingHour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list slot claims: %w", err)
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
