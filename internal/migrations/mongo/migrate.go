package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"rentmate/internal/migrations/mongo/validators"
	rentalsrepo "rentmate/internal/rentals/repository"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/logger"
)

var (
	UsersIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "auth.mobile_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "profile.city", Value: 1},
			{Key: "profile.gender", Value: 1},
			{Key: "status.last_seen", Value: -1},
		}},
		{Keys: bson.D{{Key: "preset_locations.id", Value: 1}}},
	}

	RentalsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "renter_id", Value: 1},
			{Key: "booking_date", Value: -1},
			{Key: "booking_hour", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "host_id", Value: 1},
			{Key: "booking_date", Value: -1},
			{Key: "booking_hour", Value: -1},
		}},
		{Keys: bson.D{
			{Key: "status", Value: 1},
			{Key: "location.city", Value: 1},
			{Key: "booking_date", Value: 1},
			{Key: "booking_hour", Value: 1},
		}},
	}

	// The _id of a claim is the slot key and already unique. These serve
	// the busy-user lookup and the release on cancel/complete.
	SlotClaimsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "booking_date", Value: 1}, {Key: "booking_hour", Value: 1}}},
		{Keys: bson.D{{Key: "rental_id", Value: 1}}},
	}
)

type CollectionDef struct {
	Name      string
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func Collections() []CollectionDef {
	return []CollectionDef{
		{Name: usersrepo.CollectionName, Indexes: UsersIndexes, Validator: validators.UserValidator},
		{Name: rentalsrepo.CollectionName, Indexes: RentalsIndexes, Validator: validators.RentalValidator},
		{Name: rentalsrepo.SlotClaimCollectionName, Indexes: SlotClaimsIndexes, Validator: validators.SlotClaimValidator},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for _, def := range Collections() {
		if err := ensureCollection(ctx, db, def.Name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if err := ensureIndexes(ctx, db, def.Name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
