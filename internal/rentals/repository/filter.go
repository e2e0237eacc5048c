package repository

import (
	"regexp"

	"rentmate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BucketFilter selects userID's rentals (as renter or host) in bucket.
// It mirrors model.BucketOf.
func BucketFilter(userID string, bucket model.OrderBucket, today string) bson.M {
	party := bson.A{bson.M{"renter_id": userID}, bson.M{"host_id": userID}}

	var scope bson.M
	switch bucket {
	case model.BucketActive:
		scope = bson.M{
			"status":       bson.M{"$in": model.ActiveStatuses},
			"booking_date": bson.M{"$gte": today},
		}
	case model.BucketFinished:
		scope = bson.M{"status": model.StatusCompleted}
	default:
		scope = bson.M{"$or": bson.A{
			bson.M{"status": model.StatusCancelled},
			bson.M{
				"status":       bson.M{"$in": model.ActiveStatuses},
				"booking_date": bson.M{"$lt": today},
			},
		}}
	}

	return bson.M{"$and": bson.A{bson.M{"$or": party}, scope}}
}

func AdminFilter(f model.RentalFilter) bson.M {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.City != "" {
		filter["location.city"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(f.City) + "$", Options: "i"}
	}
	if f.PresetLocationID != "" {
		filter["location.preset_location_id"] = f.PresetLocationID
	}
	return filter
}
