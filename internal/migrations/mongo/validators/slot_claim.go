package validators

import "go.mongodb.org/mongo-driver/bson"

var SlotClaimValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "user_id", "rental_id", "role", "booking_date", "booking_hour", "created_at"},

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "string",
				"pattern":  `^[0-9a-f]{24}:\d{4}-\d{2}-\d{2}:\d{2}$`,
			},
			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
			"rental_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},
			"role": bson.M{
				"bsonType": "string",
				"enum":     []string{"renter", "host"},
			},
			"booking_date": bson.M{
				"bsonType": "string",
			},
			"booking_hour": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  23,
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
