package validators

import "go.mongodb.org/mongo-driver/bson"

var RentalValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"renter_id",
			"host_id",
			"location",
			"booking_date",
			"booking_hour",
			"scheduled_at",
			"duration_hours",
			"credits_used",
			"status",
			"otp_stage",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"renter_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"host_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"location": bson.M{
				"bsonType": "object",
				"required": []string{"city"},
				"properties": bson.M{
					"city": bson.M{
						"bsonType":  "string",
						"minLength": 2,
						"maxLength": 100,
					},
					"preset_location_id": bson.M{
						"bsonType":  "string",
						"maxLength": 100,
					},
					"preset_location_name": bson.M{
						"bsonType":  "string",
						"maxLength": 200,
					},
				},
			},

			"booking_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"booking_hour": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  23,
			},

			"scheduled_at": bson.M{
				"bsonType": "date",
			},

			"duration_hours": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  24,
			},

			"credits_used": bson.M{
				"bsonType": "int",
				"minimum":  0,
			},

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"pending",
					"confirmed",
					"in-progress",
					"completed",
					"cancelled",
				},
			},

			"otp_stage": bson.M{
				"bsonType": "object",
				"required": []string{"renter_otp", "host_otp", "common_otp", "verified"},
				"properties": bson.M{
					"renter_otp": bson.M{"bsonType": "string"},
					"host_otp":   bson.M{"bsonType": "string"},
					"common_otp": bson.M{"bsonType": "string"},
					"verified":   bson.M{"bsonType": "bool"},
					"verified_at": bson.M{
						"bsonType": "date",
					},
					"verified_by": bson.M{
						"bsonType": "string",
					},
				},
			},

			"cancel_reason": bson.M{
				"bsonType":  "string",
				"maxLength": 500,
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
