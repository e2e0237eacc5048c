package validators

import "go.mongodb.org/mongo-driver/bson"

// UserValidator covers only the fields the rentals service reads or writes.
// Profile editing belongs to another service.
var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"auth", "profile", "credits"},
		"additionalProperties": true,

		"properties": bson.M{
			"auth": bson.M{
				"bsonType": "object",
				"required": []string{"mobile_number"},
				"properties": bson.M{
					"mobile_number": bson.M{
						"bsonType": "string",
						"pattern":  `^\+[1-9]\d{6,14}$`,
					},
				},
			},

			"profile": bson.M{
				"bsonType": "object",
				"required": []string{"name"},
				"properties": bson.M{
					"name": bson.M{
						"bsonType":  "string",
						"minLength": 1,
						"maxLength": 100,
					},
					"age": bson.M{
						"bsonType": "int",
						"minimum":  18,
						"maximum":  120,
					},
				},
			},

			"credits": bson.M{
				"bsonType": "object",
				"required": []string{"balance"},
				"properties": bson.M{
					"balance": bson.M{
						"bsonType": "int",
						"minimum":  0,
					},
					"spent": bson.M{
						"bsonType": "int",
						"minimum":  0,
					},
				},
			},

			"is_on_rent": bson.M{
				"bsonType": "bool",
			},

			"active_bookings": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"rental_id", "booking_date", "booking_hour", "role", "status"},
				},
			},
		},
	},
}
