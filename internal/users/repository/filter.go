package repository

import (
	"regexp"

	"rentmate/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuildCandidateFilter turns a resolved search into a users filter.
// Text fields match whole values case-insensitively.
func BuildCandidateFilter(q model.CandidateQuery) bson.M {
	filter := bson.M{}

	if q.City != "" {
		filter["profile.city"] = exactFold(q.City)
	}

	if len(q.Genders) > 0 {
		genders := make(bson.A, 0, len(q.Genders))
		for _, g := range q.Genders {
			genders = append(genders, exactFold(g))
		}
		filter["profile.gender"] = bson.M{"$in": genders}
	}

	if q.AgeRange != nil {
		age := bson.M{}
		if q.AgeRange.Min > 0 {
			age["$gte"] = q.AgeRange.Min
		}
		if q.AgeRange.Max > 0 {
			age["$lte"] = q.AgeRange.Max
		}
		if len(age) > 0 {
			filter["profile.age"] = age
		}
	}

	if location := presetLocationMatch(q.PresetLocationID, q.PresetLocationName); location != nil {
		filter["preset_locations"] = bson.M{"$elemMatch": location}
	}

	if q.Weekday != "" && q.Hour != nil {
		filter["availability."+q.Weekday] = *q.Hour
	}

	if excluded := objectIDs(q.ExcludeIDs); len(excluded) > 0 {
		filter["_id"] = bson.M{"$nin": excluded}
	}

	return filter
}

func presetLocationMatch(id, name string) bson.M {
	switch {
	case id != "" && name != "":
		return bson.M{"$or": bson.A{
			bson.M{"id": id},
			bson.M{"name": exactFold(name)},
		}}
	case id != "":
		return bson.M{"id": id}
	case name != "":
		return bson.M{"name": exactFold(name)}
	default:
		return nil
	}
}

func exactFold(value string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(value) + "$", Options: "i"}
}

// objectIDs converts hex ids, dropping any that are malformed.
func objectIDs(ids []string) bson.A {
	out := make(bson.A, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil || seen[oid] {
			continue
		}
		seen[oid] = true
		out = append(out, oid)
	}
	return out
}
