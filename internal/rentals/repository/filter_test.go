package repository

import (
	"testing"
	"time"

	"rentmate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBucketFilter(t *testing.T) {
	const today = "2026-10-15"

	active := BucketFilter("u1", model.BucketActive, today)
	and := active["$and"].(bson.A)
	require.Len(t, and, 2)
	assert.Equal(t, bson.M{
		"status":       bson.M{"$in": model.ActiveStatuses},
		"booking_date": bson.M{"$gte": today},
	}, and[1])

	finished := BucketFilter("u1", model.BucketFinished, today)["$and"].(bson.A)
	assert.Equal(t, bson.M{"status": model.StatusCompleted}, finished[1])

	past := BucketFilter("u1", model.BucketPast, today)["$and"].(bson.A)
	or := past[1].(bson.M)["$or"].(bson.A)
	assert.Len(t, or, 2)
}

func TestAdminFilter(t *testing.T) {
	assert.Empty(t, AdminFilter(model.RentalFilter{}))

	f := AdminFilter(model.RentalFilter{
		Statuses:         []string{model.StatusPending},
		City:             "Kochi",
		PresetLocationID: "loc-1",
	})
	assert.Equal(t, bson.M{"$in": []string{model.StatusPending}}, f["status"])
	assert.Equal(t, "^Kochi$", f["location.city"].(primitive.Regex).Pattern)
	assert.Equal(t, "loc-1", f["location.preset_location_id"])
}

func TestStatusChangeSet(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		change  StatusChange
		present []string
		absent  []string
	}{
		{
			name:    "verify",
			change:  StatusChange{To: model.StatusInProgress, At: at, Verified: true, VerifiedBy: "u1"},
			present: []string{"status", "otp_stage.verified", "otp_stage.verified_at", "otp_stage.verified_by"},
			absent:  []string{"completed_at", "cancelled_at"},
		},
		{
			name:    "cancel with refund",
			change:  StatusChange{To: model.StatusCancelled, At: at, Reason: "no show", Refunded: true},
			present: []string{"cancelled_at", "cancel_reason", "refunded_at"},
			absent:  []string{"otp_stage.verified"},
		},
		{
			name:    "verify by admin",
			change:  StatusChange{To: model.StatusInProgress, At: at, Verified: true},
			present: []string{"otp_stage.verified", "otp_stage.verified_at"},
			absent:  []string{"otp_stage.verified_by"},
		},
		{
			name:    "cancel without reason",
			change:  StatusChange{To: model.StatusCancelled, At: at},
			present: []string{"cancelled_at"},
			absent:  []string{"cancel_reason", "refunded_at"},
		},
		{
			name:    "complete",
			change:  StatusChange{To: model.StatusCompleted, At: at},
			present: []string{"completed_at", "updated_at"},
			absent:  []string{"cancelled_at"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := StatusChangeSet(tt.change)
			assert.Equal(t, tt.change.To, set["status"])
			for _, k := range tt.present {
				assert.Contains(t, set, k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, set, k)
			}
		})
	}
}
