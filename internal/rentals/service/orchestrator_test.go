package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"rentmate/internal/rentals/validator"
	"rentmate/internal/testutil/memstore"
	userserrors "rentmate/internal/users/errors"
	"rentmate/pkg/clock"
	"rentmate/pkg/config"
	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/lock"
	"rentmate/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFinder struct {
	calls    int
	criteria model.SearchCriteria
	result   *model.MatchResult
	err      error
}

func (f *stubFinder) FindMatches(_ context.Context, _ string, criteria model.SearchCriteria) (*model.MatchResult, error) {
	f.calls++
	f.criteria = criteria
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func candidates(ids ...string) []model.CandidateSummary {
	out := make([]model.CandidateSummary, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.CandidateSummary{ID: id})
	}
	return out
}

type orchestratorFixture struct {
	store  *memstore.Store
	finder *stubFinder
	locker lock.Locker
	cfg    *config.Config
	orch   BookingOrchestrator
}

func newOrchestratorFixture(t *testing.T, balance int) *orchestratorFixture {
	t.Helper()

	store := memstore.New()
	store.PutUser(newUser(renterID, "Asha", "Kochi", balance))
	store.PutUser(newUser(hostID, "Meera", "Kochi", 0))
	store.PutUser(newUser(otherID, "Nila", "Kochi", 0))

	cfg := testConfig()
	clk := clock.Fixed(testNow)
	finder := &stubFinder{result: &model.MatchResult{Outcome: model.OutcomeEmpty, City: "Kochi"}}
	locker := lock.NewMemoryLocker(clk)
	ledger := NewRentalLedger(
		store.Rentals(), store.Claims(), store.Users(), store.Tx(),
		&recordingPublisher{}, validator.NewRentalValidator(cfg.Log), clk, cfg,
	)

	return &orchestratorFixture{
		store:  store,
		finder: finder,
		locker: locker,
		cfg:    cfg,
		orch:   NewBookingOrchestrator(finder, ledger, store.Users(), locker, cfg),
	}
}

func TestInitiate_ChargesPerCandidate(t *testing.T) {
	f := newOrchestratorFixture(t, 10)
	f.finder.result = &model.MatchResult{Candidates: candidates(hostID, otherID), Outcome: model.OutcomeExact, City: "Kochi"}

	res, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi", Step: 4})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeExact, res.Outcome)
	assert.Len(t, res.Matches, 2)
	assert.Equal(t, 2, res.Charged)
	assert.Equal(t, 8, res.Balance)
	assert.Equal(t, 8, f.store.User(renterID).Credits.Balance)
	assert.Equal(t, 2, f.store.User(renterID).Credits.Spent)

	assert.Equal(t, 1, f.finder.criteria.Step, "initiate always reads the first page")
	assert.Equal(t, f.cfg.DefaultMatchLimit, f.finder.criteria.Limit)
}

func TestInitiate_LimitCappedByBalance(t *testing.T) {
	tests := []struct {
		name      string
		balance   int
		limit     int
		wantLimit int
	}{
		{"default below balance", 10, 0, 3},
		{"balance below default", 2, 0, 2},
		{"explicit limit above balance", 4, 10, 4},
		{"explicit limit clamped to max", 100, 80, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrchestratorFixture(t, tt.balance)
			f.finder.result = &model.MatchResult{Outcome: model.OutcomeExact, Candidates: candidates(hostID)}

			_, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi", Limit: tt.limit})
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, f.finder.criteria.Limit)
		})
	}
}

func TestInitiate_NoCredits(t *testing.T) {
	f := newOrchestratorFixture(t, 0)

	_, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	appErr := assertCode(t, err, apperrors.CodeInsufficientCredits)
	assert.Equal(t, 0, appErr.Details["balance"])
	assert.Equal(t, 1, appErr.Details["required"])
	assert.Zero(t, f.finder.calls)
}

func TestInitiate_UnknownRequester(t *testing.T) {
	f := newOrchestratorFixture(t, 5)

	_, err := f.orch.Initiate(context.Background(), "665f1c2e9b1e8a00123456ff", model.SearchCriteria{City: "Kochi"})
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestInitiate_CityFallback(t *testing.T) {
	f := newOrchestratorFixture(t, 10)

	// The host is busy at the requested hour, which is why the finder came
	// back empty. The city fallback ignores slots entirely.
	f.store.PutClaim(&model.SlotClaim{ID: model.SlotKey(hostID, "2024-06-01", 10), UserID: hostID, BookingDate: "2024-06-01", BookingHour: 10})

	res, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeCity, res.Outcome)
	ids := make([]string, 0, len(res.Matches))
	for _, m := range res.Matches {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{hostID, otherID}, ids)
	assert.NotContains(t, ids, renterID)
	assert.Equal(t, 2, res.Charged)
	assert.Equal(t, 8, res.Balance)
}

func TestInitiate_EmptyIsFree(t *testing.T) {
	f := newOrchestratorFixture(t, 10)
	f.finder.result = &model.MatchResult{Outcome: model.OutcomeEmpty, City: "Munnar"}

	res, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Munnar"})
	require.NoError(t, err)

	assert.Equal(t, model.OutcomeEmpty, res.Outcome)
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
	assert.Zero(t, res.Charged)
	assert.Equal(t, 10, res.Balance)
	assert.Zero(t, f.store.Calls["DebitCredits"])
}

func TestInitiate_LockHeld(t *testing.T) {
	f := newOrchestratorFixture(t, 10)

	release, err := f.locker.Acquire(context.Background(), lock.InitiateKey(renterID), time.Minute)
	require.NoError(t, err)

	_, err = f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	assertCode(t, err, apperrors.CodeConflict)
	assert.Zero(t, f.finder.calls)

	require.NoError(t, release(context.Background()))
	_, err = f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	assert.NoError(t, err)
}

func TestInitiate_ReleasesLock(t *testing.T) {
	f := newOrchestratorFixture(t, 10)
	f.finder.err = apperrors.Validation("city required", map[string]any{"city": "required"})

	_, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{})
	assertCode(t, err, apperrors.CodeValidation)

	f.finder.err = nil
	_, err = f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	assert.NoError(t, err, "a failed search must not leave the lock behind")
}

func TestInitiate_DebitRace(t *testing.T) {
	f := newOrchestratorFixture(t, 10)
	f.finder.result = &model.MatchResult{Outcome: model.OutcomeExact, Candidates: candidates(hostID, otherID)}
	f.store.Fail["DebitCredits"] = userserrors.ErrInsufficientCredits

	res, err := f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	assert.Nil(t, res)
	appErr := assertCode(t, err, apperrors.CodeInsufficientCredits)
	assert.Equal(t, 2, appErr.Details["required"])
	assert.Equal(t, 10, f.store.User(renterID).Credits.Balance)

	f.store.Fail["DebitCredits"] = errors.New("socket closed")
	_, err = f.orch.Initiate(context.Background(), renterID, model.SearchCriteria{City: "Kochi"})
	assertCode(t, err, apperrors.CodeInternal)
}

func TestOrchestratorConfirm_CallerMustBeRenter(t *testing.T) {
	f := newOrchestratorFixture(t, 10)

	_, err := f.orch.Confirm(context.Background(), model.Caller{UserID: hostID}, confirmInput("2024-06-01", 10, 1))
	assertCode(t, err, apperrors.CodeForbidden)

	res, err := f.orch.Confirm(context.Background(), model.Caller{UserID: renterID}, confirmInput("2024-06-01", 10, 1))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, res.Rental.Status)

	res, err = f.orch.Confirm(context.Background(), model.Caller{UserID: otherID, Admin: true}, confirmInput("2024-06-01", 11, 1))
	require.NoError(t, err)
	assert.Equal(t, renterID, res.Rental.RenterID)
}
