package service

import (
	"context"
	"errors"

	userserrors "rentmate/internal/users/errors"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/config"
	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/lock"
	"rentmate/pkg/model"
)

// MatchFinder is the candidate search the orchestrator meters.
type MatchFinder interface {
	FindMatches(ctx context.Context, requesterID string, criteria model.SearchCriteria) (*model.MatchResult, error)
}

// BookingOrchestrator runs the credit-metered "initiate → confirm" flow.
type BookingOrchestrator interface {
	Initiate(ctx context.Context, requesterID string, criteria model.SearchCriteria) (*model.InitiateResult, error)
	Confirm(ctx context.Context, caller model.Caller, input *model.ConfirmRentalInput) (*model.ConfirmResult, error)
}

type bookingOrchestrator struct {
	finder MatchFinder
	ledger RentalLedger
	users  usersrepo.UserRepository
	locker lock.Locker
	cfg    *config.Config
}

func NewBookingOrchestrator(
	finder MatchFinder,
	ledger RentalLedger,
	users usersrepo.UserRepository,
	locker lock.Locker,
	cfg *config.Config,
) BookingOrchestrator {
	return &bookingOrchestrator{
		finder: finder,
		ledger: ledger,
		users:  users,
		locker: locker,
		cfg:    cfg,
	}
}

// Initiate returns up to min(limit, balance) candidates and charges one
// credit per candidate returned. An empty result costs nothing.
func (o *bookingOrchestrator) Initiate(ctx context.Context, requesterID string, criteria model.SearchCriteria) (*model.InitiateResult, error) {
	requester, err := o.users.FindByID(ctx, requesterID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("User", requesterID)
		}
		return nil, apperrors.Internal("Failed to load requester", err)
	}

	balance := requester.Credits.Balance
	if balance <= 0 {
		return nil, apperrors.InsufficientCredits(balance, 1)
	}

	limit := min(config.NormalizeLimit(criteria.Limit, o.cfg.DefaultMatchLimit, o.cfg.MaxMatchLimit), balance)

	release, err := o.locker.Acquire(ctx, lock.InitiateKey(requesterID), o.cfg.InitiateLockTTL)
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, apperrors.Conflict("search already in progress")
		}
		return nil, apperrors.Internal("Failed to acquire search lock", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			o.cfg.Log.Warn("Failed to release search lock", "user_id", requesterID, "error", err)
		}
	}()

	criteria.Step = 1
	criteria.Limit = limit
	found, err := o.finder.FindMatches(ctx, requesterID, criteria)
	if err != nil {
		return nil, err
	}

	matches := found.Candidates
	outcome := found.Outcome

	if outcome == model.OutcomeEmpty {
		matches, err = o.cityFallback(ctx, requesterID, found.City, limit)
		if err != nil {
			return nil, err
		}
		if len(matches) > 0 {
			outcome = model.OutcomeCity
		}
	}

	charged := len(matches)
	if charged > 0 {
		credits, err := o.users.DebitCredits(ctx, requesterID, charged)
		if err != nil {
			if errors.Is(err, userserrors.ErrInsufficientCredits) {
				return nil, apperrors.InsufficientCredits(balance, charged)
			}
			return nil, apperrors.Internal("Failed to debit credits", err)
		}
		balance = credits.Balance
	}

	if matches == nil {
		matches = []model.CandidateSummary{}
	}

	o.cfg.Log.Info("Match search initiated",
		"user_id", requesterID,
		"outcome", outcome,
		"charged", charged,
		"balance", balance,
	)

	return &model.InitiateResult{
		Matches: matches,
		Outcome: outcome,
		Charged: charged,
		Balance: balance,
	}, nil
}

// cityFallback lists anyone in the city except the requester, with no
// availability or booking filter.
func (o *bookingOrchestrator) cityFallback(ctx context.Context, requesterID, city string, limit int) ([]model.CandidateSummary, error) {
	if city == "" {
		return nil, nil
	}

	users, err := o.users.FindCandidates(ctx, model.CandidateQuery{
		City:       city,
		ExcludeIDs: []string{requesterID},
		Limit:      limit,
	})
	if err != nil {
		return nil, apperrors.Internal("Failed to search users", err)
	}

	out := make([]model.CandidateSummary, 0, len(users))
	for _, u := range users {
		out = append(out, u.CandidateSummary())
	}
	return out, nil
}

func (o *bookingOrchestrator) Confirm(ctx context.Context, caller model.Caller, input *model.ConfirmRentalInput) (*model.ConfirmResult, error) {
	if !caller.CanActFor(input.RenterID) {
		return nil, apperrors.Forbidden("Only the renter can confirm a rental")
	}
	return o.ledger.Confirm(ctx, input)
}
