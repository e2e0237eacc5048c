package service

import (
	"context"
	"errors"
	"time"

	rentalserrors "rentmate/internal/rentals/errors"
	"rentmate/internal/rentals/events"
	"rentmate/internal/rentals/repository"
	"rentmate/internal/rentals/validator"
	userserrors "rentmate/internal/users/errors"
	usersrepo "rentmate/internal/users/repository"
	"rentmate/pkg/clock"
	"rentmate/pkg/config"
	mongotx "rentmate/pkg/db/mongo"
	apperrors "rentmate/pkg/errors"
	"rentmate/pkg/locale"
	"rentmate/pkg/model"
	"rentmate/pkg/sanitizer"
)

const (
	maxCancelReasonLength = 500

	stepPushActiveBooking = "push_active_booking"
	stepSyncBookingStatus = "sync_booking_status"
	stepSetOnRent         = "set_on_rent"
	stepClearOnRent       = "clear_on_rent"
	stepPublishOtp        = "publish_otp_issued"
	stepPublishStatus     = "publish_status_changed"
)

// RentalLedger owns the rental state machine: creation with conflict and
// credit checks, the OTP handshake, and the terminal transitions.
type RentalLedger interface {
	Confirm(ctx context.Context, input *model.ConfirmRentalInput) (*model.ConfirmResult, error)
	VerifyOtp(ctx context.Context, rentalID, userID, otp string) (*model.Rental, error)
	MarkConfirmed(ctx context.Context, rentalID string) (*model.RentalTransitionResult, error)
	Cancel(ctx context.Context, rentalID, reason string) (*model.RentalTransitionResult, error)
	Complete(ctx context.Context, rentalID string) (*model.RentalTransitionResult, error)
	GetByID(ctx context.Context, rentalID string) (*model.Rental, error)
}

type rentalLedger struct {
	rentals   repository.RentalRepository
	claims    repository.SlotClaimRepository
	users     usersrepo.UserRepository
	tx        mongotx.TransactionManager
	events    events.Publisher
	validator *validator.RentalValidator
	clock     clock.Clock
	cfg       *config.Config
}

func NewRentalLedger(
	rentals repository.RentalRepository,
	claims repository.SlotClaimRepository,
	users usersrepo.UserRepository,
	tx mongotx.TransactionManager,
	publisher events.Publisher,
	validator *validator.RentalValidator,
	clk clock.Clock,
	cfg *config.Config,
) RentalLedger {
	return &rentalLedger{
		rentals:   rentals,
		claims:    claims,
		users:     users,
		tx:        tx,
		events:    publisher,
		validator: validator,
		clock:     clk,
		cfg:       cfg,
	}
}

type party struct {
	user *model.User
	role string
}

func (l *rentalLedger) Confirm(ctx context.Context, input *model.ConfirmRentalInput) (*model.ConfirmResult, error) {
	l.sanitize(input)
	if err := l.validator.ValidateConfirm(input); err != nil {
		return nil, validationError("Rental validation failed", err)
	}

	renter, err := l.loadUser(ctx, input.RenterID, "Renter")
	if err != nil {
		return nil, err
	}
	host, err := l.loadUser(ctx, input.HostID, "Host")
	if err != nil {
		return nil, err
	}

	if renter.Credits.Balance < input.CreditsUsed {
		return nil, apperrors.InsufficientCredits(renter.Credits.Balance, input.CreditsUsed)
	}

	parties := []party{{user: renter, role: model.RoleRenter}, {user: host, role: model.RoleHost}}
	hour := *input.BookingHour
	for _, p := range parties {
		if err := l.checkSlotFree(ctx, p, input.BookingDate, hour); err != nil {
			return nil, err
		}
	}

	stage, err := newOtpStage(l.cfg.OtpDigits)
	if err != nil {
		return nil, apperrors.Internal("Failed to generate OTP", err)
	}

	now := l.clock.Now()
	rental := &model.Rental{
		RenterID:      renter.ID,
		HostID:        host.ID,
		Location:      input.Location,
		BookingDate:   input.BookingDate,
		BookingHour:   hour,
		ScheduledAt:   l.scheduledAt(input, renter),
		DurationHours: max(1, input.DurationHours),
		CreditsUsed:   input.CreditsUsed,
		Status:        model.StatusConfirmed,
		OtpStage:      stage,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = l.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		if err := l.rentals.Create(txCtx, rental); err != nil {
			return apperrors.Internal("Failed to create rental", err)
		}

		for _, p := range parties {
			claim := model.NewSlotClaim(rental, p.user.ID, p.role, now)
			if err := l.claims.Create(txCtx, claim); err != nil {
				if errors.Is(err, rentalserrors.ErrSlotTaken) {
					return apperrors.BookingConflict(p.role, rental.BookingDate, rental.BookingHour)
				}
				return apperrors.Internal("Failed to claim booking slot", err)
			}
		}

		if rental.CreditsUsed > 0 {
			if _, err := l.users.DebitCredits(txCtx, renter.ID, rental.CreditsUsed); err != nil {
				if errors.Is(err, userserrors.ErrInsufficientCredits) {
					return apperrors.InsufficientCredits(renter.Credits.Balance, rental.CreditsUsed)
				}
				return apperrors.Internal("Failed to debit credits", err)
			}
		}
		return nil
	})
	if err != nil {
		if !apperrors.IsAppError(err) {
			err = apperrors.Internal("Failed to confirm rental", err)
		}
		l.cfg.Log.Warn("Rental confirmation failed",
			"renter_id", renter.ID,
			"host_id", host.ID,
			"booking_date", input.BookingDate,
			"booking_hour", hour,
			"error", err,
		)
		return nil, err
	}

	var warnings []model.Warning
	for _, p := range parties {
		if err := l.users.PushActiveBooking(ctx, p.user.ID, rental.Ref(p.role)); err != nil {
			warnings = l.warn(warnings, rental, stepPushActiveBooking, p.user.ID, err)
		}
		if rental.BookingDate == l.today(p.user) {
			if err := l.users.SetOnRent(ctx, p.user.ID, true); err != nil {
				warnings = l.warn(warnings, rental, stepSetOnRent, p.user.ID, err)
			}
		}
	}

	if err := l.events.OtpIssued(ctx, rental, renter, host); err != nil {
		warnings = l.warn(warnings, rental, stepPublishOtp, "", err)
	}

	l.cfg.Log.Info("Rental confirmed",
		"rental_id", rental.ID,
		"renter_id", rental.RenterID,
		"host_id", rental.HostID,
		"booking_date", rental.BookingDate,
		"booking_hour", rental.BookingHour,
		"credits_used", rental.CreditsUsed,
		"warnings", len(warnings),
	)

	return &model.ConfirmResult{Rental: rental, Warnings: warnings}, nil
}

func (l *rentalLedger) VerifyOtp(ctx context.Context, rentalID, userID, otp string) (*model.Rental, error) {
	rental, err := l.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if userID != "" {
		if _, ok := rental.PartyRole(userID); !ok {
			return nil, apperrors.Forbidden("Only the renter or host can verify this rental")
		}
	}

	if rental.Status != model.StatusInProgress && !model.CanTransition(rental.Status, model.StatusInProgress) {
		return nil, apperrors.InvalidTransition(rental.Status, model.StatusInProgress)
	}

	if !otpMatches(rental.OtpStage, otp) {
		l.cfg.Log.Warn("Invalid OTP submitted", "rental_id", rental.ID, "user_id", userID)
		return nil, apperrors.InvalidOtp()
	}

	if rental.OtpStage.Verified && rental.Status == model.StatusInProgress {
		return rental, nil
	}

	from := rental.Status
	updated, err := l.rentals.UpdateStatus(ctx, rental.ID, repository.StatusChange{
		From:       model.StatusesAllowing(model.StatusInProgress),
		To:         model.StatusInProgress,
		At:         l.clock.Now(),
		Verified:   true,
		VerifiedBy: userID,
	})
	if errors.Is(err, rentalserrors.ErrStatusChanged) {
		// A concurrent verify got there first.
		if current, findErr := l.rentals.FindByID(ctx, rental.ID); findErr == nil &&
			current.Status == model.StatusInProgress && current.OtpStage.Verified {
			return current, nil
		}
	}
	if err != nil {
		return nil, l.transitionError(ctx, rental.ID, model.StatusInProgress, err)
	}

	warnings := l.afterTransition(ctx, updated, from)

	l.cfg.Log.Info("Rental OTP verified",
		"rental_id", updated.ID,
		"verified_by", userID,
		"from", from,
		"warnings", len(warnings),
	)
	return updated, nil
}

func (l *rentalLedger) MarkConfirmed(ctx context.Context, rentalID string) (*model.RentalTransitionResult, error) {
	rental, err := l.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	switch rental.Status {
	case model.StatusConfirmed:
		return &model.RentalTransitionResult{Rental: rental}, nil
	case model.StatusPending:
	default:
		return nil, apperrors.InvalidTransition(rental.Status, model.StatusConfirmed)
	}

	updated, err := l.rentals.UpdateStatus(ctx, rental.ID, repository.StatusChange{
		From: []string{model.StatusPending},
		To:   model.StatusConfirmed,
		At:   l.clock.Now(),
	})
	if err != nil {
		return nil, l.transitionError(ctx, rental.ID, model.StatusConfirmed, err)
	}

	warnings := l.afterTransition(ctx, updated, rental.Status)
	l.cfg.Log.Info("Rental marked confirmed", "rental_id", updated.ID)

	return &model.RentalTransitionResult{Rental: updated, Warnings: warnings}, nil
}

// Cancel ends an active rental and releases both slots. Credits go back to
// the renter only before the meeting was verified.
func (l *rentalLedger) Cancel(ctx context.Context, rentalID, reason string) (*model.RentalTransitionResult, error) {
	rental, err := l.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(rental.Status, model.StatusCancelled) {
		return nil, apperrors.InvalidTransition(rental.Status, model.StatusCancelled)
	}

	refund := 0
	from := model.StatusesAllowing(model.StatusCancelled)
	if l.cfg.RefundOnCancel && rental.CreditsUsed > 0 && rental.Status != model.StatusInProgress {
		refund = rental.CreditsUsed
		from = []string{model.StatusPending, model.StatusConfirmed}
	}

	var updated *model.Rental
	err = l.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = l.rentals.UpdateStatus(txCtx, rental.ID, repository.StatusChange{
			From:     from,
			To:       model.StatusCancelled,
			At:       l.clock.Now(),
			Reason:   sanitizer.NormalizeReason(reason, maxCancelReasonLength),
			Refunded: refund > 0,
		})
		if err != nil {
			return err
		}

		if err := l.claims.DeleteByRental(txCtx, rental.ID); err != nil {
			return apperrors.Internal("Failed to release booking slots", err)
		}

		if refund > 0 {
			if err := l.users.RefundCredits(txCtx, rental.RenterID, refund); err != nil {
				return apperrors.Internal("Failed to refund credits", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, l.transitionError(ctx, rental.ID, model.StatusCancelled, err)
	}

	warnings := l.afterTransition(ctx, updated, rental.Status)

	l.cfg.Log.Info("Rental cancelled",
		"rental_id", updated.ID,
		"from", rental.Status,
		"refunded", refund,
		"warnings", len(warnings),
	)

	return &model.RentalTransitionResult{Rental: updated, Refunded: refund, Warnings: warnings}, nil
}

func (l *rentalLedger) Complete(ctx context.Context, rentalID string) (*model.RentalTransitionResult, error) {
	rental, err := l.GetByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	if !model.CanTransition(rental.Status, model.StatusCompleted) {
		return nil, apperrors.InvalidTransition(rental.Status, model.StatusCompleted)
	}

	var updated *model.Rental
	err = l.tx.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		var err error
		updated, err = l.rentals.UpdateStatus(txCtx, rental.ID, repository.StatusChange{
			From: model.StatusesAllowing(model.StatusCompleted),
			To:   model.StatusCompleted,
			At:   l.clock.Now(),
		})
		if err != nil {
			return err
		}

		if err := l.claims.DeleteByRental(txCtx, rental.ID); err != nil {
			return apperrors.Internal("Failed to release booking slots", err)
		}
		return nil
	})
	if err != nil {
		return nil, l.transitionError(ctx, rental.ID, model.StatusCompleted, err)
	}

	warnings := l.afterTransition(ctx, updated, rental.Status)
	l.cfg.Log.Info("Rental completed", "rental_id", updated.ID, "from", rental.Status)

	return &model.RentalTransitionResult{Rental: updated, Warnings: warnings}, nil
}

func (l *rentalLedger) GetByID(ctx context.Context, rentalID string) (*model.Rental, error) {
	if rentalID == "" {
		return nil, apperrors.FieldRequired("rental_id")
	}

	rental, err := l.rentals.FindByID(ctx, rentalID)
	if err != nil {
		if errors.Is(err, rentalserrors.ErrNotFound) || errors.Is(err, rentalserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID("Rental", rentalID)
		}
		return nil, apperrors.Internal("Failed to retrieve rental", err)
	}
	return rental, nil
}

func (l *rentalLedger) loadUser(ctx context.Context, id, label string) (*model.User, error) {
	user, err := l.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFoundWithID(label, id)
		}
		return nil, apperrors.Internal("Failed to load "+label, err)
	}
	return user, nil
}

func (l *rentalLedger) checkSlotFree(ctx context.Context, p party, date string, hour int) error {
	_, err := l.rentals.FindActiveAt(ctx, p.user.ID, date, hour)
	switch {
	case err == nil:
		return apperrors.BookingConflict(p.role, date, hour)
	case errors.Is(err, rentalserrors.ErrNotFound):
		return nil
	default:
		return apperrors.Internal("Failed to check existing rentals", err)
	}
}

// transitionError maps a failed conditional update. A concurrent move is
// reported against the status the rental holds now.
func (l *rentalLedger) transitionError(ctx context.Context, rentalID, to string, err error) error {
	switch {
	case apperrors.IsAppError(err):
		return err
	case errors.Is(err, rentalserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Rental", rentalID)
	case errors.Is(err, rentalserrors.ErrStatusChanged):
		current, findErr := l.rentals.FindByID(ctx, rentalID)
		if findErr != nil {
			return apperrors.Internal("Failed to reload rental", findErr)
		}
		return apperrors.InvalidTransition(current.Status, to)
	default:
		return apperrors.Internal("Failed to update rental", err)
	}
}

// afterTransition mirrors the new status onto both parties and announces it.
// Every failure is a warning; the rental itself is already committed.
func (l *rentalLedger) afterTransition(ctx context.Context, rental *model.Rental, from string) []model.Warning {
	var warnings []model.Warning

	for _, userID := range []string{rental.RenterID, rental.HostID} {
		if err := l.users.SetActiveBookingStatus(ctx, userID, rental.ID, rental.Status); err != nil {
			warnings = l.warn(warnings, rental, stepSyncBookingStatus, userID, err)
		}

		if model.IsActiveStatus(rental.Status) {
			continue
		}
		if err := l.clearOnRent(ctx, userID, rental.ID); err != nil {
			warnings = l.warn(warnings, rental, stepClearOnRent, userID, err)
		}
	}

	if err := l.events.StatusChanged(ctx, rental, from); err != nil {
		warnings = l.warn(warnings, rental, stepPublishStatus, "", err)
	}
	return warnings
}

// clearOnRent drops is_on_rent unless another active booking still holds it.
func (l *rentalLedger) clearOnRent(ctx context.Context, userID, rentalID string) error {
	user, err := l.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.IsOnRent || user.HasActiveBooking(rentalID) {
		return nil
	}
	return l.users.SetOnRent(ctx, userID, false)
}

func (l *rentalLedger) warn(warnings []model.Warning, rental *model.Rental, step, userID string, err error) []model.Warning {
	l.cfg.Log.Warn("Best-effort rental update failed",
		"rental_id", rental.ID,
		"step", step,
		"user_id", userID,
		"error", err,
	)
	return append(warnings, model.Warning{Step: step, UserID: userID, Error: err.Error()})
}

// today is the user's current calendar date, reckoned in the zone their
// phone number belongs to.
func (l *rentalLedger) today(u *model.User) string {
	return clock.DateIn(l.clock, locale.LocationForPhone(u.Auth.MobileNumber, l.cfg.Location()))
}

func (l *rentalLedger) scheduledAt(input *model.ConfirmRentalInput, renter *model.User) time.Time {
	if input.ScheduledAt != nil {
		return input.ScheduledAt.UTC()
	}

	loc := locale.LocationForPhone(renter.Auth.MobileNumber, l.cfg.Location())
	day, err := time.ParseInLocation(time.DateOnly, input.BookingDate, loc)
	if err != nil {
		return time.Time{}
	}
	return day.Add(time.Duration(*input.BookingHour) * time.Hour).UTC()
}

func (l *rentalLedger) sanitize(input *model.ConfirmRentalInput) {
	input.RenterID = sanitizer.TrimAndNormalize(input.RenterID)
	input.HostID = sanitizer.TrimAndNormalize(input.HostID)
	input.BookingDate = sanitizer.TrimAndNormalize(input.BookingDate)
	input.Location.City = sanitizer.NormalizeCity(input.Location.City)
	input.Location.PresetLocationID = sanitizer.TrimAndNormalize(input.Location.PresetLocationID)
	input.Location.PresetLocationName = sanitizer.TrimAndNormalize(input.Location.PresetLocationName)
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}
