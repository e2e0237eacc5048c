package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"rentmate/pkg/logger"
	"rentmate/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details flattens the errors into the AppError details map.
func (v ValidationErrors) Details() map[string]any {
	details := make(map[string]any, len(v))
	for _, err := range v {
		details[err.Field] = err.Message
	}
	return details
}

type RentalValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewRentalValidator(log *logger.Logger) *RentalValidator {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("booking_date", validateBookingDate); err != nil {
		log.Fatal("Failed to register 'booking_date' validator",
			"error", err,
		)
	}

	log.Debug("Rental validator initialized successfully")

	return &RentalValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingDate(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := time.Parse(time.DateOnly, value)
	return err == nil
}

func (v *RentalValidator) ValidateConfirm(input *model.ConfirmRentalInput) error {
	return v.check(input)
}

func (v *RentalValidator) ValidateCriteria(criteria *model.SearchCriteria) error {
	if err := v.check(criteria); err != nil {
		return err
	}

	if criteria.AgeMin != nil && criteria.AgeMax != nil && *criteria.AgeMin > *criteria.AgeMax {
		return ValidationErrors{{Field: "age_min", Message: "age_min must not exceed age_max"}}
	}

	return nil
}

func (v *RentalValidator) check(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *RentalValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		field := fieldPath(err)
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", field)
		case "min":
			message = fmt.Sprintf("%s must be at least %s", field, err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", field, err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", field)
		case "nefield":
			message = fmt.Sprintf("%s must differ from %s", field, err.Param())
		case "booking_date":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   field,
			Message: message,
		})
	}

	return validationErrors
}

// fieldPath drops the root struct name from the namespace, so nested fields
// read as "location.city".
func fieldPath(err validator.FieldError) string {
	ns := err.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return err.Field()
}
