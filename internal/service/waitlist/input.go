package waitlist

import (
	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

// JoinInput holds the parameters for joining an item's waitlist.
type JoinInput struct {
	ItemID uuid.UUID
	UserID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i JoinInput) Validate() error {
	return validatePair(i.ItemID, i.UserID)
}

// LeaveInput holds the parameters for leaving an item's waitlist.
type LeaveInput struct {
	ItemID uuid.UUID
	UserID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i LeaveInput) Validate() error {
	return validatePair(i.ItemID, i.UserID)
}

func validatePair(itemID, userID uuid.UUID) error {
	var errs []domain.FieldError
	if itemID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "required"})
	}
	if userID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}
