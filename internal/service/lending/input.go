package lending

import (
	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// RequestLoanInput holds the parameters for requesting a loan.
type RequestLoanInput struct {
	ItemID uuid.UUID
	UserID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i RequestLoanInput) Validate() error {
	var errs []domain.FieldError
	if i.ItemID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "item_id", Message: "required"})
	}
	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// DecideLoanInput holds an administrator's decision on a pending loan.
// Decision must be APPROVED or REJECTED; anything else is an invalid transition.
type DecideLoanInput struct {
	LoanID   uuid.UUID
	Decision domain.LoanStatus
	AdminID  uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i DecideLoanInput) Validate() error {
	return validateLoanAction(i.LoanID, i.AdminID)
}

// ReturnLoanInput holds the parameters for confirming a return.
type ReturnLoanInput struct {
	LoanID  uuid.UUID
	AdminID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i ReturnLoanInput) Validate() error {
	return validateLoanAction(i.LoanID, i.AdminID)
}

// CancelLoanInput holds the parameters for deleting a loan.
type CancelLoanInput struct {
	LoanID  uuid.UUID
	AdminID uuid.UUID
}

// Validate checks all fields and collects all errors.
func (i CancelLoanInput) Validate() error {
	return validateLoanAction(i.LoanID, i.AdminID)
}

func validateLoanAction(loanID, adminID uuid.UUID) error {
	var errs []domain.FieldError
	if loanID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "loan_id", Message: "required"})
	}
	if adminID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "admin_id", Message: "required"})
	}
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListLoansInput holds the parameters for the administrative loan listing.
type ListLoansInput struct {
	ActorID uuid.UUID
	Status  *domain.LoanStatus
	ItemID  *uuid.UUID
	UserID  *uuid.UUID
	Limit   int
	Offset  int
}

// Validate checks all fields and collects all errors.
func (i ListLoansInput) Validate() error {
	var errs []domain.FieldError
	if i.ActorID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "actor_id", Message: "required"})
	}
	if i.Status != nil && !i.Status.IsValid() {
		errs = append(errs, domain.FieldError{Field: "status", Message: "unknown status"})
	}
	errs = append(errs, validatePage(i.Limit, i.Offset)...)
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

// ListUserLoansInput holds the parameters for listing a user's own loans.
type ListUserLoansInput struct {
	UserID uuid.UUID
	Limit  int
	Offset int
}

// Validate checks all fields and collects all errors.
func (i ListUserLoansInput) Validate() error {
	var errs []domain.FieldError
	if i.UserID == uuid.Nil {
		errs = append(errs, domain.FieldError{Field: "user_id", Message: "required"})
	}
	errs = append(errs, validatePage(i.Limit, i.Offset)...)
	if len(errs) > 0 {
		return &domain.ValidationError{Errors: errs}
	}
	return nil
}

func validatePage(limit, offset int) []domain.FieldError {
	var errs []domain.FieldError
	if limit < 0 {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "must be non-negative"})
	}
	if limit > MaxLimit {
		errs = append(errs, domain.FieldError{Field: "limit", Message: "max 200"})
	}
	if offset < 0 {
		errs = append(errs, domain.FieldError{Field: "offset", Message: "must be non-negative"})
	}
	return errs
}

func pageLimit(limit int) int {
	if limit == 0 {
		return DefaultLimit
	}
	return limit
}
