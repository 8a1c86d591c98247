package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/lending"
)

// loanService defines the minimal interface needed by LoanHandler.
type loanService interface {
	RequestLoan(ctx context.Context, input lending.RequestLoanInput) (*domain.Loan, error)
	DecideLoan(ctx context.Context, input lending.DecideLoanInput) (*domain.Loan, error)
	ReturnLoan(ctx context.Context, input lending.ReturnLoanInput) (*domain.Loan, error)
	CancelLoan(ctx context.Context, input lending.CancelLoanInput) error
	ListLoans(ctx context.Context, input lending.ListLoansInput) ([]domain.Loan, int, error)
	ListUserLoans(ctx context.Context, input lending.ListUserLoansInput) ([]domain.Loan, int, error)
	ItemAvailability(ctx context.Context, itemID uuid.UUID) (*domain.Availability, error)
}

// LoanHandler serves loan REST endpoints.
type LoanHandler struct {
	svc loanService
	log *slog.Logger
}

// NewLoanHandler creates a LoanHandler.
func NewLoanHandler(svc loanService, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{svc: svc, log: logger.With("handler", "loan")}
}

type requestLoanRequest struct {
	ItemID uuid.UUID `json:"itemId"`
}

type decisionRequest struct {
	Status domain.LoanStatus `json:"status"`
}

type loanResponse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	ItemTitle string    `json:"itemTitle,omitempty"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Status    string    `json:"status"`
	Returned  bool      `json:"returned"`
	DueDate   time.Time `json:"dueDate"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type availabilityResponse struct {
	ItemID       string  `json:"itemId"`
	Available    bool    `json:"available"`
	ActiveLoanID *string `json:"activeLoanId,omitempty"`
	Waiting      int     `json:"waiting"`
}

// Request creates a PENDING loan for the caller.
// POST /api/loans
func (h *LoanHandler) Request(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	var req requestLoanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	loan, err := h.svc.RequestLoan(r.Context(), lending.RequestLoanInput{ItemID: req.ItemID, UserID: userID})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLoanResponse(*loan))
}

// Decide approves or rejects a pending loan.
// PUT /api/loans/{id}/decision
func (h *LoanHandler) Decide(w http.ResponseWriter, r *http.Request) {
	adminID, loanID, ok := h.loanAction(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	loan, err := h.svc.DecideLoan(r.Context(), lending.DecideLoanInput{
		LoanID:   loanID,
		Decision: req.Status,
		AdminID:  adminID,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toLoanResponse(*loan))
}

// Return confirms the physical return of an approved loan.
// PUT /api/loans/{id}/return
func (h *LoanHandler) Return(w http.ResponseWriter, r *http.Request) {
	adminID, loanID, ok := h.loanAction(w, r)
	if !ok {
		return
	}

	loan, err := h.svc.ReturnLoan(r.Context(), lending.ReturnLoanInput{LoanID: loanID, AdminID: adminID})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, toLoanResponse(*loan))
}

// Cancel deletes a loan.
// DELETE /api/loans/{id}
func (h *LoanHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	adminID, loanID, ok := h.loanAction(w, r)
	if !ok {
		return
	}

	if err := h.svc.CancelLoan(r.Context(), lending.CancelLoanInput{LoanID: loanID, AdminID: adminID}); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List returns loans for administrators.
// GET /api/loans?status=&itemId=&userId=&limit=&offset=
func (h *LoanHandler) List(w http.ResponseWriter, r *http.Request) {
	actorID, err := callerID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	input := lending.ListLoansInput{ActorID: actorID}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.LoanStatus(v)
		input.Status = &status
	}
	if input.ItemID, err = queryUUID(r, "itemId"); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if input.UserID, err = queryUUID(r, "userId"); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	if input.Limit, input.Offset, err = page(r); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	loans, total, err := h.svc.ListLoans(r.Context(), input)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[loanResponse]{Items: mapSlice(loans, toLoanResponse), Total: total})
}

// Mine returns the caller's own loans.
// GET /api/loans/mine
func (h *LoanHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	limit, offset, err := page(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	loans, total, err := h.svc.ListUserLoans(r.Context(), lending.ListUserLoansInput{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[loanResponse]{Items: mapSlice(loans, toLoanResponse), Total: total})
}

// Availability reports whether an item can be requested.
// GET /api/items/{id}/availability
func (h *LoanHandler) Availability(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	avail, err := h.svc.ItemAvailability(r.Context(), itemID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := availabilityResponse{
		ItemID:    avail.ItemID.String(),
		Available: avail.Available,
		Waiting:   avail.Waiting,
	}
	if avail.ActiveLoanID != nil {
		id := avail.ActiveLoanID.String()
		resp.ActiveLoanID = &id
	}
	writeJSON(w, http.StatusOK, resp)
}

// loanAction reads the caller and the {id} path value. On failure it has
// already written the response.
func (h *LoanHandler) loanAction(w http.ResponseWriter, r *http.Request) (actorID, loanID uuid.UUID, ok bool) {
	actorID, err := callerID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	loanID, err = pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	return actorID, loanID, true
}

func toLoanResponse(l domain.Loan) loanResponse {
	return loanResponse{
		ID:        l.ID.String(),
		ItemID:    l.ItemID.String(),
		ItemTitle: l.ItemTitle,
		UserID:    l.UserID.String(),
		UserName:  l.UserName,
		Status:    string(l.Status),
		Returned:  l.Returned(),
		DueDate:   l.DueDate,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
