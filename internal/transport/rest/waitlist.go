package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/waitlist"
)

type waitlistService interface {
	Join(ctx context.Context, input waitlist.JoinInput) (*domain.WaitlistEntry, error)
	Leave(ctx context.Context, input waitlist.LeaveInput) error
	List(ctx context.Context, itemID uuid.UUID) ([]domain.WaitlistEntry, error)
}

type adminChecker interface {
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
}

// WaitlistHandler serves waitlist REST endpoints.
type WaitlistHandler struct {
	svc   waitlistService
	authz adminChecker
	log   *slog.Logger
}

// NewWaitlistHandler creates a WaitlistHandler.
func NewWaitlistHandler(svc waitlistService, authz adminChecker, logger *slog.Logger) *WaitlistHandler {
	return &WaitlistHandler{svc: svc, authz: authz, log: logger.With("handler", "waitlist")}
}

// waitlistEntryResponse omits userId and userName for other users' entries
// unless an administrator is asking.
type waitlistEntryResponse struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"itemId"`
	ItemTitle string    `json:"itemTitle,omitempty"`
	UserID    string    `json:"userId,omitempty"`
	UserName  string    `json:"userName,omitempty"`
	Mine      bool      `json:"mine"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Join puts the caller on the item's waitlist.
// POST /api/items/{id}/waitlist
func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := h.itemAction(w, r)
	if !ok {
		return
	}

	entry, err := h.svc.Join(r.Context(), waitlist.JoinInput{ItemID: itemID, UserID: userID})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, toWaitlistEntryResponse(*entry, 0, userID, true))
}

// Leave removes the caller from the item's waitlist.
// DELETE /api/items/{id}/waitlist
func (h *WaitlistHandler) Leave(w http.ResponseWriter, r *http.Request) {
	userID, itemID, ok := h.itemAction(w, r)
	if !ok {
		return
	}

	if err := h.svc.Leave(r.Context(), waitlist.LeaveInput{ItemID: itemID, UserID: userID}); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List returns the item's waitlist in queue order with 1-based positions.
// Any authenticated user may read it; identities of other waiters are shown
// to administrators only.
// GET /api/items/{id}/waitlist
func (h *WaitlistHandler) List(w http.ResponseWriter, r *http.Request) {
	callerID, itemID, ok := h.itemAction(w, r)
	if !ok {
		return
	}

	entries, err := h.svc.List(r.Context(), itemID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	admin, err := h.authz.IsAdmin(r.Context(), callerID)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := make([]waitlistEntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = toWaitlistEntryResponse(e, i+1, callerID, admin)
	}
	writeJSON(w, http.StatusOK, listResponse[waitlistEntryResponse]{Items: resp, Total: len(resp)})
}

func (h *WaitlistHandler) itemAction(w http.ResponseWriter, r *http.Request) (userID, itemID uuid.UUID, ok bool) {
	userID, err := callerID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	itemID, err = pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return uuid.Nil, uuid.Nil, false
	}
	return userID, itemID, true
}

// toWaitlistEntryResponse converts an entry as seen by callerID; position 0
// means unknown.
func toWaitlistEntryResponse(e domain.WaitlistEntry, position int, callerID uuid.UUID, showIdentity bool) waitlistEntryResponse {
	resp := waitlistEntryResponse{
		ID:        e.ID.String(),
		ItemID:    e.ItemID.String(),
		ItemTitle: e.ItemTitle,
		Mine:      e.UserID == callerID,
		Position:  position,
		CreatedAt: e.CreatedAt,
	}
	if resp.Mine || showIdentity {
		resp.UserID = e.UserID.String()
		resp.UserName = e.UserName
	}
	return resp
}
