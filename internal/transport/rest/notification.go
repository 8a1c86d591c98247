package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
)

type inboxService interface {
	Inbox(ctx context.Context, input notification.ListInput) ([]domain.Notification, int, error)
	Sent(ctx context.Context, input notification.ListInput) ([]domain.Notification, int, error)
	MarkRead(ctx context.Context, input notification.ItemInput) error
	Delete(ctx context.Context, input notification.ItemInput) error
}

// NotificationHandler serves the notification inbox.
type NotificationHandler struct {
	svc inboxService
	log *slog.Logger
}

// NewNotificationHandler creates a NotificationHandler.
func NewNotificationHandler(svc inboxService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: logger.With("handler", "notification")}
}

type notificationResponse struct {
	ID           string    `json:"id"`
	SenderID     string    `json:"senderId"`
	SenderName   string    `json:"senderName,omitempty"`
	ReceiverID   string    `json:"receiverId"`
	ReceiverName string    `json:"receiverName,omitempty"`
	ItemID       *string   `json:"itemId,omitempty"`
	ItemTitle    string    `json:"itemTitle,omitempty"`
	Kind         string    `json:"kind"`
	Content      string    `json:"content"`
	Read         bool      `json:"read"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Inbox lists notifications received by the caller.
// GET /api/notifications/inbox
func (h *NotificationHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.svc.Inbox)
}

// Sent lists notifications sent by the caller.
// GET /api/notifications/sent
func (h *NotificationHandler) Sent(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.svc.Sent)
}

func (h *NotificationHandler) list(
	w http.ResponseWriter,
	r *http.Request,
	fetch func(context.Context, notification.ListInput) ([]domain.Notification, int, error),
) {
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

	notes, total, err := fetch(r.Context(), notification.ListInput{UserID: userID, Limit: limit, Offset: offset})
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse[notificationResponse]{
		Items: mapSlice(notes, toNotificationResponse),
		Total: total,
	})
}

// MarkRead marks one of the caller's received notifications as read.
// PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	input, ok := h.itemInput(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(r.Context(), input); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a notification the caller sent or received.
// DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	input, ok := h.itemInput(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), input); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) itemInput(w http.ResponseWriter, r *http.Request) (notification.ItemInput, bool) {
	userID, err := callerID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return notification.ItemInput{}, false
	}
	id, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return notification.ItemInput{}, false
	}
	return notification.ItemInput{UserID: userID, NotificationID: id}, true
}

func toNotificationResponse(n domain.Notification) notificationResponse {
	resp := notificationResponse{
		ID:           n.ID.String(),
		SenderID:     n.SenderID.String(),
		SenderName:   n.SenderName,
		ReceiverID:   n.ReceiverID.String(),
		ReceiverName: n.ReceiverName,
		ItemTitle:    n.ItemTitle,
		Kind:         string(n.Kind),
		Content:      n.Content,
		Read:         n.Read,
		CreatedAt:    n.CreatedAt,
	}
	if n.ItemID != nil {
		id := n.ItemID.String()
		resp.ItemID = &id
	}
	return resp
}
