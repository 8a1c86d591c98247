package rest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/mangalend-backend/internal/adapter/amqp"
	"github.com/heartmarshall/mangalend-backend/internal/config"
	"github.com/heartmarshall/mangalend-backend/internal/domain"
	"github.com/heartmarshall/mangalend-backend/internal/service/lending"
	"github.com/heartmarshall/mangalend-backend/internal/service/notification"
	"github.com/heartmarshall/mangalend-backend/internal/service/waitlist"
	"github.com/heartmarshall/mangalend-backend/internal/transport/middleware"
)

type routerEnv struct {
	handler  http.Handler
	loans    *mockLoanService
	waitlist *mockWaitlistService
	inbox    *mockInboxService

	adminID uuid.UUID
	userID  uuid.UUID
}

func newRouterEnv(t *testing.T, limiter *middleware.RateLimiter) *routerEnv {
	t.Helper()

	env := &routerEnv{
		loans:    &mockLoanService{},
		waitlist: &mockWaitlistService{},
		inbox:    &mockInboxService{},
		adminID:  uuid.New(),
		userID:   uuid.New(),
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	env.handler = NewRouter(RouterDeps{
		Loans:         NewLoanHandler(env.loans, log),
		Waitlist:      NewWaitlistHandler(env.waitlist, &mockAdminChecker{admins: map[uuid.UUID]bool{env.adminID: true}}, log),
		Notifications: NewNotificationHandler(env.inbox, log),
		Health:        NewHealthHandler(&dbPingerMock{}, "test", amqp.Noop{}),
		Tokens: staticTokens{
			"admin-token": env.adminID,
			"user-token":  env.userID,
		},
		Metrics:            http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, "# metrics") }), //nolint:errcheck
		Limiter:            limiter,
		RateLimitPerMinute: 2,
		CORS:               config.CORSConfig{AllowedOrigins: "*"},
		Logger:             log,
	})
	return env
}

func (e *routerEnv) do(method, path, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestRouter_RequestLoan(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	itemID := uuid.New()
	due := time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC)

	env.loans.RequestLoanFunc = func(_ context.Context, input lending.RequestLoanInput) (*domain.Loan, error) {
		assert.Equal(t, itemID, input.ItemID)
		assert.Equal(t, env.userID, input.UserID, "requester is the caller")
		return &domain.Loan{ID: uuid.New(), ItemID: input.ItemID, UserID: input.UserID, Status: domain.LoanStatusPending, DueDate: due}, nil
	}

	rec := env.do(http.MethodPost, "/api/loans", "user-token", `{"itemId":"`+itemID.String()+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeBody[loanResponse](t, rec)
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, itemID.String(), resp.ItemID)
	assert.False(t, resp.Returned)
	assert.True(t, due.Equal(resp.DueDate))
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_RequestLoan_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		token      string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"anonymous", "", `{"itemId":"` + uuid.NewString() + `"}`, nil, http.StatusUnauthorized},
		{"bad token", "forged", `{"itemId":"` + uuid.NewString() + `"}`, nil, http.StatusUnauthorized},
		{"malformed body", "user-token", `{"itemId":`, nil, http.StatusBadRequest},
		{"unknown field", "user-token", `{"itemId":"` + uuid.NewString() + `","userId":"x"}`, nil, http.StatusBadRequest},
		{"active loan", "user-token", `{"itemId":"` + uuid.NewString() + `"}`, domain.ErrActiveLoanExists, http.StatusConflict},
		{"no admin", "user-token", `{"itemId":"` + uuid.NewString() + `"}`, domain.ErrNoAdministrator, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newRouterEnv(t, nil)
			env.loans.RequestLoanFunc = func(context.Context, lending.RequestLoanInput) (*domain.Loan, error) {
				return nil, tt.serviceErr
			}

			rec := env.do(http.MethodPost, "/api/loans", tt.token, tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestRouter_DecideLoan(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	loanID := uuid.New()

	env.loans.DecideLoanFunc = func(_ context.Context, input lending.DecideLoanInput) (*domain.Loan, error) {
		assert.Equal(t, loanID, input.LoanID)
		assert.Equal(t, env.adminID, input.AdminID)
		if input.Decision == domain.LoanStatusRejected {
			return nil, domain.ErrInvalidTransition
		}
		return &domain.Loan{ID: loanID, Status: input.Decision}, nil
	}

	rec := env.do(http.MethodPut, "/api/loans/"+loanID.String()+"/decision", "admin-token", `{"status":"APPROVED"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "APPROVED", decodeBody[loanResponse](t, rec).Status)

	rec = env.do(http.MethodPut, "/api/loans/"+loanID.String()+"/decision", "admin-token", `{"status":"REJECTED"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INVALID_TRANSITION", decodeBody[errorResponse](t, rec).Code)

	rec = env.do(http.MethodPut, "/api/loans/not-a-uuid/decision", "admin-token", `{"status":"APPROVED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ReturnAndCancel(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	loanID := uuid.New()

	env.loans.ReturnLoanFunc = func(_ context.Context, input lending.ReturnLoanInput) (*domain.Loan, error) {
		if input.AdminID != env.adminID {
			return nil, domain.ErrForbidden
		}
		return &domain.Loan{ID: input.LoanID, Status: domain.LoanStatusReturned}, nil
	}
	env.loans.CancelLoanFunc = func(_ context.Context, input lending.CancelLoanInput) error {
		assert.Equal(t, loanID, input.LoanID)
		return nil
	}

	rec := env.do(http.MethodPut, "/api/loans/"+loanID.String()+"/return", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[loanResponse](t, rec)
	assert.Equal(t, "RETURNED", resp.Status)
	assert.True(t, resp.Returned)

	rec = env.do(http.MethodPut, "/api/loans/"+loanID.String()+"/return", "user-token", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodDelete, "/api/loans/"+loanID.String(), "admin-token", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRouter_ListLoans_Filters(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	itemID := uuid.New()

	env.loans.ListLoansFunc = func(_ context.Context, input lending.ListLoansInput) ([]domain.Loan, int, error) {
		require.NotNil(t, input.Status)
		assert.Equal(t, domain.LoanStatusPending, *input.Status)
		require.NotNil(t, input.ItemID)
		assert.Equal(t, itemID, *input.ItemID)
		assert.Nil(t, input.UserID)
		assert.Equal(t, 10, input.Limit)
		assert.Equal(t, 20, input.Offset)
		return []domain.Loan{{ID: uuid.New(), Status: domain.LoanStatusPending, ItemTitle: "Monster 3", UserName: "Tenma"}}, 21, nil
	}

	rec := env.do(http.MethodGet, "/api/loans?status=PENDING&itemId="+itemID.String()+"&limit=10&offset=20", "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[listResponse[loanResponse]](t, rec)
	assert.Equal(t, 21, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Monster 3", resp.Items[0].ItemTitle)
	assert.Equal(t, "Tenma", resp.Items[0].UserName)

	rec = env.do(http.MethodGet, "/api/loans?limit=ten", "admin-token", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_MineIsNotShadowedByID(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)

	called := false
	env.loans.ListUserLoansFunc = func(_ context.Context, input lending.ListUserLoansInput) ([]domain.Loan, int, error) {
		called = true
		assert.Equal(t, env.userID, input.UserID)
		return nil, 0, nil
	}

	rec := env.do(http.MethodGet, "/api/loans/mine", "user-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
	assert.Equal(t, 0, decodeBody[listResponse[loanResponse]](t, rec).Total)
}

func TestRouter_Availability(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	itemID, loanID := uuid.New(), uuid.New()

	env.loans.ItemAvailabilityFunc = func(_ context.Context, id uuid.UUID) (*domain.Availability, error) {
		return &domain.Availability{ItemID: id, ActiveLoanID: &loanID, Waiting: 2}, nil
	}

	rec := env.do(http.MethodGet, "/api/items/"+itemID.String()+"/availability", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[availabilityResponse](t, rec)
	assert.False(t, resp.Available)
	require.NotNil(t, resp.ActiveLoanID)
	assert.Equal(t, loanID.String(), *resp.ActiveLoanID)
	assert.Equal(t, 2, resp.Waiting)
}

func TestRouter_Waitlist(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	itemID := uuid.New()
	first, second := uuid.New(), uuid.New()

	env.waitlist.JoinFunc = func(_ context.Context, input waitlist.JoinInput) (*domain.WaitlistEntry, error) {
		if input.UserID == env.adminID {
			return nil, domain.ErrAlreadyWaiting
		}
		return &domain.WaitlistEntry{ID: uuid.New(), ItemID: input.ItemID, UserID: input.UserID}, nil
	}
	env.waitlist.LeaveFunc = func(context.Context, waitlist.LeaveInput) error { return domain.ErrNotFound }
	env.waitlist.ListFunc = func(_ context.Context, id uuid.UUID) ([]domain.WaitlistEntry, error) {
		return []domain.WaitlistEntry{
			{ID: uuid.New(), ItemID: id, UserID: first, UserName: "Kaneda", ItemTitle: "Akira 1"},
			{ID: uuid.New(), ItemID: id, UserID: env.userID, UserName: "Tetsuo", ItemTitle: "Akira 1"},
			{ID: uuid.New(), ItemID: id, UserID: second, UserName: "Kei", ItemTitle: "Akira 1"},
		}, nil
	}

	path := "/api/items/" + itemID.String() + "/waitlist"

	rec := env.do(http.MethodPost, path, "user-token", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, env.userID.String(), decodeBody[waitlistEntryResponse](t, rec).UserID)

	rec = env.do(http.MethodPost, path, "admin-token", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "ALREADY_WAITING", decodeBody[errorResponse](t, rec).Code)

	rec = env.do(http.MethodDelete, path, "user-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodGet, path, "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Readers see every position but only their own identity.
	rec = env.do(http.MethodGet, path, "user-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[listResponse[waitlistEntryResponse]](t, rec)
	require.Len(t, list.Items, 3)
	assert.Equal(t, 3, list.Total)
	for i, e := range list.Items {
		assert.Equal(t, i+1, e.Position)
		assert.Equal(t, "Akira 1", e.ItemTitle)
	}
	assert.Empty(t, list.Items[0].UserID)
	assert.Empty(t, list.Items[0].UserName)
	assert.False(t, list.Items[0].Mine)
	assert.True(t, list.Items[1].Mine)
	assert.Equal(t, env.userID.String(), list.Items[1].UserID)
	assert.Equal(t, "Tetsuo", list.Items[1].UserName)
	assert.Empty(t, list.Items[2].UserID)

	rec = env.do(http.MethodGet, path, "admin-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list = decodeBody[listResponse[waitlistEntryResponse]](t, rec)
	require.Len(t, list.Items, 3)
	assert.Equal(t, first.String(), list.Items[0].UserID)
	assert.Equal(t, "Kaneda", list.Items[0].UserName)
	assert.Equal(t, second.String(), list.Items[2].UserID)
	assert.False(t, list.Items[0].Mine)
}

func TestRouter_Notifications(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)
	noteID, itemID := uuid.New(), uuid.New()

	env.inbox.InboxFunc = func(_ context.Context, input notification.ListInput) ([]domain.Notification, int, error) {
		assert.Equal(t, env.userID, input.UserID)
		assert.Equal(t, 5, input.Limit)
		return []domain.Notification{{
			ID:         noteID,
			SenderID:   env.adminID,
			ReceiverID: env.userID,
			ItemID:     &itemID,
			Kind:       domain.NotificationItemAvailable,
			Content:    "available",
			SenderName: "Librarian",
			ItemTitle:  "Pluto 2",
		}}, 1, nil
	}
	env.inbox.MarkReadFunc = func(_ context.Context, input notification.ItemInput) error {
		if input.NotificationID != noteID {
			return domain.ErrNotFound
		}
		return nil
	}

	rec := env.do(http.MethodGet, "/api/notifications/inbox?limit=5", "user-token", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[listResponse[notificationResponse]](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "ITEM_AVAILABLE", list.Items[0].Kind)
	require.NotNil(t, list.Items[0].ItemID)
	assert.Equal(t, itemID.String(), *list.Items[0].ItemID)
	assert.Equal(t, "Librarian", list.Items[0].SenderName)
	assert.Equal(t, "Pluto 2", list.Items[0].ItemTitle)

	rec = env.do(http.MethodPut, "/api/notifications/"+noteID.String()+"/read", "user-token", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodPut, "/api/notifications/"+uuid.NewString()+"/read", "user-token", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/notifications/"+noteID.String(), "user-token", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/notifications/sent", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_RateLimitsLoanRequests(t *testing.T) {
	t.Parallel()
	limiter := middleware.NewRateLimiter(time.Minute)
	t.Cleanup(limiter.Stop)

	env := newRouterEnv(t, limiter)
	env.loans.RequestLoanFunc = func(_ context.Context, input lending.RequestLoanInput) (*domain.Loan, error) {
		return &domain.Loan{ID: uuid.New(), ItemID: input.ItemID, UserID: input.UserID}, nil
	}

	body := `{"itemId":"` + uuid.NewString() + `"}`
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/loans", "user-token", body).Code)
	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/loans", "user-token", body).Code)

	rec := env.do(http.MethodPost, "/api/loans", "user-token", body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/loans", "admin-token", body).Code,
		"budget is per caller")
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()
	env := newRouterEnv(t, nil)

	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/live", "", "").Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/ready", "", "").Code)

	rec := env.do(http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}
