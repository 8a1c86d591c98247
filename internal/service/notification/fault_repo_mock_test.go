package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/mangalend-backend/internal/domain"
)

var _ faultRepo = &faultRepoMock{}

type faultRepoMock struct {
	CreateFunc         func(ctx context.Context, f *domain.DeliveryFault) error
	ListUnresolvedFunc func(ctx context.Context, limit int) ([]domain.DeliveryFault, error)
	ResolveFunc        func(ctx context.Context, id uuid.UUID, at time.Time) error
	RecordAttemptFunc  func(ctx context.Context, id uuid.UUID, cause error) error

	calls struct {
		Create []struct {
			Ctx context.Context
			F   *domain.DeliveryFault
		}
		ListUnresolved []struct {
			Ctx   context.Context
			Limit int
		}
		Resolve []struct {
			Ctx context.Context
			ID  uuid.UUID
			At  time.Time
		}
		RecordAttempt []struct {
			Ctx   context.Context
			ID    uuid.UUID
			Cause error
		}
	}
	lockCreate         sync.RWMutex
	lockListUnresolved sync.RWMutex
	lockResolve        sync.RWMutex
	lockRecordAttempt  sync.RWMutex
}

func (mock *faultRepoMock) Create(ctx context.Context, f *domain.DeliveryFault) error {
	if mock.CreateFunc == nil {
		panic("faultRepoMock.CreateFunc: method is nil but faultRepo.Create was just called")
	}
	callInfo := struct {
		Ctx context.Context
		F   *domain.DeliveryFault
	}{Ctx: ctx, F: f}
	mock.lockCreate.Lock()
	mock.calls.Create = append(mock.calls.Create, callInfo)
	mock.lockCreate.Unlock()
	return mock.CreateFunc(ctx, f)
}

func (mock *faultRepoMock) CreateCalls() []struct {
	Ctx context.Context
	F   *domain.DeliveryFault
} {
	mock.lockCreate.RLock()
	calls := mock.calls.Create
	mock.lockCreate.RUnlock()
	return calls
}

func (mock *faultRepoMock) ListUnresolved(ctx context.Context, limit int) ([]domain.DeliveryFault, error) {
	if mock.ListUnresolvedFunc == nil {
		panic("faultRepoMock.ListUnresolvedFunc: method is nil but faultRepo.ListUnresolved was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		Limit int
	}{Ctx: ctx, Limit: limit}
	mock.lockListUnresolved.Lock()
	mock.calls.ListUnresolved = append(mock.calls.ListUnresolved, callInfo)
	mock.lockListUnresolved.Unlock()
	return mock.ListUnresolvedFunc(ctx, limit)
}

func (mock *faultRepoMock) ListUnresolvedCalls() []struct {
	Ctx   context.Context
	Limit int
} {
	mock.lockListUnresolved.RLock()
	calls := mock.calls.ListUnresolved
	mock.lockListUnresolved.RUnlock()
	return calls
}

func (mock *faultRepoMock) Resolve(ctx context.Context, id uuid.UUID, at time.Time) error {
	if mock.ResolveFunc == nil {
		panic("faultRepoMock.ResolveFunc: method is nil but faultRepo.Resolve was just called")
	}
	callInfo := struct {
		Ctx context.Context
		ID  uuid.UUID
		At  time.Time
	}{Ctx: ctx, ID: id, At: at}
	mock.lockResolve.Lock()
	mock.calls.Resolve = append(mock.calls.Resolve, callInfo)
	mock.lockResolve.Unlock()
	return mock.ResolveFunc(ctx, id, at)
}

func (mock *faultRepoMock) ResolveCalls() []struct {
	Ctx context.Context
	ID  uuid.UUID
	At  time.Time
} {
	mock.lockResolve.RLock()
	calls := mock.calls.Resolve
	mock.lockResolve.RUnlock()
	return calls
}

func (mock *faultRepoMock) RecordAttempt(ctx context.Context, id uuid.UUID, cause error) error {
	if mock.RecordAttemptFunc == nil {
		panic("faultRepoMock.RecordAttemptFunc: method is nil but faultRepo.RecordAttempt was just called")
	}
	callInfo := struct {
		Ctx   context.Context
		ID    uuid.UUID
		Cause error
	}{Ctx: ctx, ID: id, Cause: cause}
	mock.lockRecordAttempt.Lock()
	mock.calls.RecordAttempt = append(mock.calls.RecordAttempt, callInfo)
	mock.lockRecordAttempt.Unlock()
	return mock.RecordAttemptFunc(ctx, id, cause)
}

func (mock *faultRepoMock) RecordAttemptCalls() []struct {
	Ctx   context.Context
	ID    uuid.UUID
	Cause error
} {
	mock.lockRecordAttempt.RLock()
	calls := mock.calls.RecordAttempt
	mock.lockRecordAttempt.RUnlock()
	return calls
}
