package handler

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"kitstock-api/internal/model"
	"kitstock-api/internal/service"
)

type MockKitService struct {
	mock.Mock
}

func (m *MockKitService) List(ctx context.Context) ([]model.Kit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Kit), args.Error(1)
}

func (m *MockKitService) ListAvailable(ctx context.Context, quantity int) ([]model.Kit, error) {
	args := m.Called(ctx, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Kit), args.Error(1)
}

func (m *MockKitService) Sell(ctx context.Context, in service.SellInput) (*model.Kit, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Kit), args.Error(1)
}

func (m *MockKitService) AddDummy(ctx context.Context) ([]model.Kit, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Kit), args.Error(1)
}

func (m *MockKitService) Import(ctx context.Context, r io.Reader) ([]model.Kit, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, string(data))
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Kit), args.Error(1)
}

func (m *MockKitService) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockKitService) DeleteMany(ctx context.Context, ids []string) (*service.DeleteResult, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DeleteResult), args.Error(1)
}

func (m *MockKitService) MakeAvailable(ctx context.Context, ids []string) ([]model.Kit, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Kit), args.Error(1)
}

func (m *MockKitService) Stats(ctx context.Context) (model.KitCounts, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.KitCounts), args.Error(1)
}

type MockCODService struct {
	mock.Mock
}

func (m *MockCODService) Create(ctx context.Context, in service.CreateCODInput) (*model.CODWithKits, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CODWithKits), args.Error(1)
}

func (m *MockCODService) List(ctx context.Context) ([]model.CODOrder, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CODOrder), args.Error(1)
}

func (m *MockCODService) Get(ctx context.Context, id string) (*model.CODOrder, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockCODService) Confirm(ctx context.Context, id string) (*model.CODOrder, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockCODService) Cancel(ctx context.Context, id string) (*model.CODOrder, error) {
	return m.order(m.Called(ctx, id))
}

func (m *MockCODService) order(args mock.Arguments) (*model.CODOrder, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CODOrder), args.Error(1)
}

type MockReturnService struct {
	mock.Mock
}

func (m *MockReturnService) Create(ctx context.Context, in service.CreateReturnInput) (*model.ReturnTicket, error) {
	return m.ticket(m.Called(ctx, in))
}

func (m *MockReturnService) List(ctx context.Context) ([]model.ReturnTicket, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ReturnTicket), args.Error(1)
}

func (m *MockReturnService) Get(ctx context.Context, id string) (*model.ReturnTicket, error) {
	return m.ticket(m.Called(ctx, id))
}

func (m *MockReturnService) Act(ctx context.Context, id, action string) (*model.ReturnTicket, error) {
	return m.ticket(m.Called(ctx, id, action))
}

func (m *MockReturnService) ticket(args mock.Arguments) (*model.ReturnTicket, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReturnTicket), args.Error(1)
}

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, username, password string) (*service.LoginResult, error) {
	args := m.Called(ctx, username, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LoginResult), args.Error(1)
}
