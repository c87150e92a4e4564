package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wagateway/gateway-server-go/internal/model"
	"github.com/wagateway/gateway-server-go/internal/service"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendMessage(ctx context.Context, phone, text string) (*service.SendResult, error) {
	args := m.Called(ctx, phone, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SendResult), args.Error(1)
}

type mockQRSource struct {
	mock.Mock
}

func (m *mockQRSource) PNG(size int) ([]byte, error) {
	args := m.Called(size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type mockStatusSource struct {
	mock.Mock
}

func (m *mockStatusSource) Status() model.SessionStatus {
	args := m.Called()
	return args.Get(0).(model.SessionStatus)
}

type mockPinger struct {
	mock.Mock
}

func (m *mockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
