package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/wagateway/gateway-server-go/internal/model"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchMedia(ctx context.Context, evt *model.InboundEvent) (*model.MediaFile, error) {
	args := m.Called(ctx, evt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.MediaFile), args.Error(1)
}

type mockBlobStore struct {
	mock.Mock
}

func (m *mockBlobStore) Upload(ctx context.Context, data []byte, fileName, dir string) *string {
	args := m.Called(ctx, data, fileName, dir)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*string)
}

func (m *mockBlobStore) Dir(category model.MediaCategory) string {
	return "/public_html/acme/" + string(category)
}

func strPtr(s string) *string {
	return &s
}
