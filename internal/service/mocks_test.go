package service_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"harvest-wallet-backend/internal/domain"
	"harvest-wallet-backend/internal/repository"
)

type MockLedgerStore struct {
	mock.Mock
}

func (m *MockLedgerStore) RunTransaction(ctx context.Context, fn repository.TxFunc) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockLedgerStore) Scan(ctx context.Context, collection string, visit repository.VisitFunc) error {
	args := m.Called(ctx, collection, visit)
	return args.Error(0)
}

func (m *MockLedgerStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.LedgerEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Seen(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Remember(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}
