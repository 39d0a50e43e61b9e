package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pdfedit/internal/model"
)

type MockEditModelRepository struct {
	mock.Mock
}

func (m *MockEditModelRepository) Find(ctx context.Context, documentID string) (*model.EditRecord, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EditRecord), args.Error(1)
}

func (m *MockEditModelRepository) Save(ctx context.Context, rec *model.EditRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockEditModelRepository) Delete(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}
