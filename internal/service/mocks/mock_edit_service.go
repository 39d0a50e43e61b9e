package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pdfedit/internal/model"
)

type MockEditService struct {
	mock.Mock
}

func (m *MockEditService) Load(ctx context.Context, id string) (*model.EditModel, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EditModel), args.Error(1)
}

func (m *MockEditService) Save(ctx context.Context, id string, em *model.EditModel) (*model.EditModel, error) {
	args := m.Called(ctx, id, em)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.EditModel), args.Error(1)
}
