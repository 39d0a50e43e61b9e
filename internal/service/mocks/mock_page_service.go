package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"pdfedit/internal/model"
)

type MockPageService struct {
	mock.Mock
}

func (m *MockPageService) result(args mock.Arguments) (*model.Document, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockPageService) Rotate(ctx context.Context, id string, page, angle int) (*model.Document, error) {
	return m.result(m.Called(ctx, id, page, angle))
}

func (m *MockPageService) Duplicate(ctx context.Context, id string, page int) (*model.Document, error) {
	return m.result(m.Called(ctx, id, page))
}

func (m *MockPageService) DeletePage(ctx context.Context, id string, page int) (*model.Document, error) {
	return m.result(m.Called(ctx, id, page))
}

func (m *MockPageService) Reorder(ctx context.Context, id string, order []int) (*model.Document, error) {
	return m.result(m.Called(ctx, id, order))
}
