package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRenderService struct {
	mock.Mock
}

func (m *MockRenderService) Render(ctx context.Context, id string, page int, scale float64) ([]byte, bool, error) {
	args := m.Called(ctx, id, page, scale)
	b, _ := args.Get(0).([]byte)
	return b, args.Bool(1), args.Error(2)
}

func (m *MockRenderService) DefaultScale() float64 {
	args := m.Called()
	return args.Get(0).(float64)
}
