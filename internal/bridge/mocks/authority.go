// Package mocks holds testify mocks for the bridge's collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"parambridge/internal/param"
)

// Authority is a testify mock of bridge.Authority.
type Authority struct {
	mock.Mock
}

func (m *Authority) Descriptors(ctx context.Context) (map[param.ID]param.Descriptor, error) {
	args := m.Called(ctx)
	descs, _ := args.Get(0).(map[param.ID]param.Descriptor)
	return descs, args.Error(1)
}

func (m *Authority) RequestFullSync(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *Authority) PushValue(ctx context.Context, id param.ID, value float64) error {
	return m.Called(ctx, id, value).Error(0)
}

func (m *Authority) BeginGrab(ctx context.Context, id param.ID) (param.GrabHandle, error) {
	args := m.Called(ctx, id)
	h, _ := args.Get(0).(param.GrabHandle)
	return h, args.Error(1)
}

func (m *Authority) MoveGrab(ctx context.Context, h param.GrabHandle, value float64) error {
	return m.Called(ctx, h, value).Error(0)
}

func (m *Authority) EndGrab(ctx context.Context, h param.GrabHandle) error {
	return m.Called(ctx, h).Error(0)
}

func (m *Authority) Listen(fn param.NotifyFunc) (func(), error) {
	args := m.Called(fn)
	stop, _ := args.Get(0).(func())
	return stop, args.Error(1)
}
