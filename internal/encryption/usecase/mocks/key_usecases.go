// Package mocks provides mock implementations for testing key administration handlers.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	encryptionDomain "github.com/allisson/credstore/internal/encryption/domain"
	encryptionUseCase "github.com/allisson/credstore/internal/encryption/usecase"
)

// MockKeySetUseCase is a mock implementation of KeySetUseCase for testing.
type MockKeySetUseCase struct {
	mock.Mock
}

// Build mocks the Build method of KeySetUseCase.
func (m *MockKeySetUseCase) Build(
	ctx context.Context,
	cfg *encryptionDomain.KeysConfig,
) (*encryptionDomain.KeySet, error) {
	args := m.Called(ctx, cfg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*encryptionDomain.KeySet), args.Error(1)
}

// Load mocks the Load method of KeySetUseCase.
func (m *MockKeySetUseCase) Load(ctx context.Context, cfg *encryptionDomain.KeysConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

// Reload mocks the Reload method of KeySetUseCase.
func (m *MockKeySetUseCase) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// RotateActiveKey mocks the RotateActiveKey method of KeySetUseCase.
func (m *MockKeySetUseCase) RotateActiveKey(ctx context.Context, metadata encryptionDomain.KeyMetadata) error {
	return m.Called(ctx, metadata).Error(0)
}

// Current mocks the Current method of KeySetUseCase.
func (m *MockKeySetUseCase) Current() *encryptionDomain.KeySet {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*encryptionDomain.KeySet)
}

// Config mocks the Config method of KeySetUseCase.
func (m *MockKeySetUseCase) Config() *encryptionDomain.KeysConfig {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*encryptionDomain.KeysConfig)
}

// MockRotatorUseCase is a mock implementation of RotatorUseCase for testing.
type MockRotatorUseCase struct {
	mock.Mock
}

// Rotate mocks the Rotate method of RotatorUseCase.
func (m *MockRotatorUseCase) Rotate(ctx context.Context, batchSize int) (*encryptionUseCase.RotationResult, error) {
	args := m.Called(ctx, batchSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*encryptionUseCase.RotationResult), args.Error(1)
}
