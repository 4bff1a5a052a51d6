// Package mocks provides mock implementations for testing credential handlers.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	credentialsDomain "github.com/allisson/credstore/internal/credentials/domain"
	credentialsUseCase "github.com/allisson/credstore/internal/credentials/usecase"
)

// MockCredentialUseCase is a mock implementation of CredentialUseCase for testing.
type MockCredentialUseCase struct {
	mock.Mock
}

func (m *MockCredentialUseCase) version(args mock.Arguments) (*credentialsDomain.CredentialVersion, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialsDomain.CredentialVersion), args.Error(1)
}

// GenerateOrConverge mocks the GenerateOrConverge method of CredentialUseCase.
func (m *MockCredentialUseCase) GenerateOrConverge(
	ctx context.Context,
	input credentialsUseCase.GenerateInput,
) (*credentialsDomain.CredentialVersion, error) {
	return m.version(m.Called(ctx, input))
}

// Set mocks the Set method of CredentialUseCase.
func (m *MockCredentialUseCase) Set(
	ctx context.Context,
	input credentialsUseCase.SetInput,
) (*credentialsDomain.CredentialVersion, error) {
	return m.version(m.Called(ctx, input))
}

// Get mocks the Get method of CredentialUseCase.
func (m *MockCredentialUseCase) Get(ctx context.Context, name string) (*credentialsDomain.CredentialVersion, error) {
	return m.version(m.Called(ctx, name))
}

// GetVersions mocks the GetVersions method of CredentialUseCase.
func (m *MockCredentialUseCase) GetVersions(
	ctx context.Context,
	name string,
	limit int,
) ([]*credentialsDomain.CredentialVersion, error) {
	args := m.Called(ctx, name, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialsDomain.CredentialVersion), args.Error(1)
}

// GetByID mocks the GetByID method of CredentialUseCase.
func (m *MockCredentialUseCase) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*credentialsDomain.CredentialVersion, error) {
	return m.version(m.Called(ctx, id))
}

// Delete mocks the Delete method of CredentialUseCase.
func (m *MockCredentialUseCase) Delete(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}
