package interfaces

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockKEM is a testify mock for the KEM collaborator.
type MockKEM struct {
	mock.Mock
}

func (m *MockKEM) GenerateKeypair(ctx context.Context, base string) (*KyberKeypair, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*KyberKeypair), args.Error(1)
}

func (m *MockKEM) Decapsulate(ctx context.Context, base, secretKey, ciphertext string) (string, error) {
	args := m.Called(ctx, base, secretKey, ciphertext)
	return args.String(0), args.Error(1)
}

// MockSigner is a testify mock for the signature-backend collaborator.
type MockSigner struct {
	mock.Mock
}

func (m *MockSigner) SignerInfo(ctx context.Context, base string) (*SignerInfo, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SignerInfo), args.Error(1)
}

func (m *MockSigner) Sign(ctx context.Context, base string, scheme Scheme, messageB64, level string) (*SignResult, error) {
	args := m.Called(ctx, base, scheme, messageB64, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SignResult), args.Error(1)
}

func (m *MockSigner) Bootstrap(ctx context.Context, base string) (*BootstrapResult, error) {
	args := m.Called(ctx, base)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*BootstrapResult), args.Error(1)
}

func (m *MockSigner) EncapsulateVerified(ctx context.Context, base string, sctx *SigningContext) (*EncapsulationResult, error) {
	args := m.Called(ctx, base, sctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*EncapsulationResult), args.Error(1)
}

// MockRotation is a testify mock for the rotation collaborator.
type MockRotation struct {
	mock.Mock
}

func (m *MockRotation) CurrentKey(ctx context.Context, base, alg string) (string, error) {
	args := m.Called(ctx, base, alg)
	return args.String(0), args.Error(1)
}

func (m *MockRotation) Rotate(ctx context.Context, base, alg, level string) error {
	args := m.Called(ctx, base, alg, level)
	return args.Error(0)
}

func (m *MockRotation) Sign(ctx context.Context, base, alg, messageB64 string) (*SignResult, error) {
	args := m.Called(ctx, base, alg, messageB64)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SignResult), args.Error(1)
}
