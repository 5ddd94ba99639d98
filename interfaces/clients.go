package interfaces

import (
	"context"
	"fmt"
)

// KyberKeypair is a freshly generated KEM keypair, base64-encoded as
// returned by the KEM backend.
type KyberKeypair struct {
	PublicKey string
	SecretKey string
}

// EncapsulationResult is the output of a verified encapsulation: a KEM
// ciphertext and the encapsulation-side shared secret.
type EncapsulationResult struct {
	Ciphertext   string
	SharedSecret string
}

// SignerInfo is the signature backend's advertised signer metadata, used as
// a fallback when a signing strategy omits fields.
type SignerInfo struct {
	PublicKey string
	Level     string
	Kid       string
}

// SignResult is a signature produced by a backend over a caller-supplied
// message.
type SignResult struct {
	Signature    string
	Level        string
	Kid          string
	IsCompressed bool
}

// BootstrapResult is the output of a signature backend's combined bootstrap
// call: a signature over a KEM public key generated by the backend itself,
// together with that keypair.
type BootstrapResult struct {
	Signature       string
	SignerPublicKey string
	Level           string
	KyberPublicKey  string
	KyberSecretKey  string
}

// KEM is the key-encapsulation backend contract.
type KEM interface {
	// GenerateKeypair requests a fresh KEM keypair.
	GenerateKeypair(ctx context.Context, base string) (*KyberKeypair, error)

	// Decapsulate recovers the shared secret from a ciphertext using the
	// matching secret key.
	Decapsulate(ctx context.Context, base, secretKey, ciphertext string) (string, error)
}

// Signer is the per-scheme signature backend contract.
type Signer interface {
	// SignerInfo fetches the backend's signer metadata.
	SignerInfo(ctx context.Context, base string) (*SignerInfo, error)

	// Sign requests a signature over the base64-encoded message.
	Sign(ctx context.Context, base string, scheme Scheme, messageB64, level string) (*SignResult, error)

	// Bootstrap runs the backend's combined keypair+sign call.
	Bootstrap(ctx context.Context, base string) (*BootstrapResult, error)

	// EncapsulateVerified verifies the signature over the KEM public key
	// and, on success, encapsulates against it. A signature that fails to
	// validate is reported as a *VerificationError; any other failure is a
	// plain error.
	EncapsulateVerified(ctx context.Context, base string, sctx *SigningContext) (*EncapsulationResult, error)
}

// Rotation is the optional key-rotation backend contract.
type Rotation interface {
	// CurrentKey returns the active public key for the algorithm, or
	// ("", nil) when no active key exists.
	CurrentKey(ctx context.Context, base, alg string) (string, error)

	// Rotate provisions a fresh active key for the algorithm.
	Rotate(ctx context.Context, base, alg, level string) error

	// Sign requests a signature over the base64-encoded message with the
	// algorithm's active key.
	Sign(ctx context.Context, base, alg, messageB64 string) (*SignResult, error)
}

// VerificationError is a structured signature-verification failure from the
// verify-and-encapsulate call. It is the one downstream failure the signing
// strategy chain recovers from by advancing to the next strategy; every
// other failure aborts the request.
type VerificationError struct {
	Detail string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("signature verification failed: %s", e.Detail)
}
