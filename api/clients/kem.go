package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pqops/ake-orchestrator/interfaces"
)

// Alias lists specific to the KEM contract.
var (
	kemSecretKeyAliases    = []string{"secretKey", "secret_key", "privateKey", "secretKeyB64"}
	kemSharedSecretAliases = []string{"sharedSecret", "shared_secret", "ss", "sharedSecretB64"}
)

// KEMClient implements interfaces.KEM over the KEM backend's HTTP contract.
type KEMClient struct {
	Client *http.Client
}

// NewKEMClient creates a KEM client with a default HTTP client.
func NewKEMClient() *KEMClient {
	return &KEMClient{Client: &http.Client{}}
}

// GenerateKeypair requests a fresh KEM keypair from the backend at base.
func (c *KEMClient) GenerateKeypair(ctx context.Context, base string) (*interfaces.KyberKeypair, error) {
	resp, err := doJSON(ctx, c.Client, http.MethodPost, base+"/kyber/generate-keypair", map[string]any{}, cryptoTimeout)
	if err != nil {
		return nil, fmt.Errorf("kyber keypair generation failed: %w", err)
	}

	publicKey, err := requireString(resp, "publicKey", publicKeyAliases)
	if err != nil {
		return nil, err
	}
	secretKey, err := requireString(resp, "secretKey", kemSecretKeyAliases)
	if err != nil {
		return nil, err
	}

	return &interfaces.KyberKeypair{PublicKey: publicKey, SecretKey: secretKey}, nil
}

// Decapsulate recovers the shared secret for ciphertext under secretKey.
func (c *KEMClient) Decapsulate(ctx context.Context, base, secretKey, ciphertext string) (string, error) {
	resp, err := doJSON(ctx, c.Client, http.MethodPost, base+"/kyber/decapsulate", map[string]any{
		"secretKey":  secretKey,
		"ciphertext": ciphertext,
	}, cryptoTimeout)
	if err != nil {
		return "", fmt.Errorf("kyber decapsulation failed: %w", err)
	}

	return requireString(resp, "sharedSecret", kemSharedSecretAliases)
}
