package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pqops/ake-orchestrator/interfaces"
)

// rotationSignatureAliases covers the rotation service's own field naming
// for signatures, which differs from the signature backends'.
var rotationSignatureAliases = []string{"signatureB64", "signature", "sig"}

// RotationClient implements interfaces.Rotation over the optional
// key-rotation backend's HTTP contract.
type RotationClient struct {
	Client *http.Client
}

// NewRotationClient creates a rotation client with a default HTTP client.
func NewRotationClient() *RotationClient {
	return &RotationClient{Client: &http.Client{}}
}

// CurrentKey returns the active public key for the rotation algorithm
// identifier, or "" with a nil error when the service has no active key.
func (c *RotationClient) CurrentKey(ctx context.Context, base, alg string) (string, error) {
	u := fmt.Sprintf("%s/orchestrator/keys/current?alg=%s", base, url.QueryEscape(alg))
	resp, err := doJSON(ctx, c.Client, http.MethodGet, u, nil, infoTimeout)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("could not query current rotation key: %w", err)
	}

	return firstString(resp, publicKeyAliases), nil
}

// Rotate provisions a fresh active key for the algorithm.
func (c *RotationClient) Rotate(ctx context.Context, base, alg, level string) error {
	body := map[string]any{"alg": alg}
	if level != "" {
		body["level"] = level
	}

	if _, err := doJSON(ctx, c.Client, http.MethodPost, base+"/keys/rotate", body, cryptoTimeout); err != nil {
		return fmt.Errorf("key rotation failed: %w", err)
	}
	return nil
}

// Sign requests a signature over messageB64 with the algorithm's active key.
func (c *RotationClient) Sign(ctx context.Context, base, alg, messageB64 string) (*interfaces.SignResult, error) {
	resp, err := doJSON(ctx, c.Client, http.MethodPost, base+"/sign", map[string]any{
		"alg":        alg,
		"messageB64": messageB64,
	}, cryptoTimeout)
	if err != nil {
		return nil, fmt.Errorf("rotation sign call failed: %w", err)
	}

	signature, err := requireString(resp, "signature", rotationSignatureAliases)
	if err != nil {
		return nil, err
	}

	return &interfaces.SignResult{
		Signature:    signature,
		Kid:          firstString(resp, kidAliases),
		IsCompressed: firstBool(resp, compressedAliases),
	}, nil
}
