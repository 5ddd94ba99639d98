package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pqops/ake-orchestrator/interfaces"
)

// Alias lists specific to the signature-backend contract.
var (
	ciphertextAliases      = []string{"ciphertext", "ct", "ciphertextB64"}
	sharedSecretAliases    = []string{"sharedSecret", "shared_secret", "ss", "sharedSecretB64"}
	kyberPublicKeyAliases  = []string{"kyberPublicKey", "kyber_public_key", "kemPublicKey"}
	kyberSecretKeyAliases  = []string{"kyberSecretKey", "kyber_secret_key", "kemSecretKey"}
	signerPublicKeyAliases = []string{"signerPublicKey", "signer_public_key", "publicKey", "public_key"}
	compressedAliases      = []string{"isCompressed", "is_compressed", "compressed"}
)

// Error codes a signature backend may use to flag a verification failure in
// a structured way. Checked before any wording-based fallback.
var verificationErrorCodes = map[string]bool{
	"signature_verification_failed": true,
	"verification_failed":           true,
	"invalid_signature":             true,
	"signature_mismatch":            true,
}

// SignerClient implements interfaces.Signer over a signature backend's HTTP
// contract. One client serves both schemes; the scheme only appears in the
// sign path.
type SignerClient struct {
	Client *http.Client
}

// NewSignerClient creates a signer client with a default HTTP client.
func NewSignerClient() *SignerClient {
	return &SignerClient{Client: &http.Client{}}
}

// SignerInfo fetches the backend's advertised signer metadata.
func (c *SignerClient) SignerInfo(ctx context.Context, base string) (*interfaces.SignerInfo, error) {
	resp, err := doJSON(ctx, c.Client, http.MethodGet, base+"/orchestrator/signer", nil, infoTimeout)
	if err != nil {
		return nil, fmt.Errorf("could not fetch signer info: %w", err)
	}

	return &interfaces.SignerInfo{
		PublicKey: firstString(resp, publicKeyAliases),
		Level:     firstString(resp, levelAliases),
		Kid:       firstString(resp, kidAliases),
	}, nil
}

// Sign requests a signature over messageB64 from the backend's own sign
// endpoint for the given scheme.
func (c *SignerClient) Sign(ctx context.Context, base string, scheme interfaces.Scheme, messageB64, level string) (*interfaces.SignResult, error) {
	body := map[string]any{"messageBase64": messageB64}
	if level != "" {
		body["level"] = level
	}

	resp, err := doJSON(ctx, c.Client, http.MethodPost, fmt.Sprintf("%s/%s/sign", base, scheme), body, cryptoTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s sign call failed: %w", scheme, err)
	}

	signature, err := requireString(resp, "signature", signatureAliases)
	if err != nil {
		return nil, err
	}

	return &interfaces.SignResult{
		Signature:    signature,
		Level:        firstString(resp, levelAliases),
		Kid:          firstString(resp, kidAliases),
		IsCompressed: firstBool(resp, compressedAliases),
	}, nil
}

// Bootstrap runs the backend's combined generate-and-sign call. The
// returned keypair, when present, supersedes any keypair generated earlier
// in the orchestration flow.
func (c *SignerClient) Bootstrap(ctx context.Context, base string) (*interfaces.BootstrapResult, error) {
	resp, err := doJSON(ctx, c.Client, http.MethodPost, base+"/orchestrator/bootstrap", map[string]any{}, cryptoTimeout)
	if err != nil {
		return nil, fmt.Errorf("bootstrap call failed: %w", err)
	}

	signature, err := requireString(resp, "signature", signatureAliases)
	if err != nil {
		return nil, err
	}

	return &interfaces.BootstrapResult{
		Signature:       signature,
		SignerPublicKey: firstString(resp, signerPublicKeyAliases),
		Level:           firstString(resp, levelAliases),
		KyberPublicKey:  firstString(resp, kyberPublicKeyAliases),
		KyberSecretKey:  firstString(resp, kyberSecretKeyAliases),
	}, nil
}

// EncapsulateVerified submits a signing context for verification and, on
// success, encapsulation. A rejected signature comes back as a
// *interfaces.VerificationError so the strategy chain can advance; any
// other failure is a plain error and aborts the request.
func (c *SignerClient) EncapsulateVerified(ctx context.Context, base string, sctx *interfaces.SigningContext) (*interfaces.EncapsulationResult, error) {
	body := map[string]any{
		"kyberPublicKey":  sctx.KyberPublicKey,
		"signature":       sctx.Signature,
		"signerPublicKey": sctx.SignerPublicKey,
	}
	if sctx.SignerLevel != "" {
		body["level"] = sctx.SignerLevel
	}
	if sctx.IsCompressed {
		body["isCompressed"] = true
	}

	resp, err := doJSON(ctx, c.Client, http.MethodPost, base+"/orchestrator/encapsulate-verified", body, cryptoTimeout)
	if err != nil {
		if verr := asVerificationError(err); verr != nil {
			return nil, verr
		}
		return nil, fmt.Errorf("encapsulate-verified call failed: %w", err)
	}

	ciphertext, err := requireString(resp, "ciphertext", ciphertextAliases)
	if err != nil {
		return nil, err
	}
	sharedSecret, err := requireString(resp, "sharedSecret", sharedSecretAliases)
	if err != nil {
		return nil, err
	}

	return &interfaces.EncapsulationResult{Ciphertext: ciphertext, SharedSecret: sharedSecret}, nil
}

// asVerificationError classifies a downstream failure as a signature
// verification rejection. A structured error code in the response body is
// authoritative; wording is only consulted as a fallback for backends that
// return bare error text.
func asVerificationError(err error) *interfaces.VerificationError {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		return nil
	}

	detail := strings.TrimSpace(string(apiErr.Body))

	var parsed map[string]any
	if json.Unmarshal(apiErr.Body, &parsed) == nil {
		code := firstString(parsed, []string{"error", "code"})
		if verificationErrorCodes[code] {
			if d := firstString(parsed, []string{"detail", "message"}); d != "" {
				detail = d
			}
			return &interfaces.VerificationError{Detail: detail}
		}
		if d := firstString(parsed, []string{"detail", "message", "error"}); d != "" {
			detail = d
		}
	}

	lower := strings.ToLower(detail)
	if strings.Contains(lower, "signature mismatch") ||
		strings.Contains(lower, "verification failed") ||
		strings.Contains(lower, "invalid signature") ||
		strings.Contains(lower, "could not verify") {
		return &interfaces.VerificationError{Detail: detail}
	}

	return nil
}
