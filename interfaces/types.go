// Package interfaces defines the core types and collaborator contracts of
// the AKE orchestrator. It provides the contract between components without
// implementation details.
package interfaces

import (
	"errors"
	"fmt"
)

// Scheme identifies one of the two interchangeable signature algorithms the
// policy chooses between.
type Scheme string

const (
	SchemeDilithium Scheme = "dilithium"
	SchemeFalcon    Scheme = "falcon"
)

// NewScheme validates a caller-supplied scheme name.
func NewScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeDilithium, SchemeFalcon:
		return Scheme(s), nil
	}
	return "", fmt.Errorf("unknown signature scheme %q", s)
}

// String returns the scheme name as used on the wire.
func (s Scheme) String() string { return string(s) }

// DefaultLevel returns the parameter-set level used when the caller gives
// no usable level hint.
func (s Scheme) DefaultLevel() int {
	if s == SchemeFalcon {
		return 1
	}
	return 3
}

// BackendHealth reports reachability of one logical backend. Base is set
// iff Reachable is true.
type BackendHealth struct {
	Reachable bool    `json:"reachable"`
	Base      *string `json:"base"`
}

// HealthReport is the composed view over all four logical backends.
// Status is "ok" iff the KEM backend and at least one signature backend are
// reachable, "degraded" otherwise. Produced fresh on every call; never
// cached.
type HealthReport struct {
	Status    string        `json:"status"`
	Kyber     BackendHealth `json:"kyber"`
	Dilithium BackendHealth `json:"dilithium"`
	Falcon    BackendHealth `json:"falcon"`
	Rotation  BackendHealth `json:"rotation"`
}

const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
)

// SelectionInput carries the caller-supplied hints for scheme selection.
// Validation is deliberately loose: a non-numeric or non-positive payload
// hint is ignored rather than rejected.
type SelectionInput struct {
	// PayloadHintBytes is the expected payload size of the caller's
	// channel. Hints at or below PayloadTightThreshold prefer the scheme
	// with the smaller signature. Zero or negative means no hint.
	PayloadHintBytes int64

	// PolicyPreferredSig is an explicit scheme preference. A preference
	// for an unreachable backend is silently ignored.
	PolicyPreferredSig Scheme

	// Level is an optional parameter-set level hint, clamped to [1,5].
	Level string
}

// PayloadTightThreshold is the payload-size cutoff (bytes) at or below
// which the smaller-signature scheme is preferred.
const PayloadTightThreshold = 1024

// Selection reasons, exactly one per decision.
const (
	ReasonPayloadTight    = "payload_tight"
	ReasonDefaultOrHealth = "default_or_health"
)

// PolicyReason builds the reason string for an honored explicit preference.
func PolicyReason(s Scheme) string { return "policy:" + string(s) }

// SchemeDecision is the outcome of the selection policy.
type SchemeDecision struct {
	Scheme Scheme `json:"scheme"`
	Reason string `json:"reason"`
}

// ErrNoSignatureService indicates neither signature backend answered a
// liveness probe.
var ErrNoSignatureService = errors.New("no signature service reachable")

// SigningContextSource records which strategy produced a signing context.
type SigningContextSource string

const (
	SourceRotation  SigningContextSource = "rotation"
	SourceDirect    SigningContextSource = "direct"
	SourceBootstrap SigningContextSource = "bootstrap"
)

// SigningContext is a verifiable signature over a KEM public key together
// with the keypair it was computed over. The Kyber keypair must originate
// from the same key-generation call the signature covers: a context from
// the bootstrap strategy therefore carries bootstrap's own keypair,
// superseding any keypair generated earlier in the flow.
type SigningContext struct {
	Source          SigningContextSource
	Signature       string
	SignerPublicKey string
	SignerLevel     string
	SignerKid       string
	KyberPublicKey  string
	KyberSecretKey  string
	IsCompressed    bool
}

// Complete reports whether the context carries every field required for
// downstream verification. An incomplete context must be discarded without
// being submitted.
func (c *SigningContext) Complete() bool {
	return c != nil &&
		c.Signature != "" &&
		c.SignerPublicKey != "" &&
		c.KyberPublicKey != "" &&
		c.KyberSecretKey != ""
}

// KyberResult carries the KEM-side numbers of an AKE round trip.
type KyberResult struct {
	CiphertextLen int `json:"ciphertextLen"`
}

// AkeResult is the outcome of one full AKE round trip. A shared-secret
// mismatch is a successful orchestration outcome signalling a downstream
// correctness problem, not an orchestrator error.
type AkeResult struct {
	Status            string      `json:"status"`
	SchemeSelected    Scheme      `json:"schemeSelected"`
	Reason            string      `json:"reason"`
	SignerLevel       string      `json:"signerLevel"`
	SignerKid         string      `json:"signerKid,omitempty"`
	Kyber             KyberResult `json:"kyber"`
	SharedSecretMatch bool        `json:"sharedSecretMatch"`
}

const (
	AkeStatusOK       = "ok"
	AkeStatusMismatch = "mismatch"
)
