package ake

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pqops/ake-orchestrator/config"
	"github.com/pqops/ake-orchestrator/interfaces"
	"github.com/pqops/ake-orchestrator/metrics"
	"github.com/pqops/ake-orchestrator/probe"
)

// Orchestrator drives the full authenticated key exchange across the
// configured backends. It holds no per-request state; every RunAKE call is
// independent.
type Orchestrator struct {
	prober   *probe.Prober
	backends config.Backends
	kem      interfaces.KEM
	signer   interfaces.Signer
	rotation interfaces.Rotation
	log      *slog.Logger
}

// NewOrchestrator creates an orchestrator with the specified dependencies.
func NewOrchestrator(prober *probe.Prober, backends config.Backends, kem interfaces.KEM, signer interfaces.Signer, rotation interfaces.Rotation, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		prober:   prober,
		backends: backends,
		kem:      kem,
		signer:   signer,
		rotation: rotation,
		log:      log,
	}
}

// RunAKE performs one full round trip: select a scheme, resolve backends,
// generate a KEM keypair, obtain a verified signature over it through the
// strategy chain, encapsulate, decapsulate, and compare shared secrets.
//
// A shared-secret mismatch is returned as a result with status "mismatch",
// not as an error; only unreachable backends, strategy exhaustion, and
// non-verification downstream failures produce an error.
func (o *Orchestrator) RunAKE(ctx context.Context, input interfaces.SelectionInput) (*interfaces.AkeResult, error) {
	decision, err := SelectScheme(ctx, o.prober, o.backends, input)
	if err != nil {
		return nil, err
	}
	o.log.Debug("scheme selected", "scheme", decision.Scheme, "reason", decision.Reason)

	kemBase, ok := o.prober.FirstReachable(ctx, o.backends.Kyber)
	if !ok {
		return nil, errors.New("kyber backend unreachable")
	}

	// Re-probe the chosen signature backend rather than trusting the
	// selector's snapshot; the backend may have gone away in between.
	signerBase, ok := o.prober.FirstReachable(ctx, o.candidatesFor(decision.Scheme))
	if !ok {
		return nil, fmt.Errorf("%s unreachable", decision.Scheme)
	}

	keypair, err := o.kem.GenerateKeypair(ctx, kemBase)
	if err != nil {
		return nil, fmt.Errorf("keypair generation failed: %w", err)
	}

	signerInfo, err := o.signer.SignerInfo(ctx, signerBase)
	if err != nil {
		// Metadata is only a fallback for strategies that omit fields.
		o.log.Warn("could not fetch signer metadata", "scheme", decision.Scheme, "err", err)
		signerInfo = nil
	}

	rotationBase, _ := o.prober.FirstReachable(ctx, o.backends.Rotation)

	in := &strategyInput{
		scheme:       decision.Scheme,
		signerBase:   signerBase,
		rotationBase: rotationBase,
		levelHint:    input.Level,
		keypair:      keypair,
		signerInfo:   signerInfo,
	}

	sctx, enc, err := o.runSigningChain(ctx, in)
	if err != nil {
		return nil, err
	}

	// Decapsulate with the secret key paired to the context that passed
	// verification; for a bootstrap context that is bootstrap's own key,
	// not the one generated above.
	decapsSecret, err := o.kem.Decapsulate(ctx, kemBase, sctx.KyberSecretKey, enc.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("decapsulation failed: %w", err)
	}

	match := sharedSecretsEqual(enc.SharedSecret, decapsSecret)
	status := interfaces.AkeStatusOK
	if !match {
		status = interfaces.AkeStatusMismatch
		metrics.RecordMismatch()
		o.log.Warn("shared secret mismatch", "scheme", decision.Scheme, "source", sctx.Source)
	}

	return &interfaces.AkeResult{
		Status:            status,
		SchemeSelected:    decision.Scheme,
		Reason:            decision.Reason,
		SignerLevel:       sctx.SignerLevel,
		SignerKid:         sctx.SignerKid,
		Kyber:             interfaces.KyberResult{CiphertextLen: ciphertextLen(enc.Ciphertext)},
		SharedSecretMatch: match,
	}, nil
}

// Health exposes the aggregator over the orchestrator's own prober and
// configuration, for the standalone read path.
func (o *Orchestrator) Health(ctx context.Context) interfaces.HealthReport {
	return NewAggregator(o.prober, o.backends).Health(ctx)
}

// runSigningChain tries the strategies in order until one yields a complete
// context that passes downstream verification. Construction failures and
// verification rejections advance the chain; any other downstream failure
// is fatal immediately.
func (o *Orchestrator) runSigningChain(ctx context.Context, in *strategyInput) (*interfaces.SigningContext, *interfaces.EncapsulationResult, error) {
	strategies := []signingStrategy{
		&rotationStrategy{rotation: o.rotation},
		&directStrategy{signer: o.signer},
		&bootstrapStrategy{signer: o.signer},
	}

	for _, strategy := range strategies {
		sctx, err := strategy.attempt(ctx, in)
		if err != nil {
			o.log.Warn("signing strategy skipped", "strategy", strategy.name(), "err", err)
			continue
		}

		applySignerFallback(sctx, in.signerInfo)
		if !sctx.Complete() {
			o.log.Warn("signing strategy produced incomplete context", "strategy", strategy.name(), "source", sctx.Source)
			continue
		}

		enc, err := o.signer.EncapsulateVerified(ctx, in.signerBase, sctx)
		if err != nil {
			var verr *interfaces.VerificationError
			if errors.As(err, &verr) {
				o.log.Warn("signature rejected, advancing to next strategy", "strategy", strategy.name(), "detail", verr.Detail)
				continue
			}
			return nil, nil, fmt.Errorf("encapsulation failed: %w", err)
		}

		metrics.RecordStrategySuccess(strategy.name())
		o.log.Debug("signing strategy succeeded", "strategy", strategy.name())
		return sctx, enc, nil
	}

	return nil, nil, errors.New("all signing strategies exhausted without a verified signature")
}

func (o *Orchestrator) candidatesFor(scheme interfaces.Scheme) config.CandidateSet {
	if scheme == interfaces.SchemeFalcon {
		return o.backends.Falcon
	}
	return o.backends.Dilithium
}

// sharedSecretsEqual compares the two shared secrets byte-for-byte. Both
// sides normally carry base64; if either fails to decode, the raw strings
// are compared instead.
func sharedSecretsEqual(a, b string) bool {
	rawA, errA := base64.StdEncoding.DecodeString(a)
	rawB, errB := base64.StdEncoding.DecodeString(b)
	if errA != nil || errB != nil {
		return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
	}
	return subtle.ConstantTimeCompare(rawA, rawB) == 1
}

// ciphertextLen reports the decoded ciphertext length in bytes, falling
// back to the encoded length for a non-base64 value.
func ciphertextLen(ciphertext string) int {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return len(ciphertext)
	}
	return len(raw)
}
