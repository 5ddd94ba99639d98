package ake

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pqops/ake-orchestrator/interfaces"
)

// strategyInput carries everything a signing strategy may need: the chosen
// scheme and resolved bases, the keypair generated by the orchestrator, the
// level hint, and the signer metadata fetched up front as a fallback for
// fields a strategy omits.
type strategyInput struct {
	scheme       interfaces.Scheme
	signerBase   string
	rotationBase string // empty when the rotation backend is unreachable
	levelHint    string
	keypair      *interfaces.KyberKeypair
	signerInfo   *interfaces.SignerInfo // may be nil
}

// signingStrategy produces a signing context over the input's KEM public
// key, or fails. Any failure here means "this strategy does not apply right
// now" and advances the chain: the original flow made no distinction
// between a backend that lacks the capability and one that failed
// transiently, and that observable behavior is kept (skips are logged with
// their cause so the conflation stays visible).
type signingStrategy interface {
	name() string
	attempt(ctx context.Context, in *strategyInput) (*interfaces.SigningContext, error)
}

// rotationStrategy signs through the optional key-rotation service: make
// sure an active key exists for the derived algorithm identifier (rotating
// once if there is none), then request a signature with it.
type rotationStrategy struct {
	rotation interfaces.Rotation
}

func (s *rotationStrategy) name() string { return "rotation" }

func (s *rotationStrategy) attempt(ctx context.Context, in *strategyInput) (*interfaces.SigningContext, error) {
	if in.rotationBase == "" {
		return nil, fmt.Errorf("rotation backend not reachable")
	}

	level := resolveLevel(in.scheme, in.levelHint)
	alg := rotationAlg(in.scheme, level)

	current, err := s.rotation.CurrentKey(ctx, in.rotationBase, alg)
	if err != nil {
		return nil, err
	}
	if current == "" {
		if err := s.rotation.Rotate(ctx, in.rotationBase, alg, strconv.Itoa(level)); err != nil {
			return nil, err
		}
		current, err = s.rotation.CurrentKey(ctx, in.rotationBase, alg)
		if err != nil {
			return nil, err
		}
		if current == "" {
			return nil, fmt.Errorf("no active key for %s after rotation", alg)
		}
	}

	signed, err := s.rotation.Sign(ctx, in.rotationBase, alg, in.keypair.PublicKey)
	if err != nil {
		return nil, err
	}

	return &interfaces.SigningContext{
		Source:          interfaces.SourceRotation,
		Signature:       signed.Signature,
		SignerPublicKey: current,
		SignerLevel:     strconv.Itoa(level),
		SignerKid:       signed.Kid,
		KyberPublicKey:  in.keypair.PublicKey,
		KyberSecretKey:  in.keypair.SecretKey,
		IsCompressed:    signed.IsCompressed,
	}, nil
}

// directStrategy uses the signature backend's own sign endpoint with the
// KEM public key as the message.
type directStrategy struct {
	signer interfaces.Signer
}

func (s *directStrategy) name() string { return "direct" }

func (s *directStrategy) attempt(ctx context.Context, in *strategyInput) (*interfaces.SigningContext, error) {
	level := strconv.Itoa(resolveLevel(in.scheme, in.levelHint))

	signed, err := s.signer.Sign(ctx, in.signerBase, in.scheme, in.keypair.PublicKey, level)
	if err != nil {
		return nil, err
	}

	signerLevel := signed.Level
	if signerLevel == "" {
		signerLevel = level
	}

	return &interfaces.SigningContext{
		Source:         interfaces.SourceDirect,
		Signature:      signed.Signature,
		SignerLevel:    signerLevel,
		SignerKid:      signed.Kid,
		KyberPublicKey: in.keypair.PublicKey,
		KyberSecretKey: in.keypair.SecretKey,
		IsCompressed:   signed.IsCompressed,
	}, nil
}

// bootstrapStrategy uses the backend's combined call, which generates a
// fresh KEM keypair and signs it with an internal key. The returned keypair
// supersedes the one generated earlier in the flow so the signature stays
// paired with the key it was computed over.
type bootstrapStrategy struct {
	signer interfaces.Signer
}

func (s *bootstrapStrategy) name() string { return "bootstrap" }

func (s *bootstrapStrategy) attempt(ctx context.Context, in *strategyInput) (*interfaces.SigningContext, error) {
	res, err := s.signer.Bootstrap(ctx, in.signerBase)
	if err != nil {
		return nil, err
	}

	return &interfaces.SigningContext{
		Source:          interfaces.SourceBootstrap,
		Signature:       res.Signature,
		SignerPublicKey: res.SignerPublicKey,
		SignerLevel:     res.Level,
		KyberPublicKey:  res.KyberPublicKey,
		KyberSecretKey:  res.KyberSecretKey,
	}, nil
}

// applySignerFallback fills fields a strategy omitted from the signer
// metadata fetched up front. It never overwrites a field the strategy set.
func applySignerFallback(sctx *interfaces.SigningContext, info *interfaces.SignerInfo) {
	if info == nil {
		return
	}
	if sctx.SignerPublicKey == "" {
		sctx.SignerPublicKey = info.PublicKey
	}
	if sctx.SignerLevel == "" {
		sctx.SignerLevel = info.Level
	}
	if sctx.SignerKid == "" {
		sctx.SignerKid = info.Kid
	}
}
