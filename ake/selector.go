package ake

import (
	"context"
	"sync"

	"github.com/pqops/ake-orchestrator/config"
	"github.com/pqops/ake-orchestrator/interfaces"
	"github.com/pqops/ake-orchestrator/probe"
)

// SelectScheme maps (reachability, explicit preference, payload-size hint)
// to a signature scheme. First matching rule wins:
//
//  1. An explicit preference for a reachable backend (reason policy:<scheme>).
//  2. A payload hint of at most 1024 bytes with falcon reachable (reason
//     payload_tight): smaller-payload channels prefer the scheme with the
//     smaller signature.
//  3. Dilithium if reachable, else falcon (reason default_or_health).
//
// A preference naming an unreachable backend is silently ignored and falls
// through to the later rules. When neither signature backend is reachable
// the selection fails with interfaces.ErrNoSignatureService.
func SelectScheme(ctx context.Context, prober *probe.Prober, backends config.Backends, input interfaces.SelectionInput) (interfaces.SchemeDecision, error) {
	// The two probes have no ordering dependency.
	var (
		wg                    sync.WaitGroup
		dilithiumUp, falconUp bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, dilithiumUp = prober.FirstReachable(ctx, backends.Dilithium)
	}()
	go func() {
		defer wg.Done()
		_, falconUp = prober.FirstReachable(ctx, backends.Falcon)
	}()
	wg.Wait()

	if !dilithiumUp && !falconUp {
		return interfaces.SchemeDecision{}, interfaces.ErrNoSignatureService
	}

	if input.PolicyPreferredSig != "" && reachableFor(input.PolicyPreferredSig, dilithiumUp, falconUp) {
		return interfaces.SchemeDecision{
			Scheme: input.PolicyPreferredSig,
			Reason: interfaces.PolicyReason(input.PolicyPreferredSig),
		}, nil
	}

	if input.PayloadHintBytes > 0 && input.PayloadHintBytes <= interfaces.PayloadTightThreshold && falconUp {
		return interfaces.SchemeDecision{
			Scheme: interfaces.SchemeFalcon,
			Reason: interfaces.ReasonPayloadTight,
		}, nil
	}

	scheme := interfaces.SchemeDilithium
	if !dilithiumUp {
		scheme = interfaces.SchemeFalcon
	}
	return interfaces.SchemeDecision{
		Scheme: scheme,
		Reason: interfaces.ReasonDefaultOrHealth,
	}, nil
}

func reachableFor(s interfaces.Scheme, dilithiumUp, falconUp bool) bool {
	if s == interfaces.SchemeFalcon {
		return falconUp
	}
	return dilithiumUp
}
