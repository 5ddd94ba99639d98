package ake

import (
	"context"
	"sync"

	"github.com/pqops/ake-orchestrator/config"
	"github.com/pqops/ake-orchestrator/interfaces"
	"github.com/pqops/ake-orchestrator/probe"
)

// Aggregator composes per-backend reachability into a health report. It is
// also used by the HTTP layer as the standalone /health read path.
type Aggregator struct {
	prober   *probe.Prober
	backends config.Backends
}

// NewAggregator creates a health aggregator over the configured backends.
func NewAggregator(prober *probe.Prober, backends config.Backends) *Aggregator {
	return &Aggregator{prober: prober, backends: backends}
}

// Health probes all four logical backends concurrently and composes the
// overall status. The report is produced fresh on every call.
func (a *Aggregator) Health(ctx context.Context) interfaces.HealthReport {
	var (
		wg                                 sync.WaitGroup
		kyber, dilithium, falcon, rotation interfaces.BackendHealth
	)

	checks := []struct {
		candidates config.CandidateSet
		out        *interfaces.BackendHealth
	}{
		{a.backends.Kyber, &kyber},
		{a.backends.Dilithium, &dilithium},
		{a.backends.Falcon, &falcon},
		{a.backends.Rotation, &rotation},
	}

	wg.Add(len(checks))
	for _, check := range checks {
		go func() {
			defer wg.Done()
			*check.out = a.checkOne(ctx, check.candidates)
		}()
	}
	wg.Wait()

	status := interfaces.HealthDegraded
	if kyber.Reachable && (dilithium.Reachable || falcon.Reachable) {
		status = interfaces.HealthOK
	}

	return interfaces.HealthReport{
		Status:    status,
		Kyber:     kyber,
		Dilithium: dilithium,
		Falcon:    falcon,
		Rotation:  rotation,
	}
}

func (a *Aggregator) checkOne(ctx context.Context, candidates config.CandidateSet) interfaces.BackendHealth {
	base, ok := a.prober.FirstReachable(ctx, candidates)
	if !ok {
		return interfaces.BackendHealth{Reachable: false, Base: nil}
	}
	return interfaces.BackendHealth{Reachable: true, Base: &base}
}
