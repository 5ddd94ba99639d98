// Package probe implements the reachability prober used to pick a live base
// address for each logical backend.
//
// A backend counts as reachable if anything answers the liveness path with
// any HTTP status at all: this orchestrator only needs "is something
// listening and responding", not REST-convention health, so a 4xx/5xx still
// qualifies. Transport errors, malformed responses, and timeouts count as
// unreachable.
package probe

import (
	"context"
	"net/http"
	"time"

	"github.com/pqops/ake-orchestrator/config"
)

// DefaultTimeout bounds one liveness probe.
const DefaultTimeout = 1500 * time.Millisecond

// livenessPath is the path probed on every candidate address.
const livenessPath = "/health"

// Prober checks whether backend base addresses currently answer a liveness
// call. The zero value is not usable; use New.
type Prober struct {
	client  *http.Client
	timeout time.Duration
}

// New creates a prober with the default per-probe timeout.
func New() *Prober {
	return NewWithTimeout(DefaultTimeout)
}

// NewWithTimeout creates a prober with a custom per-probe timeout.
func NewWithTimeout(timeout time.Duration) *Prober {
	return &Prober{
		client:  &http.Client{},
		timeout: timeout,
	}
}

// Probe reports whether base answers the liveness path within the probe
// budget. Any received HTTP response counts as reachable regardless of
// status code.
func (p *Prober) Probe(ctx context.Context, base string) bool {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+livenessPath, nil)
	if err != nil {
		return false
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()

	return true
}

// FirstReachable probes the candidate list strictly in order and returns
// the first address that answers. The sequential order is deliberate: it
// encodes deployment precedence (explicit override before localhost before
// the container-host alias), so it must not be parallelized.
func (p *Prober) FirstReachable(ctx context.Context, candidates config.CandidateSet) (string, bool) {
	for _, base := range candidates {
		if p.Probe(ctx, base) {
			return base, true
		}
	}
	return "", false
}
