// Package config builds the immutable per-backend address candidate lists.
// The lists are derived once at process start from CLI flags and passed by
// value into every component; nothing in this module reads process-wide
// state after startup.
package config

import "fmt"

// Default ports for the four logical backends when no override is given.
const (
	DefaultKyberPort     = 8001
	DefaultDilithiumPort = 8002
	DefaultFalconPort    = 8003
	DefaultRotationPort  = 8004
)

// CandidateSet is an ordered list of base URLs for one logical backend.
// Order is significant: the first address that answers a liveness probe
// wins, so an explicit override always precedes the fixed fallbacks
// (localhost, loopback IP, container-host alias).
type CandidateSet []string

// NewCandidateSet builds the candidate list for one backend. An empty
// override contributes nothing; the fixed fallbacks are always appended in
// deployment-precedence order.
func NewCandidateSet(override string, port int) CandidateSet {
	candidates := make(CandidateSet, 0, 4)
	if override != "" {
		candidates = append(candidates, override)
	}
	candidates = append(candidates,
		fmt.Sprintf("http://localhost:%d", port),
		fmt.Sprintf("http://127.0.0.1:%d", port),
		fmt.Sprintf("http://host.docker.internal:%d", port),
	)
	return candidates
}

// Backends holds the candidate lists for every logical backend the
// orchestrator talks to. Immutable for the process lifetime.
type Backends struct {
	Kyber     CandidateSet
	Dilithium CandidateSet
	Falcon    CandidateSet
	Rotation  CandidateSet
}

// Overrides carries the optional per-backend base-URL overrides parsed from
// flags.
type Overrides struct {
	Kyber     string
	Dilithium string
	Falcon    string
	Rotation  string
}

// NewBackends constructs the full backend configuration from overrides.
func NewBackends(o Overrides) Backends {
	return Backends{
		Kyber:     NewCandidateSet(o.Kyber, DefaultKyberPort),
		Dilithium: NewCandidateSet(o.Dilithium, DefaultDilithiumPort),
		Falcon:    NewCandidateSet(o.Falcon, DefaultFalconPort),
		Rotation:  NewCandidateSet(o.Rotation, DefaultRotationPort),
	}
}
