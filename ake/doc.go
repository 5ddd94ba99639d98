/*
Package ake implements the orchestration core: scheme-selection policy,
backend health aggregation, the signing strategy chain, and the top-level
authenticated key exchange flow.

The package performs no cryptography itself. Every cryptographic operation
is delegated to the downstream backends through the collaborator interfaces
in the interfaces package; this package only decides which backend to use,
drives the keypair → sign → verify-and-encapsulate → decapsulate round trip,
and tolerates backend unavailability and signature-format mismatches by
falling back across alternative signing strategies.

# Scheme selection

SelectScheme probes both signature backends concurrently and applies the
policy rules in order: an honored explicit preference wins, then a tight
payload hint (≤ 1024 bytes) prefers falcon, then dilithium-if-reachable with
falcon as the fallback. A preference naming an unreachable backend is
silently ignored rather than rejected.

# Signing strategy chain

Strategies run strictly in order: rotation-backed signing (when the optional
rotation backend is up), direct signing on the scheme's own endpoint, and
finally the backend's combined bootstrap call. A strategy failure at
context-construction time skips that strategy; a downstream signature
verification rejection discards the context and advances the chain; any
other downstream failure aborts the whole request immediately.
*/
package ake
