/*
Package clients provides the HTTP clients for the orchestrator's downstream
backends: the KEM service, the per-scheme signature services, and the
optional key-rotation service.

The downstream services are independently deployed and do not share a field
naming convention, so response decoding is alias-tolerant: each logical
field is resolved through a small ordered list of accepted key names against
the generic JSON response (see fields.go). The alias lists are the single
place that normalization lives; call sites never inspect raw response maps.

Every call carries an explicit timeout: 4 seconds for informational GETs and
8 seconds for calls that perform cryptographic work downstream. A timeout is
indistinguishable from any other transport error to callers.
*/
package clients
