package ake

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pqops/ake-orchestrator/api/clients"
	"github.com/pqops/ake-orchestrator/config"
	"github.com/pqops/ake-orchestrator/interfaces"
	"github.com/pqops/ake-orchestrator/probe"
)

func testBackends() config.Backends {
	return config.Backends{
		Kyber:     config.CandidateSet{deadBase},
		Dilithium: config.CandidateSet{deadBase},
		Falcon:    config.CandidateSet{deadBase},
		Rotation:  config.CandidateSet{deadBase},
	}
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func unb64(t *testing.T, s string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	return string(raw)
}

// fakeEnv is a full set of fake downstream backends speaking the wire
// contracts with deterministic stand-in values: a signature over message m
// is "sig:"+m, encapsulating against public key p yields ciphertext
// "ct:"+p and shared secret "ss:"+p, and decapsulation rederives the
// secret from the ciphertext when the secret key pairs with it.
type fakeEnv struct {
	t *testing.T

	mu                sync.Mutex
	hits              map[string]int
	rotationKeys      map[string]bool
	lastDecapsSecret  string
	lastRotationAlg   string
	rotationSignBad   bool
	directSignBroken  bool
	encapsulateFatal  bool
	corruptCiphertext bool

	kyberDown     bool
	dilithiumDown bool
	falconDown    bool
	rotationDown  bool

	backends config.Backends
}

func newFakeEnv(t *testing.T) *fakeEnv {
	env := &fakeEnv{
		t:            t,
		hits:         map[string]int{},
		rotationKeys: map[string]bool{},
	}

	serve := func(h http.Handler) string {
		srv := httptest.NewServer(h)
		t.Cleanup(srv.Close)
		return srv.URL
	}

	env.backends = config.Backends{
		Kyber:     config.CandidateSet{serve(env.kyberHandler())},
		Dilithium: config.CandidateSet{serve(env.signerHandler(interfaces.SchemeDilithium))},
		Falcon:    config.CandidateSet{serve(env.signerHandler(interfaces.SchemeFalcon))},
		Rotation:  config.CandidateSet{serve(env.rotationHandler())},
	}
	return env
}

func (env *fakeEnv) effectiveBackends() config.Backends {
	backends := env.backends
	if env.kyberDown {
		backends.Kyber = config.CandidateSet{deadBase}
	}
	if env.dilithiumDown {
		backends.Dilithium = config.CandidateSet{deadBase}
	}
	if env.falconDown {
		backends.Falcon = config.CandidateSet{deadBase}
	}
	if env.rotationDown {
		backends.Rotation = config.CandidateSet{deadBase}
	}
	return backends
}

func (env *fakeEnv) orchestrator() *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(
		probe.NewWithTimeout(500*time.Millisecond),
		env.effectiveBackends(),
		clients.NewKEMClient(),
		clients.NewSignerClient(),
		clients.NewRotationClient(),
		logger,
	)
}

func (env *fakeEnv) count(path string) int {
	env.mu.Lock()
	defer env.mu.Unlock()
	return env.hits[path]
}

func (env *fakeEnv) record(path string) {
	env.mu.Lock()
	env.hits[path]++
	env.mu.Unlock()
}

func (env *fakeEnv) decode(r *http.Request) map[string]string {
	body := map[string]string{}
	raw, _ := io.ReadAll(r.Body)
	json.Unmarshal(raw, &body)
	return body
}

func writeBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (env *fakeEnv) kyberHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/kyber/generate-keypair", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		writeBody(w, http.StatusOK, map[string]string{
			"publicKey": b64("kem-pub-1"),
			"secretKey": b64("kem-sec-1"),
		})
	})
	mux.HandleFunc("/kyber/decapsulate", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		body := env.decode(r)

		env.mu.Lock()
		env.lastDecapsSecret = body["secretKey"]
		env.mu.Unlock()

		secretName, _ := base64.StdEncoding.DecodeString(body["secretKey"])
		pairedPub := b64(strings.Replace(string(secretName), "sec", "pub", 1))
		ct, _ := base64.StdEncoding.DecodeString(body["ciphertext"])

		// Wrong key or corrupted ciphertext silently yields a different
		// secret, mirroring a KEM's implicit rejection.
		secret := "ss:bogus"
		if string(ct) == "ct:"+pairedPub {
			secret = "ss:" + pairedPub
		}
		writeBody(w, http.StatusOK, map[string]string{"sharedSecret": b64(secret)})
	})
	return mux
}

func (env *fakeEnv) signerHandler(scheme interfaces.Scheme) http.Handler {
	level := fmt.Sprintf("%d", scheme.DefaultLevel())

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/orchestrator/signer", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		writeBody(w, http.StatusOK, map[string]string{
			"publicKey": b64("spk-" + string(scheme)),
			"level":     level,
			"kid":       "kid-" + string(scheme),
		})
	})
	mux.HandleFunc(fmt.Sprintf("/%s/sign", scheme), func(w http.ResponseWriter, r *http.Request) {
		env.record(fmt.Sprintf("/%s/sign", scheme))
		if env.directSignBroken {
			writeBody(w, http.StatusInternalServerError, map[string]string{"error": "signing_unavailable"})
			return
		}
		body := env.decode(r)
		writeBody(w, http.StatusOK, map[string]string{
			"signature": b64("sig:" + body["messageBase64"]),
			"level":     level,
		})
	})
	mux.HandleFunc("/orchestrator/bootstrap", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		writeBody(w, http.StatusOK, map[string]string{
			"signature":       b64("sig:" + b64("boot-pub")),
			"signerPublicKey": b64("spk-" + string(scheme)),
			"level":           level,
			"kyberPublicKey":  b64("boot-pub"),
			"kyberSecretKey":  b64("boot-sec"),
		})
	})
	mux.HandleFunc("/orchestrator/encapsulate-verified", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		if env.encapsulateFatal {
			writeBody(w, http.StatusInternalServerError, map[string]string{
				"error": "storage_unavailable", "detail": "keystore offline",
			})
			return
		}

		body := env.decode(r)
		sig, _ := base64.StdEncoding.DecodeString(body["signature"])
		if string(sig) != "sig:"+body["kyberPublicKey"] {
			writeBody(w, http.StatusBadRequest, map[string]string{
				"error": "signature_verification_failed", "detail": "signature mismatch",
			})
			return
		}

		ciphertext := "ct:" + body["kyberPublicKey"]
		if env.corruptCiphertext {
			ciphertext = "ct:corrupted"
		}
		writeBody(w, http.StatusOK, map[string]string{
			"ciphertext":   b64(ciphertext),
			"sharedSecret": b64("ss:" + body["kyberPublicKey"]),
		})
	})
	return mux
}

func (env *fakeEnv) rotationHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/orchestrator/keys/current", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		alg := r.URL.Query().Get("alg")

		env.mu.Lock()
		env.lastRotationAlg = alg
		exists := env.rotationKeys[alg]
		env.mu.Unlock()

		if !exists {
			writeBody(w, http.StatusNotFound, map[string]string{"error": "no_active_key"})
			return
		}
		writeBody(w, http.StatusOK, map[string]string{"publicKey": b64("rot-pk-" + alg)})
	})
	mux.HandleFunc("/keys/rotate", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		body := env.decode(r)

		env.mu.Lock()
		env.rotationKeys[body["alg"]] = true
		env.mu.Unlock()

		writeBody(w, http.StatusOK, map[string]string{"publicKey": b64("rot-pk-" + body["alg"])})
	})
	mux.HandleFunc("/sign", func(w http.ResponseWriter, r *http.Request) {
		env.record(r.URL.Path)
		body := env.decode(r)

		signature := "sig:" + body["messageB64"]
		if env.rotationSignBad {
			signature = "bad:" + body["messageB64"]
		}
		writeBody(w, http.StatusOK, map[string]string{
			"signatureB64": b64(signature),
			"kid":          "rot-kid",
		})
	})
	return mux
}

func TestRunAKE_ScenarioA_TightPayloadSelectsFalcon(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationDown = true

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{PayloadHintBytes: 512})
	require.NoError(t, err)

	assert.Equal(t, interfaces.AkeStatusOK, result.Status)
	assert.Equal(t, interfaces.SchemeFalcon, result.SchemeSelected)
	assert.Equal(t, interfaces.ReasonPayloadTight, result.Reason)
	assert.True(t, result.SharedSecretMatch)
	assert.Equal(t, "1", result.SignerLevel)
	assert.Equal(t, len("ct:"+b64("kem-pub-1")), result.Kyber.CiphertextLen)
}

func TestRunAKE_ScenarioB_PolicyPreferenceWins(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationDown = true

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{
		PayloadHintBytes:   4096,
		PolicyPreferredSig: interfaces.SchemeDilithium,
	})
	require.NoError(t, err)

	assert.Equal(t, interfaces.SchemeDilithium, result.SchemeSelected)
	assert.Equal(t, "policy:dilithium", result.Reason)
	assert.True(t, result.SharedSecretMatch)
}

func TestRunAKE_ScenarioC_FallsBackToReachableScheme(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationDown = true
	env.dilithiumDown = true

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{PayloadHintBytes: 4096})
	require.NoError(t, err)

	assert.Equal(t, interfaces.SchemeFalcon, result.SchemeSelected)
	assert.Equal(t, interfaces.ReasonDefaultOrHealth, result.Reason)
}

func TestRunAKE_ScenarioD_KyberUnreachable(t *testing.T) {
	env := newFakeEnv(t)
	env.kyberDown = true

	_, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kyber backend unreachable")

	// The failure happens before any signature API is contacted.
	assert.Zero(t, env.count("/dilithium/sign"))
	assert.Zero(t, env.count("/falcon/sign"))
	assert.Zero(t, env.count("/orchestrator/encapsulate-verified"))
}

func TestRunAKE_ScenarioE_NoSignatureService(t *testing.T) {
	env := newFakeEnv(t)
	env.dilithiumDown = true
	env.falconDown = true

	_, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	assert.ErrorIs(t, err, interfaces.ErrNoSignatureService)
}

func TestRunAKE_RotationStrategyPreferred(t *testing.T) {
	env := newFakeEnv(t)

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	require.NoError(t, err)

	assert.True(t, result.SharedSecretMatch)
	assert.Equal(t, "rot-kid", result.SignerKid)
	assert.Equal(t, "dilithium-3", env.lastRotationAlg)
	// The rotation service had no key; the chain provisioned one.
	assert.Equal(t, 1, env.count("/keys/rotate"))
	assert.Zero(t, env.count("/dilithium/sign"))
}

func TestRunAKE_LevelHintClamped(t *testing.T) {
	env := newFakeEnv(t)

	_, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{Level: "9"})
	require.NoError(t, err)
	assert.Equal(t, "dilithium-5", env.lastRotationAlg)
}

func TestRunAKE_VerificationFailureFallsThroughStrategies(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationSignBad = true

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	require.NoError(t, err)

	assert.True(t, result.SharedSecretMatch)
	assert.Equal(t, 1, env.count("/sign"))           // rotation tried first
	assert.Equal(t, 1, env.count("/dilithium/sign")) // then direct signing
	assert.Equal(t, 2, env.count("/orchestrator/encapsulate-verified"))
}

func TestRunAKE_BootstrapKeypairOverride(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationDown = true
	env.directSignBroken = true

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	require.NoError(t, err)

	assert.True(t, result.SharedSecretMatch)
	assert.Equal(t, 1, env.count("/orchestrator/bootstrap"))
	// Decapsulation used bootstrap's secret key, not the orchestrator's
	// originally generated one.
	assert.Equal(t, "boot-sec", unb64(t, env.lastDecapsSecret))
}

func TestRunAKE_CorruptedCiphertextIsMismatchNotError(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationDown = true
	env.corruptCiphertext = true

	result, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	require.NoError(t, err)

	assert.Equal(t, interfaces.AkeStatusMismatch, result.Status)
	assert.False(t, result.SharedSecretMatch)
}

func TestRunAKE_NonVerificationDownstreamFailureIsFatal(t *testing.T) {
	env := newFakeEnv(t)
	env.rotationDown = true
	env.encapsulateFatal = true

	_, err := env.orchestrator().RunAKE(context.Background(), interfaces.SelectionInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encapsulation failed")
	// The failure is not retried across strategies.
	assert.Zero(t, env.count("/orchestrator/bootstrap"))
	assert.Equal(t, 1, env.count("/orchestrator/encapsulate-verified"))
}

func TestAggregator_Health(t *testing.T) {
	env := newFakeEnv(t)
	env.falconDown = true

	report := NewAggregator(probe.NewWithTimeout(500*time.Millisecond), env.effectiveBackends()).Health(context.Background())

	assert.Equal(t, interfaces.HealthOK, report.Status)
	assert.True(t, report.Kyber.Reachable)
	require.NotNil(t, report.Kyber.Base)
	assert.True(t, report.Dilithium.Reachable)
	assert.False(t, report.Falcon.Reachable)
	assert.Nil(t, report.Falcon.Base)
	assert.True(t, report.Rotation.Reachable)
}

func TestAggregator_DegradedWithoutKyber(t *testing.T) {
	env := newFakeEnv(t)
	env.kyberDown = true

	report := NewAggregator(probe.NewWithTimeout(500*time.Millisecond), env.effectiveBackends()).Health(context.Background())
	assert.Equal(t, interfaces.HealthDegraded, report.Status)
}

func TestAggregator_DegradedWithoutSignatureBackends(t *testing.T) {
	env := newFakeEnv(t)
	env.dilithiumDown = true
	env.falconDown = true

	report := NewAggregator(probe.NewWithTimeout(500*time.Millisecond), env.effectiveBackends()).Health(context.Background())
	assert.Equal(t, interfaces.HealthDegraded, report.Status)
}
