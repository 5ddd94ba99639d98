// The mockbackend binary serves the downstream contracts the orchestrator
// depends on (KEM, both signature schemes, key rotation), backed by real
// ML-KEM and ML-DSA primitives. It exists so the orchestrator can be
// exercised end to end without deploying the production backends.
//
// Falcon is not available in circl, so the falcon role is served by the
// smaller ML-DSA parameter set as a stand-in; the orchestrator never
// inspects backend internals, only response shapes.
package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"github.com/cloudflare/circl/sign"
	"github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/cloudflare/circl/sign/mldsa/mldsa65"
	"github.com/cloudflare/circl/sign/mldsa/mldsa87"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v2"

	"github.com/pqops/ake-orchestrator/cmd/flags"
	"github.com/pqops/ake-orchestrator/config"
	"github.com/pqops/ake-orchestrator/interfaces"
)

var cliFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "role",
		Value: "all",
		Usage: "which backend to serve: kyber, dilithium, falcon, rotation, or all",
	},
	&cli.IntFlag{
		Name:  "port",
		Usage: "listen port override; only valid with a single role",
	},
	flags.LogJSONFlag,
	flags.LogDebugFlag,
	flags.LogServiceFlag,
	flags.LogUIDFlag,
}

func main() {
	app := &cli.App{
		Name:  "mockbackend",
		Usage: "Serve mock KEM, signature, and rotation backends for local development",
		Flags: cliFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			role := strings.ToLower(cCtx.String("role"))
			port := cCtx.Int("port")

			roles := map[string]struct {
				port    int
				handler http.Handler
			}{
				"kyber":     {config.DefaultKyberPort, newKEMService().router()},
				"dilithium": {config.DefaultDilithiumPort, newSignerService(interfaces.SchemeDilithium).router()},
				"falcon":    {config.DefaultFalconPort, newSignerService(interfaces.SchemeFalcon).router()},
				"rotation":  {config.DefaultRotationPort, newRotationService().router()},
			}

			selected := []string{role}
			if role == "all" {
				selected = []string{"kyber", "dilithium", "falcon", "rotation"}
			} else if _, ok := roles[role]; !ok {
				return fmt.Errorf("unknown role %q", role)
			}

			if port != 0 && len(selected) > 1 {
				return fmt.Errorf("--port requires a single role")
			}

			for _, name := range selected {
				r := roles[name]
				listenPort := r.port
				if port != 0 {
					listenPort = port
				}
				addr := fmt.Sprintf("127.0.0.1:%d", listenPort)
				logger.Info("Starting mock backend", "role", name, "addr", addr)
				go func(addr string, h http.Handler) {
					if err := http.ListenAndServe(addr, h); err != nil {
						logger.Error("mock backend stopped", "addr", addr, "err", err)
					}
				}(addr, r.handler)
			}

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit
			logger.Info("Shutdown signal received")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// kemService serves the KEM backend contract with ML-KEM-768.
type kemService struct {
	scheme kem.Scheme
}

func newKEMService() *kemService {
	return &kemService{scheme: mlkem768.Scheme()}
}

func (s *kemService) router() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/health", handleHealthOK)
	mux.Post("/kyber/generate-keypair", s.handleGenerateKeypair)
	mux.Post("/kyber/decapsulate", s.handleDecapsulate)
	return mux
}

func (s *kemService) handleGenerateKeypair(w http.ResponseWriter, r *http.Request) {
	pk, sk, err := s.scheme.GenerateKeyPair()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "keygen_failed", err.Error())
		return
	}

	pkBytes, _ := pk.MarshalBinary()
	skBytes, _ := sk.MarshalBinary()
	writeJSON(w, http.StatusOK, map[string]any{
		"publicKey": b64(pkBytes),
		"secretKey": b64(skBytes),
	})
}

func (s *kemService) handleDecapsulate(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	skBytes, err := unb64(str(req, "secretKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "secretKey is not valid base64")
		return
	}
	ct, err := unb64(str(req, "ciphertext"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "ciphertext is not valid base64")
		return
	}

	sk, err := s.scheme.UnmarshalBinaryPrivateKey(skBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ss, err := s.scheme.Decapsulate(sk, ct)
	if err != nil {
		writeError(w, http.StatusBadRequest, "decapsulation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"sharedSecret": b64(ss)})
}

// signerService serves one signature scheme's contract with a fixed
// internal keypair generated at startup.
type signerService struct {
	name   interfaces.Scheme
	scheme sign.Scheme
	kem    kem.Scheme
	pk     sign.PublicKey
	sk     sign.PrivateKey
	level  string
	kid    string
}

func newSignerService(name interfaces.Scheme) *signerService {
	sigScheme := signSchemeFor(name, name.DefaultLevel())
	pk, sk, err := sigScheme.GenerateKey()
	if err != nil {
		log.Fatalf("could not generate %s signer key: %v", name, err)
	}
	pkBytes, _ := pk.MarshalBinary()

	return &signerService{
		name:   name,
		scheme: sigScheme,
		kem:    mlkem768.Scheme(),
		pk:     pk,
		sk:     sk,
		level:  fmt.Sprintf("%d", name.DefaultLevel()),
		kid:    fingerprint(pkBytes),
	}
}

func (s *signerService) router() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/health", handleHealthOK)
	mux.Get("/orchestrator/signer", s.handleSignerInfo)
	mux.Post(fmt.Sprintf("/%s/sign", s.name), s.handleSign)
	mux.Post("/orchestrator/bootstrap", s.handleBootstrap)
	mux.Post("/orchestrator/encapsulate-verified", s.handleEncapsulateVerified)
	return mux
}

func (s *signerService) handleSignerInfo(w http.ResponseWriter, r *http.Request) {
	pkBytes, _ := s.pk.MarshalBinary()
	writeJSON(w, http.StatusOK, map[string]any{
		"publicKey": b64(pkBytes),
		"level":     s.level,
		"kid":       s.kid,
	})
}

func (s *signerService) handleSign(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	message, err := unb64(str(req, "messageBase64"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "messageBase64 is not valid base64")
		return
	}

	signature := s.scheme.Sign(s.sk, message, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"signature": b64(signature),
		"level":     s.level,
		"kid":       s.kid,
	})
}

func (s *signerService) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	kemPk, kemSk, err := s.kem.GenerateKeyPair()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "keygen_failed", err.Error())
		return
	}

	kemPkBytes, _ := kemPk.MarshalBinary()
	kemSkBytes, _ := kemSk.MarshalBinary()
	signerPkBytes, _ := s.pk.MarshalBinary()
	signature := s.scheme.Sign(s.sk, kemPkBytes, nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"signature":       b64(signature),
		"signerPublicKey": b64(signerPkBytes),
		"level":           s.level,
		"kyberPublicKey":  b64(kemPkBytes),
		"kyberSecretKey":  b64(kemSkBytes),
	})
}

func (s *signerService) handleEncapsulateVerified(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	kyberPkBytes, err := unb64(str(req, "kyberPublicKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "kyberPublicKey is not valid base64")
		return
	}
	signature, err := unb64(str(req, "signature"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "signature is not valid base64")
		return
	}
	signerPkBytes, err := unb64(str(req, "signerPublicKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "signerPublicKey is not valid base64")
		return
	}

	// The signer key may come from this service or from the rotation
	// service, which uses a level-dependent parameter set; pick the
	// scheme by key size.
	sigScheme := schemeForPublicKeySize(len(signerPkBytes))
	if sigScheme == nil {
		writeError(w, http.StatusBadRequest, "bad_request", "unsupported signer public key size")
		return
	}

	signerPk, err := sigScheme.UnmarshalBinaryPublicKey(signerPkBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if !sigScheme.Verify(signerPk, kyberPkBytes, signature, nil) {
		writeError(w, http.StatusBadRequest, "signature_verification_failed",
			"signature mismatch over kyber public key")
		return
	}

	kemPk, err := s.kem.UnmarshalBinaryPublicKey(kyberPkBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ct, ss, err := s.kem.Encapsulate(kemPk)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encapsulation_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ciphertext":   b64(ct),
		"sharedSecret": b64(ss),
	})
}

// rotationService serves the key-rotation contract, holding one active key
// per algorithm identifier.
type rotationService struct {
	mu   sync.Mutex
	keys map[string]*rotationKey
}

type rotationKey struct {
	scheme sign.Scheme
	pk     sign.PublicKey
	sk     sign.PrivateKey
	kid    string
}

func newRotationService() *rotationService {
	return &rotationService{keys: map[string]*rotationKey{}}
}

func (s *rotationService) router() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/health", handleHealthOK)
	mux.Get("/orchestrator/keys/current", s.handleCurrentKey)
	mux.Post("/keys/rotate", s.handleRotate)
	mux.Post("/sign", s.handleSign)
	return mux
}

func (s *rotationService) handleCurrentKey(w http.ResponseWriter, r *http.Request) {
	alg := r.URL.Query().Get("alg")

	s.mu.Lock()
	key, ok := s.keys[alg]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no_active_key", fmt.Sprintf("no active key for %q", alg))
		return
	}

	pkBytes, _ := key.pk.MarshalBinary()
	writeJSON(w, http.StatusOK, map[string]any{
		"publicKey": b64(pkBytes),
		"kid":       key.kid,
	})
}

func (s *rotationService) handleRotate(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	alg := str(req, "alg")
	if alg == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "alg is required")
		return
	}

	sigScheme := schemeForAlg(alg)
	pk, sk, err := sigScheme.GenerateKey()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "keygen_failed", err.Error())
		return
	}
	pkBytes, _ := pk.MarshalBinary()

	key := &rotationKey{scheme: sigScheme, pk: pk, sk: sk, kid: fingerprint(pkBytes)}

	s.mu.Lock()
	s.keys[alg] = key
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"publicKey": b64(pkBytes),
		"kid":       key.kid,
	})
}

func (s *rotationService) handleSign(w http.ResponseWriter, r *http.Request) {
	req, err := readJSON(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	alg := str(req, "alg")

	s.mu.Lock()
	key, ok := s.keys[alg]
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "no_active_key", fmt.Sprintf("no active key for %q", alg))
		return
	}

	message, err := unb64(str(req, "messageB64"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "messageB64 is not valid base64")
		return
	}

	signature := key.scheme.Sign(key.sk, message, nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"signatureB64": b64(signature),
		"kid":          key.kid,
	})
}

// signSchemeFor maps a scheme and level to an ML-DSA parameter set.
func signSchemeFor(scheme interfaces.Scheme, level int) sign.Scheme {
	if scheme == interfaces.SchemeFalcon {
		return mldsa44.Scheme()
	}
	switch {
	case level <= 2:
		return mldsa44.Scheme()
	case level <= 4:
		return mldsa65.Scheme()
	default:
		return mldsa87.Scheme()
	}
}

// schemeForAlg maps a rotation algorithm identifier like "dilithium-3" to a
// parameter set, defaulting to the mid-size set for unparseable input.
func schemeForAlg(alg string) sign.Scheme {
	name, levelStr, found := strings.Cut(alg, "-")
	if !found {
		return mldsa65.Scheme()
	}
	level := 0
	fmt.Sscanf(levelStr, "%d", &level)
	scheme, err := interfaces.NewScheme(name)
	if err != nil {
		return mldsa65.Scheme()
	}
	return signSchemeFor(scheme, level)
}

func schemeForPublicKeySize(size int) sign.Scheme {
	for _, s := range []sign.Scheme{mldsa44.Scheme(), mldsa65.Scheme(), mldsa87.Scheme()} {
		if s.PublicKeySize() == size {
			return s
		}
	}
	return nil
}
