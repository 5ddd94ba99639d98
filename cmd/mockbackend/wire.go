package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/crypto/sha3"
)

func handleHealthOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func readJSON(r *http.Request) (map[string]any, error) {
	parsed := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("could not parse request body: %w", err)
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, map[string]any{"error": code, "detail": detail})
}

func str(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func b64(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

func unb64(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// fingerprint is a short SHAKE-based key identifier.
func fingerprint(pk []byte) string {
	digest := make([]byte, 8)
	sha3.ShakeSum256(digest, pk)
	return fmt.Sprintf("%x", digest)
}
