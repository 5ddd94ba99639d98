package clients

import (
	"fmt"
	"strconv"
)

// Accepted field-name aliases per logical field, in resolution order. The
// downstream services predate a shared wire convention; first present and
// well-typed value wins.
var (
	signatureAliases = []string{"signature", "signatureB64", "signature_b64", "sig"}
	publicKeyAliases = []string{"publicKey", "public_key", "pubKey", "publicKeyB64"}
	levelAliases     = []string{"level", "securityLevel", "nistLevel"}
	kidAliases       = []string{"kid", "keyId", "key_id"}
)

// firstString returns the first alias present in m with a non-empty string
// value. Numeric values are stringified, since some backends report levels
// as numbers.
func firstString(m map[string]any, aliases []string) string {
	for _, key := range aliases {
		v, ok := m[key]
		if !ok {
			continue
		}
		switch s := v.(type) {
		case string:
			if s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		}
	}
	return ""
}

// firstBool returns the first alias present in m holding a bool.
func firstBool(m map[string]any, aliases []string) bool {
	for _, key := range aliases {
		if b, ok := m[key].(bool); ok {
			return b
		}
	}
	return false
}

// requireString resolves an alias list and errors when nothing matched,
// naming the logical field.
func requireString(m map[string]any, field string, aliases []string) (string, error) {
	if s := firstString(m, aliases); s != "" {
		return s, nil
	}
	return "", fmt.Errorf("response missing %s (accepted keys: %v)", field, aliases)
}
