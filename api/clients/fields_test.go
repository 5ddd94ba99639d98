package clients

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstString_AliasOrder(t *testing.T) {
	m := map[string]any{"sig": "third", "signatureB64": "second", "signature": "first"}
	assert.Equal(t, "first", firstString(m, signatureAliases))

	delete(m, "signature")
	assert.Equal(t, "second", firstString(m, signatureAliases))
}

func TestFirstString_SkipsEmptyAndWrongTypes(t *testing.T) {
	// Empty strings are passed over; numbers are stringified since some
	// backends report numeric values.
	m := map[string]any{"signature": "", "signatureB64": 12.5, "sig": "fallback"}
	assert.Equal(t, "12.5", firstString(m, signatureAliases))

	delete(m, "signatureB64")
	assert.Equal(t, "fallback", firstString(m, signatureAliases))
}

func TestFirstString_NumericLevel(t *testing.T) {
	m := map[string]any{"level": float64(3)}
	assert.Equal(t, "3", firstString(m, levelAliases))
}

func TestFirstBool(t *testing.T) {
	assert.True(t, firstBool(map[string]any{"isCompressed": true}, compressedAliases))
	assert.False(t, firstBool(map[string]any{"isCompressed": "yes"}, compressedAliases))
	assert.False(t, firstBool(map[string]any{}, compressedAliases))
}

func TestRequireString_MissingNamesField(t *testing.T) {
	_, err := requireString(map[string]any{}, "signature", signatureAliases)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature")
}
