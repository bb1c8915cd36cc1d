package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCodeVerifierIsUnpaddedAndUnique(t *testing.T) {
	v1, err := NewCodeVerifier()
	require.NoError(t, err)
	v2, err := NewCodeVerifier()
	require.NoError(t, err)

	assert.NotEqual(t, v1, v2)
	assert.NotContains(t, v1, "=")
	assert.GreaterOrEqual(t, len(v1), 43) // RFC 7636 minimum length
}

func TestCodeChallengeS256IsDeterministic(t *testing.T) {
	verifier := "fixed-test-verifier-value-1234567890"
	assert.Equal(t, CodeChallengeS256(verifier), CodeChallengeS256(verifier))
	assert.NotEqual(t, CodeChallengeS256(verifier), verifier)
}
