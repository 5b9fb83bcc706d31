package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	t.Parallel()

	tcs := []struct {
		in, want string
	}{
		{"alice@example.com", "al***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"broken", "***"},
		{"a@b@c", "***"},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.want, Email(tc.in), tc.in)
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	require.Equal(t, "-", Fingerprint(""))

	fp := Fingerprint("access-1")
	require.Len(t, fp, 8)
	require.Equal(t, fp, Fingerprint("access-1"))
	require.NotEqual(t, fp, Fingerprint("access-2"))
	require.NotContains(t, fp, "access")
}
