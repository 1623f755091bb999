package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct{ in, want string }{
		{"jane@example.com", "j…@e….com"},
		{" Bob@Mail.Example.org ", "b…@m….example.org"},
		{"a@b.io", "a@b.io"},
		{"", ""},
		{"abc", "***"},
		{"nodomain", "n…n"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, maskEmail(tc.in), tc.in)
	}
}

func TestEmailField(t *testing.T) {
	f := Email("jane@example.com")
	require.Equal(t, "email", f.Key)
	require.Equal(t, "j…@e….com", f.String)
}
