package htmlutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "IGN Spain", CleanText("  IGN\n   Spain\t"))
	require.Equal(t, "", CleanText("  \n\t"))
}

func TestLeadingInt(t *testing.T) {
	testCases := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"Based on 84 Critic Reviews", 84, true},
		{"1,204 Ratings", 1204, true},
		{"no digits here", 0, false},
		{"", 0, false},
	}
	for _, test := range testCases {
		n, ok := LeadingInt(test.input)
		require.Equal(t, test.ok, ok, "input: %q", test.input)
		require.Equal(t, test.expected, n, "input: %q", test.input)
	}
}
