package worklink

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{
			input:    "https://site.example/game/foo/critic-reviews/?x=1",
			expected: "https://site.example/game/foo",
		},
		{
			input:    "https://www.metacritic.com/game/hades/",
			expected: "https://www.metacritic.com/game/hades",
		},
		{
			input:    "https://www.metacritic.com/game/hades/user-reviews/",
			expected: "https://www.metacritic.com/game/hades",
		},
		{
			input:    "https://www.metacritic.com/game/hades?ref=hp",
			expected: "https://www.metacritic.com/game/hades",
		},
		{
			input:    "https://www.metacritic.com/game",
			expected: "https://www.metacritic.com/game",
		},
		{
			input:    "not a url at all",
			expected: "not a url at all",
		},
		{
			input:    "",
			expected: "",
		},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, Normalize(test.input), "input: %q", test.input)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://site.example/game/foo/critic-reviews/?x=1",
		"https://www.metacritic.com/game/elden-ring/",
		"https://www.metacritic.com",
		"",
	}
	for _, input := range inputs {
		once := Normalize(input)
		require.Equal(t, once, Normalize(once), "input: %q", input)
	}
}
