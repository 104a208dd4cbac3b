package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBanner(t *testing.T) {
	t.Setenv(EnvNoBanner, "")

	tests := []struct {
		name      string
		text      string
		width     int
		alignment int
		want      string
	}{
		{"center", "abc", 7, AlignCenter, "╒═════╕\n│ abc │\n└─────┘\n"},
		{"left", "abc", 7, AlignLeft, "╒═════╕\n│abc  │\n└─────┘\n"},
		{"right", "abc", 7, AlignRight, "╒═════╕\n│  abc│\n└─────┘\n"},
		{"truncated", "abcdefgh", 7, AlignLeft, "╒═════╕\n│abcd…│\n└─────┘\n"},
		{"multi line", "a\nb", 5, AlignLeft, "╒═══╕\n│a  │\n│b  │\n└───┘\n"},
		{"bad alignment", "abc", 7, 42, ""},
		{"too narrow", "abc", 2, AlignLeft, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Banner(tt.text, tt.width, tt.alignment))
		})
	}
}

func TestBanner_Suppressed(t *testing.T) {
	t.Setenv(EnvNoBanner, "true")

	assert.Equal(t, "plain\n", Banner("plain", 20, AlignCenter))
}

func TestDivider(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "┠───┨\n", Divider(5))
}
