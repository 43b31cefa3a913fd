package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNickname(t *testing.T) {
	format := regexp.MustCompile(`^[A-Z][a-z]+-[A-Z][a-z]+-\d{4}$`)

	for i := 0; i < 50; i++ {
		nickname, err := GenerateNickname()
		require.NoError(t, err)
		assert.Regexp(t, format, nickname)
		assert.LessOrEqual(t, len(nickname), 50)
	}
}
