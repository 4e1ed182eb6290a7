package qzone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGTK(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  uint32
	}{
		{name: "单字符", input: "a", want: 5381*33 + 'a'},
		{name: "两个字符", input: "ab", want: (5381*33+'a')*33 + 'b'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GTK(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGTKDeterministic(t *testing.T) {
	skey := "@AbCdEfGhIjKlMnOpQrStUvWxYz0123456789-_*"

	first, err := GTK(skey)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		got, err := GTK(skey)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	}

	assert.LessOrEqual(t, first, uint32(0x7FFFFFFF))
}

func TestGTKMatchesStepwiseMask(t *testing.T) {
	// 每步取模与最后取模结果一致
	skey := "p_skey_value_with_中文_and_long_tail_0123456789abcdef"

	var h int64 = 5381
	for _, r := range skey {
		h = (h + (h << 5) + int64(r)) & 0x7FFFFFFF
	}

	got, err := GTK(skey)
	require.NoError(t, err)
	assert.Equal(t, uint32(h), got)
}

func TestGTKEmpty(t *testing.T) {
	_, err := GTK("")
	require.ErrorIs(t, err, ErrEmptySessionKey)
}
