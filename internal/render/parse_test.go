package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bigbag/seatalk-reader/internal/parmrk"
)

func TestParseHexLine(t *testing.T) {
	tests := []struct {
		line     string
		expected []byte
	}{
		{"20 01 0A 00", []byte{0x20, 0x01, 0x0A, 0x00}},
		{"0x20 0x1 0xa 0x0 ", []byte{0x20, 0x01, 0x0A, 0x00}},
		{"20 01 0A 00    ===> STW = 1.0 kn", []byte{0x20, 0x01, 0x0A, 0x00}},
		{"ff", []byte{0xFF}},
		{"   ", nil},
		{"", nil},
	}

	for _, tc := range tests {
		got, err := ParseHexLine(tc.line)
		require.NoError(t, err, tc.line)
		require.Equal(t, tc.expected, got, tc.line)
	}
}

func TestParseHexLine_Invalid(t *testing.T) {
	for _, line := range []string{"20 zz", "100", "0x"} {
		_, err := ParseHexLine(line)
		require.Error(t, err, line)
	}
}

func TestParseHexLine_RoundTripThroughHexWriter(t *testing.T) {
	frames := [][]byte{{0x89, 0x52, 0xFF, 0x00}, {0x9C, 0x21, 0x10, 0x00}}

	var out bytes.Buffer
	run(t, parmrk.Encode(frames), NewHexWriter(&out, true))

	var parsed [][]byte
	for _, line := range bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n")) {
		data, err := ParseHexLine(string(line))
		require.NoError(t, err)
		parsed = append(parsed, data)
	}
	require.Equal(t, frames, parsed)
}
