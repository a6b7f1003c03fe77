package render

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseHexLine reads one line of HexWriter output back into bytes. Tokens
// may carry a 0x prefix; anything after "===>" is ignored.
func ParseHexLine(line string) ([]byte, error) {
	if i := strings.Index(line, "===>"); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, nil
	}

	data := make([]byte, 0, len(fields))
	for _, tok := range fields {
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		v, err := strconv.ParseUint(tok, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q", tok)
		}
		data = append(data, byte(v))
	}
	return data, nil
}
