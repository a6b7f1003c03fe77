package parmrk

// EncodeFrame appends the raw form of one frame: a marker and the start
// byte as is, then the remaining bytes with every literal 0xFF doubled.
func EncodeFrame(dst []byte, frame []byte) []byte {
	for i, b := range frame {
		if i == 0 {
			dst = append(dst, Esc, Mark, b)
			continue
		}
		if b == Esc {
			dst = append(dst, Esc, EscEsc)
			continue
		}
		dst = append(dst, b)
	}
	return dst
}

// Encode produces the raw stream a parity-marking UART would deliver for the
// given frames.
func Encode(frames [][]byte) []byte {
	// Pre-allocate with some extra space for markers
	n := 0
	for _, f := range frames {
		n += len(f) + 2
	}
	result := make([]byte, 0, n)
	for _, f := range frames {
		result = EncodeFrame(result, f)
	}
	return result
}
