package hints

// Label converts a 1-based hint index to its bijective base-26 label:
// 1 -> A, 26 -> Z, 27 -> AA, 28 -> AB. Zero or negative yields "".
func Label(n int) string {
	if n <= 0 {
		return ""
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		n--
		i--
		buf[i] = byte('A' + n%26)
		n /= 26
	}
	return string(buf[i:])
}
