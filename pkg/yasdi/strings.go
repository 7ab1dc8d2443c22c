package yasdi

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
)

// cString decodes a NUL terminated buffer written by the library. SMA
// firmware strings are latin-1, so bytes above 0x7f (the degree sign in
// units) are mapped instead of dropped.
func cString(buf []byte) string {
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	for _, b := range buf {
		if b >= 0x80 {
			decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(buf)
			if err != nil {
				return string(buf)
			}
			return string(decoded)
		}
	}
	return string(buf)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 || s[i] == 0 {
			return false
		}
	}
	return true
}
