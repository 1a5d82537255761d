package tagwrite

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
)

// Charset names understood directly; anything else is looked up in the IANA
// registry.
const (
	CharsetISO88591 = "ISO-8859-1"
	CharsetUTF8     = "UTF-8"
	CharsetUTF16    = "UTF-16"
	CharsetUTF16LE  = "UTF-16LE"
	CharsetUTF16BE  = "UTF-16BE"
)

// canonicalCharset upper-cases name and folds common aliases.
func canonicalCharset(name string) string {
	n := strings.ToUpper(strings.TrimSpace(name))
	switch n {
	case "LATIN1", "LATIN-1", "ISO8859-1", "ISO_8859-1":
		return CharsetISO88591
	case "UTF8":
		return CharsetUTF8
	}
	return n
}

func lookupCharset(name string) (encoding.Encoding, error) {
	switch canonicalCharset(name) {
	case CharsetISO88591:
		return charmap.ISO8859_1, nil
	case CharsetUTF8:
		return unicode.UTF8, nil
	case CharsetUTF16:
		return unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), nil
	case CharsetUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	case CharsetUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("unknown character set %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("character set %q is not supported", name)
	}
	return enc, nil
}

// ValidCharset reports whether name can be used as a source encoding.
func ValidCharset(name string) error {
	_, err := lookupCharset(name)
	return err
}

// Transcode converts s from one character set to another. Characters the
// target cannot represent are replaced.
func Transcode(s, from, to string) (string, error) {
	if canonicalCharset(from) == canonicalCharset(to) {
		return s, nil
	}
	src, err := lookupCharset(from)
	if err != nil {
		return "", err
	}
	dst, err := lookupCharset(to)
	if err != nil {
		return "", err
	}

	decoded := s
	if canonicalCharset(from) != CharsetUTF8 {
		if decoded, err = src.NewDecoder().String(s); err != nil {
			return "", fmt.Errorf("decoding %s: %w", from, err)
		}
	} else if !utf8.ValidString(s) {
		decoded = strings.ToValidUTF8(s, "\uFFFD")
	}
	if canonicalCharset(to) == CharsetUTF8 {
		return decoded, nil
	}
	out, err := encoding.ReplaceUnsupported(dst.NewEncoder()).String(decoded)
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", to, err)
	}
	return out, nil
}

// isASCII reports whether s has no byte above 0x7F.
func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
