package packet

import (
	"golang.org/x/text/encoding/charmap"
)

// Charset converts a packet payload between its wire bytes and a Go
// string. It is a construction-time property of a Session; changing it
// mid-session is not supported.
type Charset interface {
	// Encode turns a payload string into wire bytes.
	Encode(s string) []byte
	// Decode turns wire bytes into a payload string.
	Decode(b []byte) string
	// Name identifies the charset for logging.
	Name() string
}

// UTF8 is the default charset.
var UTF8 Charset = utf8Charset{}

// ISO88591 decodes legacy consoles that emit color escapes prefixed by
// byte 0xA7, which is not valid US-ASCII or guaranteed-valid UTF-8.
var ISO88591 Charset = iso88591Charset{}

type utf8Charset struct{}

func (utf8Charset) Encode(s string) []byte { return []byte(s) }
func (utf8Charset) Decode(b []byte) string { return string(b) }
func (utf8Charset) Name() string           { return "UTF-8" }

type iso88591Charset struct{}

func (iso88591Charset) Encode(s string) []byte {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
	if err != nil {
		// ISO-8859-1 cannot represent the rune; fall back to the string's
		// UTF-8 bytes unchanged rather than failing a send outright.
		return []byte(s)
	}
	return b
}

func (iso88591Charset) Decode(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

func (iso88591Charset) Name() string { return "ISO-8859-1" }
