// Package textenc turns chart bytes of unknown encoding into UTF-8. The
// format predates Unicode: nearly everything in the wild is Shift-JIS,
// Korean charts are EUC-KR, and only recent files are UTF-8.
package textenc

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/unicode"
)

// Encoding names reported by Decode and accepted by DecodeNamed.
const (
	UTF8     = "utf-8"
	UTF16LE  = "utf-16le"
	UTF16BE  = "utf-16be"
	ShiftJIS = "shift-jis"
	EUCKR    = "euc-kr"
)

var (
	bomUTF8 = []byte{0xEF, 0xBB, 0xBF}
	bomLE   = []byte{0xFF, 0xFE}
	bomBE   = []byte{0xFE, 0xFF}
)

// Decode converts raw chart bytes to UTF-8 and reports the encoding it
// settled on. Byte-order marks win, valid UTF-8 stays as it is, then the
// legacy encodings are tried in order of likelihood. When nothing decodes
// cleanly the Shift-JIS result is returned anyway, replacement runes and
// all, so a damaged file still parses instead of failing outright.
func Decode(b []byte) (string, string) {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return string(b[len(bomUTF8):]), UTF8
	case bytes.HasPrefix(b, bomLE):
		if s, err := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder().Bytes(b); err == nil {
			return string(s), UTF16LE
		}
	case bytes.HasPrefix(b, bomBE):
		if s, err := unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder().Bytes(b); err == nil {
			return string(s), UTF16BE
		}
	}
	if utf8.Valid(b) {
		return string(b), UTF8
	}
	if s, err := japanese.ShiftJIS.NewDecoder().Bytes(b); err == nil && !bytes.ContainsRune(s, utf8.RuneError) {
		return string(s), ShiftJIS
	}
	if s, err := korean.EUCKR.NewDecoder().Bytes(b); err == nil && !bytes.ContainsRune(s, utf8.RuneError) {
		return string(s), EUCKR
	}
	if s, err := japanese.ShiftJIS.NewDecoder().Bytes(b); err == nil {
		return string(s), ShiftJIS
	}
	return string(b), UTF8
}

// DecodeNamed decodes with a caller-chosen encoding, for tools that take
// an explicit flag or trust a chart's own #CHARSET header. Unknown names
// fall back to the sniffer.
func DecodeNamed(b []byte, name string) (string, string) {
	switch normalizeName(name) {
	case "utf8":
		return string(bytes.TrimPrefix(b, bomUTF8)), UTF8
	case "sjis", "shiftjis", "cp932", "windows31j":
		if s, err := japanese.ShiftJIS.NewDecoder().Bytes(b); err == nil {
			return string(s), ShiftJIS
		}
	case "euckr", "cp949":
		if s, err := korean.EUCKR.NewDecoder().Bytes(b); err == nil {
			return string(s), EUCKR
		}
	}
	return Decode(b)
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}
