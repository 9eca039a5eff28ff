package textenc

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// "テスト" in Shift-JIS.
var sjisTesuto = []byte{0x83, 0x65, 0x83, 0x58, 0x83, 0x67}

func TestDecodePlainASCII(t *testing.T) {
	s, enc := Decode([]byte("#TITLE plain\n"))
	if enc != UTF8 {
		t.Fatalf("expected %s, got %s", UTF8, enc)
	}
	if s != "#TITLE plain\n" {
		t.Fatalf("expected text unchanged, got %q", s)
	}
}

func TestDecodeStripsUTF8BOM(t *testing.T) {
	b := append([]byte{0xEF, 0xBB, 0xBF}, []byte("#TITLE bom")...)
	s, enc := Decode(b)
	if enc != UTF8 {
		t.Fatalf("expected %s, got %s", UTF8, enc)
	}
	if s != "#TITLE bom" {
		t.Fatalf("expected BOM stripped, got %q", s)
	}
}

func TestDecodeKeepsValidUTF8(t *testing.T) {
	s, enc := Decode([]byte("#TITLE テスト"))
	if enc != UTF8 {
		t.Fatalf("expected %s, got %s", UTF8, enc)
	}
	if s != "#TITLE テスト" {
		t.Fatalf("expected text unchanged, got %q", s)
	}
}

func TestDecodeSniffsShiftJIS(t *testing.T) {
	b := append([]byte("#TITLE "), sjisTesuto...)
	s, enc := Decode(b)
	if enc != ShiftJIS {
		t.Fatalf("expected %s, got %s", ShiftJIS, enc)
	}
	if s != "#TITLE テスト" {
		t.Fatalf("expected decoded title, got %q", s)
	}
}

func TestDecodeUTF16WithBOM(t *testing.T) {
	b := []byte{0xFF, 0xFE, '#', 0x00, 'T', 0x00}
	s, enc := Decode(b)
	if enc != UTF16LE {
		t.Fatalf("expected %s, got %s", UTF16LE, enc)
	}
	if s != "#T" {
		t.Fatalf("expected %q, got %q", "#T", s)
	}
}

func TestDecodeFallsBackLossy(t *testing.T) {
	// 0x81 0x20 is an invalid trail byte in both Shift-JIS and EUC-KR.
	b := []byte{'#', 'T', 0x81, 0x20}
	s, enc := Decode(b)
	if enc != ShiftJIS {
		t.Fatalf("expected lossy %s fallback, got %s", ShiftJIS, enc)
	}
	if !strings.ContainsRune(s, utf8.RuneError) {
		t.Fatalf("expected replacement rune in %q", s)
	}
}

func TestDecodeNamedEUCKR(t *testing.T) {
	// "한" in EUC-KR.
	b := []byte{0xC7, 0xD1}
	s, enc := DecodeNamed(b, "EUC-KR")
	if enc != EUCKR {
		t.Fatalf("expected %s, got %s", EUCKR, enc)
	}
	if s != "한" {
		t.Fatalf("expected %q, got %q", "한", s)
	}
}

func TestDecodeNamedAliases(t *testing.T) {
	for _, name := range []string{"sjis", "Shift_JIS", "shift-jis", "CP932"} {
		s, enc := DecodeNamed(sjisTesuto, name)
		if enc != ShiftJIS {
			t.Fatalf("%s: expected %s, got %s", name, ShiftJIS, enc)
		}
		if s != "テスト" {
			t.Fatalf("%s: expected decoded text, got %q", name, s)
		}
	}
}

func TestDecodeNamedUnknownFallsBackToSniff(t *testing.T) {
	s, enc := DecodeNamed([]byte("#TITLE x"), "klingon")
	if enc != UTF8 {
		t.Fatalf("expected sniffed %s, got %s", UTF8, enc)
	}
	if s != "#TITLE x" {
		t.Fatalf("expected text unchanged, got %q", s)
	}
}
