package slcan

import (
	"testing"

	"github.com/canlink/go-can-gateway/internal/can"
)

// FuzzDecodeFrame ensures the line parser doesn't panic on arbitrary input
// and that anything it accepts survives a re-encode round trip.
func FuzzDecodeFrame(f *testing.F) {
	f.Add("t1232AABB")
	f.Add("T000012318DEADBEEF01020304")
	f.Add("r1FF0")
	f.Add("d123B0011223344556677889900")
	f.Add("")
	f.Add("t")
	f.Fuzz(func(t *testing.T, line string) {
		fr, err := DecodeFrame(line)
		if err != nil {
			return
		}
		again, err := DecodeFrame(trimCR(EncodeFrame(fr)))
		if err != nil {
			t.Fatalf("re-decode of %q failed: %v", line, err)
		}
		if again != fr {
			t.Fatalf("round trip changed frame: %#v != %#v", again, fr)
		}
	})
}

func trimCR(s string) string {
	if len(s) > 0 && s[len(s)-1] == '\r' {
		return s[:len(s)-1]
	}
	return s
}

func BenchmarkEncodeFrame(b *testing.B) {
	f := can.Frame{ID: 0x123, Len: 8}
	copy(f.Data[:], []byte{1, 2, 3, 4, 5, 6, 7, 8})
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = EncodeFrame(f)
	}
}

func BenchmarkDecodeFrame(b *testing.B) {
	line := "T000012318DEADBEEF01020304"
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_, _ = DecodeFrame(line)
	}
}
