package main

import "testing"

func TestParseFilterSpec(t *testing.T) {
	specs, err := parseFilterSpec("123:7FF, 1ABCDE~1FFFFFFF ,0:0")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []filterSpec{
		{id: 0x123, mask: 0x7FF},
		{id: 0x1ABCDE, mask: 0x1FFFFFFF, inverted: true},
		{id: 0, mask: 0},
	}
	if len(specs) != len(want) {
		t.Fatalf("got %d specs, want %d", len(specs), len(want))
	}
	for i, sp := range specs {
		if sp != want[i] {
			t.Fatalf("spec[%d] = %+v, want %+v", i, sp, want[i])
		}
	}
}

func TestParseFilterSpecEmpty(t *testing.T) {
	specs, err := parseFilterSpec("  ")
	if err != nil || specs != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", specs, err)
	}
}

func TestParseFilterSpecErrors(t *testing.T) {
	for _, spec := range []string{"123", "xyz:7FF", "123:mask", "123:100000000"} {
		if _, err := parseFilterSpec(spec); err == nil {
			t.Fatalf("%q: expected error", spec)
		}
	}
}

func TestParseErrMask(t *testing.T) {
	tests := []struct {
		in   string
		want uint32
	}{
		{"", 0},
		{"all", errMaskAll},
		{"20", 0x20},
		{"1FFFFFFF", errMaskAll},
	}
	for _, tc := range tests {
		got, err := parseErrMask(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %#x want %#x", tc.in, got, tc.want)
		}
	}
	if _, err := parseErrMask("nope"); err == nil {
		t.Fatal("expected error for non-hex mask")
	}
}
