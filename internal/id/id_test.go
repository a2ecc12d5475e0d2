package id

import "testing"

func TestUUID(t *testing.T) {
	a := UUID()
	b := UUID()
	if a == b {
		t.Error("two UUIDs should not collide")
	}
	if !IsUUID(a) {
		t.Errorf("generated UUID %q does not parse", a)
	}
}

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"42", true},
		{"0", true},
		{"550e8400-e29b-41d4-a716-446655440000", true},
		{"users", false},
		{"", false},
		{"12abc", false},
		{"-1", false},
	}
	for _, tt := range tests {
		if got := IsIdentifier(tt.in); got != tt.want {
			t.Errorf("IsIdentifier(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRandomIntBounds(t *testing.T) {
	for i := 0; i < 1000; i++ {
		n := RandomInt()
		if n < 1 || n > 999999 {
			t.Fatalf("RandomInt() = %d, out of range", n)
		}
	}
}
