package resource

import "testing"

func TestCollectionKey(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/pets", "/pets"},
		{"/pets/1", "/pets"},
		{"/pets/550e8400-e29b-41d4-a716-446655440000", "/pets"},
		{"/stores/7/orders/42", "/stores/7/orders"},
		{"/stores/7/orders", "/stores/7/orders"},
		{"/pets/1/", "/pets"},
		{"/pets/rex", "/pets/rex"}, // non-identifier segment stays
	}
	for _, tt := range tests {
		if got := CollectionKey(tt.path); got != tt.want {
			t.Errorf("CollectionKey(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestIsItemPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/pets/1", true},
		{"/pets/550e8400-e29b-41d4-a716-446655440000", true},
		{"/pets", false},
		{"/stores/7/orders", false},
		{"/pets/rex", false},
	}
	for _, tt := range tests {
		if got := IsItemPath(tt.path); got != tt.want {
			t.Errorf("IsItemPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
