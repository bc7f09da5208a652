package main

import "testing"

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  spread\nover\tlines  ", 20, "spread over lines"},
		{"abcdefghij", 4, "abcd..."},
		{"héllo wörld", 5, "héllo..."},
	}
	for _, tt := range tests {
		if got := preview(tt.in, tt.n); got != tt.want {
			t.Errorf("preview(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
