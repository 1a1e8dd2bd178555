package weburl

import "testing"

func TestIsValid(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"https://example.com", true},
		{"http://localhost:3000", true},
		{"not-a-url", false},
		{"", false},
		{"ftp://files.example.com/a.txt", true},
		{"example.com/path", false},
		{"http://", false},
	}
	for _, tc := range cases {
		if got := IsValid(tc.input); got != tc.want {
			t.Fatalf("IsValid(%q) = %v, want %v", tc.input, got, tc.want)
		}
	}
}
