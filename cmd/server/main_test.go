package main

import "testing"

func TestIsWeakSecret(t *testing.T) {
	cases := map[string]bool{
		"":                                         true,
		"short":                                    true,
		"please-change-me-before-going-live-12345": true,
		"k3v9Q2mX7pL0sR4tW8yZ1aB5cD6eF0gH":         false,
	}
	for secret, want := range cases {
		if got := isWeakSecret(secret); got != want {
			t.Fatalf("isWeakSecret(%q) want %v got %v", secret, want, got)
		}
	}
}
