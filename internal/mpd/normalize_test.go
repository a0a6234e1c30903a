// SPDX-License-Identifier: MIT

package mpd

import "testing"

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "WORKOUT", "workout"},
		{"trim and collapse spaces", "  chill   vibes  ", "chill vibes"},
		{"punctuation stripped", "Road Trip!!!", "road trip"},
		{"punctuation becomes separator", "rock&roll", "rock roll"},
		{"accents folded", "Café del Mar", "cafe del mar"},
		{"emoji removed", "summer 🔥🔥", "summer"},
		{"digits kept", "Top 100", "top 100"},
		{"empty", "", ""},
		{"only symbols", "!!! ???", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeTitle(tt.in); got != tt.want {
				t.Errorf("NormalizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeTitleIdempotent(t *testing.T) {
	inputs := []string{"Röad Trìp", "lo-fi beats", "Ünïcödé"}
	for _, in := range inputs {
		once := NormalizeTitle(in)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Errorf("NormalizeTitle not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
