// SPDX-License-Identifier: MIT

package mpd

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		playlists int
		want      DatasetKind
	}{
		{1_000_000, KindFull},
		{10_000, KindChallenge},
		{1_000_001, KindExtended},
		{9_999, KindSample},
		{0, KindSample},
		{50_000, KindCustom},
		{999_999, KindCustom},
	}
	for _, tt := range tests {
		if got := Classify(tt.playlists); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.playlists, got, tt.want)
		}
	}
}

func TestDescribeCoversAllKinds(t *testing.T) {
	for _, k := range []DatasetKind{KindFull, KindChallenge, KindExtended, KindSample, KindCustom} {
		if k.Describe() == "" {
			t.Errorf("Describe(%q) is empty", k)
		}
	}
}
