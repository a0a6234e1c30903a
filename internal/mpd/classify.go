// SPDX-License-Identifier: MIT

package mpd

// DatasetKind labels a dataset by its total playlist count.
type DatasetKind string

const (
	// KindFull is the complete Million Playlist Dataset.
	KindFull DatasetKind = "full"
	// KindChallenge is the 10k challenge set (partial playlists).
	KindChallenge DatasetKind = "challenge"
	// KindExtended has more playlists than the full MPD.
	KindExtended DatasetKind = "extended"
	// KindSample is a subset smaller than the challenge set.
	KindSample DatasetKind = "sample"
	// KindCustom is anything in between.
	KindCustom DatasetKind = "custom"
)

// Playlist counts that identify the published dataset variants.
const (
	FullPlaylistCount      = 1_000_000
	ChallengePlaylistCount = 10_000
)

// Classify maps a total playlist count onto the dataset variant it
// most plausibly represents.
func Classify(totalPlaylists int) DatasetKind {
	switch {
	case totalPlaylists == FullPlaylistCount:
		return KindFull
	case totalPlaylists == ChallengePlaylistCount:
		return KindChallenge
	case totalPlaylists > FullPlaylistCount:
		return KindExtended
	case totalPlaylists < ChallengePlaylistCount:
		return KindSample
	default:
		return KindCustom
	}
}

// Describe returns a human-readable summary for CLI output.
func (k DatasetKind) Describe() string {
	switch k {
	case KindFull:
		return "complete Million Playlist Dataset (MPD)"
	case KindChallenge:
		return "challenge dataset"
	case KindExtended:
		return "more than 1M playlists, may include additional data"
	case KindSample:
		return "sample or subset of the data"
	default:
		return "custom dataset size"
	}
}
