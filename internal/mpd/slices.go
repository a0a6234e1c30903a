// SPDX-License-Identifier: MIT

package mpd

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// SlicePattern matches the canonical MPD slice file naming scheme.
const SlicePattern = "mpd.slice.*.json"

// DiscoverSlices returns the sorted list of slice files under dir.
// When maxFiles > 0, the list is truncated to the first maxFiles
// entries, which mirrors the original test-run behaviour.
func DiscoverSlices(dir string, maxFiles int) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, SlicePattern))
	if err != nil {
		return nil, fmt.Errorf("glob slices in %q: %w", dir, err)
	}
	sort.Strings(matches)
	if maxFiles > 0 && len(matches) > maxFiles {
		matches = matches[:maxFiles]
	}
	return matches, nil
}

// Structure summarises the layout of a dataset directory.
type Structure struct {
	Dir        string `json:"dir"`
	TotalFiles int    `json:"total_files"`
	JSONFiles  int    `json:"json_files"`
	SliceFiles int    `json:"slice_files"`
	TotalBytes int64  `json:"total_bytes"`
}

// AnalyzeDir inspects a dataset directory without decoding any slice.
func AnalyzeDir(dir string) (*Structure, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir %q: %w", dir, err)
	}

	st := &Structure{Dir: dir}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		st.TotalFiles++
		if filepath.Ext(e.Name()) == ".json" {
			st.JSONFiles++
			if ok, _ := filepath.Match(SlicePattern, e.Name()); ok {
				st.SliceFiles++
			}
		}
		if info, err := e.Info(); err == nil {
			st.TotalBytes += info.Size()
		}
	}
	return st, nil
}
