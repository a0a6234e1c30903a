// SPDX-License-Identifier: MIT

// Command mpdstat inspects a Million Playlist Dataset directory: it
// reports the file layout, classifies the dataset variant, and with
// -full decodes every slice for playlist and track counts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/config"
	applog "github.com/HimashaRandil/spotify-recommendation-challenge/internal/log"
	"github.com/HimashaRandil/spotify-recommendation-challenge/internal/mpd"
)

var version = "v0.1.0"

type report struct {
	Structure *mpd.Structure `json:"structure"`
	Dataset   string         `json:"dataset,omitempty"`
	Playlists int            `json:"playlists,omitempty"`
	Unique    int            `json:"unique_tracks,omitempty"`
	Instances int            `json:"track_instances,omitempty"`
	AvgFreq   float64        `json:"avg_frequency,omitempty"`
	Slices    []sliceCount   `json:"slices,omitempty"`
}

type sliceCount struct {
	File      string `json:"file"`
	Playlists int    `json:"playlists"`
}

func main() {
	dir := flag.String("dir", config.ParseString("MPD_DATA", "data/raw"), "dataset directory")
	maxFiles := flag.Int("max", 0, "limit the number of slice files scanned (0 = all)")
	full := flag.Bool("full", false, "decode every slice for playlist and track counts")
	perSlice := flag.Bool("slices", false, "list per-slice playlist counts (implies decoding)")
	asJSON := flag.Bool("json", false, "emit the report as JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mpdstat %s\n", version)
		os.Exit(0)
	}

	applog.Configure(applog.Config{
		Level:   config.ParseString("LOG_LEVEL", "warn"),
		Service: "mpdstat",
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *dir, *maxFiles, *full, *perSlice, *asJSON); err != nil {
		fmt.Fprintf(os.Stderr, "mpdstat: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dir string, maxFiles int, full, perSlice, asJSON bool) error {
	structure, err := mpd.AnalyzeDir(dir)
	if err != nil {
		return err
	}

	rep := report{Structure: structure}

	if perSlice {
		counts, err := countPerSlice(ctx, dir, maxFiles)
		if err != nil {
			return err
		}
		rep.Slices = counts
		for _, sc := range counts {
			rep.Playlists += sc.Playlists
		}
		rep.Dataset = mpd.Classify(rep.Playlists).Describe()
	}

	if full {
		result, err := mpd.ExtractTracks(ctx, dir, mpd.ExtractOptions{MaxFiles: maxFiles})
		if err != nil {
			return err
		}
		rep.Playlists = result.Playlists
		rep.Unique = result.UniqueTracks()
		rep.Instances = result.TrackInstances
		rep.AvgFreq = result.AverageFrequency()
		rep.Dataset = mpd.Classify(result.Playlists).Describe()
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}

	printReport(rep, full, perSlice)
	return nil
}

// countPerSlice decodes each slice just far enough to count its
// playlists.
func countPerSlice(ctx context.Context, dir string, maxFiles int) ([]sliceCount, error) {
	paths, err := mpd.DiscoverSlices(dir, maxFiles)
	if err != nil {
		return nil, err
	}

	counts := make([]sliceCount, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var slice mpd.Slice
		if err := json.Unmarshal(data, &slice); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
		}
		counts = append(counts, sliceCount{
			File:      filepath.Base(path),
			Playlists: len(slice.Playlists),
		})
	}
	return counts, nil
}

func printReport(rep report, full, perSlice bool) {
	st := rep.Structure
	fmt.Printf("Dataset directory: %s\n", st.Dir)
	fmt.Printf("  files:       %d\n", st.TotalFiles)
	fmt.Printf("  json files:  %d\n", st.JSONFiles)
	fmt.Printf("  slice files: %d\n", st.SliceFiles)
	fmt.Printf("  total size:  %.1f MiB\n", float64(st.TotalBytes)/(1<<20))

	if perSlice {
		fmt.Println("\nPlaylists per slice:")
		for _, sc := range rep.Slices {
			fmt.Printf("  %-40s %d\n", sc.File, sc.Playlists)
		}
	}

	if !full {
		if !perSlice {
			fmt.Println("\nRun with -full to decode slices for playlist and track counts.")
			return
		}
		fmt.Printf("\nDataset: %s (%d playlists)\n", rep.Dataset, rep.Playlists)
		return
	}

	fmt.Printf("\nDataset: %s\n", rep.Dataset)
	fmt.Printf("  playlists:       %d\n", rep.Playlists)
	fmt.Printf("  unique tracks:   %d\n", rep.Unique)
	fmt.Printf("  track instances: %d\n", rep.Instances)
	fmt.Printf("  avg frequency:   %.2f\n", rep.AvgFreq)
}
