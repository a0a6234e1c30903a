// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldJobID     = "job_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldOutcome   = "outcome"

	// Dataset fields
	FieldSliceFile  = "slice_file"
	FieldPlaylistID = "pid"
	FieldTrackURI   = "track_uri"
	FieldBatch      = "batch"
	FieldBatches    = "batches"

	// Path fields
	FieldPath    = "path"
	FieldDataDir = "data_dir"
	FieldBaseURL = "base_url"
)
