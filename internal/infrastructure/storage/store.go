package storage

import "context"

// ExportStore writes the per-video export artifact to a stable location
// keyed by video_id, for consumption outside this system.
type ExportStore interface {
	// Save writes the artifact and returns its location (path or object key).
	Save(ctx context.Context, videoID string, data []byte) (string, error)
	// Location returns the artifact location for a video, or "" if none exists.
	Location(ctx context.Context, videoID string) (string, error)
}
