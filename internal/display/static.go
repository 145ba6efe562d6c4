package display

import "context"

// Static serves one fixed stats value. A nil Stats means no display,
// matching a headless boot.
type Static struct {
	Stats *BufferStats
}

// BufferStats returns the configured value.
func (s *Static) BufferStats(context.Context) *BufferStats {
	return s.Stats
}
