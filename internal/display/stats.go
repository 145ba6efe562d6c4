package display

// BufferStats describes the compositor's frame and glyph buffers. The
// memory service never interprets these fields, it passes them through
// overview reports untouched.
type BufferStats struct {
	Width           uint32 `json:"width"`
	Height          uint32 `json:"height"`
	Stride          uint32 `json:"stride"`
	BytesPerPixel   uint32 `json:"bytes_per_pixel"`
	FrontBytes      uint64 `json:"front_bytes"`
	BackBytes       uint64 `json:"back_bytes"`
	GlyphCacheBytes uint64 `json:"glyph_cache_bytes"`
	DirtyRows       uint32 `json:"dirty_rows"`
}
