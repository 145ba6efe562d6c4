package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
	"github.com/stratocompute/stratos/backend/internal/domain/memory/arena"
	"github.com/stratocompute/stratos/backend/internal/infrastructure/monitoring"
)

// parseAppID reads the :id path param. App ids live in the arena's u32
// namespace, not the service's ULID one.
func parseAppID(c *gin.Context) (arena.AppID, bool) {
	raw, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "app id must be an unsigned 32-bit integer",
		})
		return 0, false
	}
	return arena.AppID(raw), true
}

// RegisterApp grants an arena region and binds a per-app heap to it.
// Re-registering a live id succeeds without changing its grant.
func (h *Handlers) RegisterApp(c *gin.Context) {
	var req struct {
		AppID *uint32 `json:"app_id" binding:"required"`
		Quota uint32  `json:"quota" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}

	id := arena.AppID(*req.AppID)
	ok := h.manager.RegisterApp(id, req.Quota)
	if !ok {
		h.metrics.RecordMemOp("app", "register", "refused")
		c.JSON(http.StatusOK, gin.H{
			"success": false,
			"app_id":  id,
		})
		return
	}

	h.metrics.RecordMemOp("app", "register", "ok")
	region, _ := h.manager.AppRegion(id)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"app_id":  id,
		"region":  region,
	})
}

// ListApps returns the slot-indexed app table plus arena accounting.
// Empty slots appear as nulls, preserving slot positions.
func (h *Handlers) ListApps(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"apps":  h.manager.AppsSnapshot(),
		"arena": h.manager.ArenaInfo(),
	})
}

// GetApp returns one app's heap stats and region.
func (h *Handlers) GetApp(c *gin.Context) {
	id, ok := parseAppID(c)
	if !ok {
		return
	}

	stats, ok := h.manager.AppStats(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not registered"})
		return
	}
	region, _ := h.manager.AppRegion(id)

	c.JSON(http.StatusOK, gin.H{
		"app_id": id,
		"stats":  stats,
		"region": region,
	})
}

// UnregisterApp releases an app's slot and recycles its region.
func (h *Handlers) UnregisterApp(c *gin.Context) {
	id, ok := parseAppID(c)
	if !ok {
		return
	}

	success := h.manager.UnregisterApp(id)
	if success {
		h.metrics.RecordMemOp("app", "unregister", "ok")
	} else {
		h.metrics.RecordMemOp("app", "unregister", "refused")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": success,
		"app_id":  id,
	})
}

// AppAlloc claims a block from an app's granted region.
func (h *Handlers) AppAlloc(c *gin.Context) {
	id, ok := parseAppID(c)
	if !ok {
		return
	}

	var req struct {
		Size  uint32 `json:"size" binding:"required"`
		Align uint32 `json:"align"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Align == 0 {
		req.Align = 8
	}

	ref, _, err := h.manager.AppAlloc(id, req.Size, req.Align)
	if err != nil {
		h.metrics.RecordMemOp("app", "alloc", "refused")
		allocFailure(c, err)
		return
	}

	h.metrics.RecordMemOp("app", "alloc", "ok")
	h.metrics.RecordAllocBytes("app", req.Size)
	stats, _ := h.manager.AppStats(id)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"app_id":  id,
		"ref":     ref,
		"size":    req.Size,
		"stats":   stats,
	})
}

// AppFree returns a block to an app's heap. Refs outside the app's
// region are refused rather than corrupting a neighbor.
func (h *Handlers) AppFree(c *gin.Context) {
	id, ok := parseAppID(c)
	if !ok {
		return
	}

	var req struct {
		Ref   *uint32 `json:"ref" binding:"required"`
		Size  uint32  `json:"size" binding:"required"`
		Align uint32  `json:"align"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request: " + err.Error(),
		})
		return
	}
	if req.Align == 0 {
		req.Align = 8
	}

	success := h.manager.AppFree(id, alloc.Ref(*req.Ref), req.Size, req.Align)
	if success {
		h.metrics.RecordMemOp("app", "free", "ok")
	} else {
		h.metrics.RecordMemOp("app", "free", "refused")
	}

	resp := gin.H{
		"success": success,
		"app_id":  id,
	}
	if stats, ok := h.manager.AppStats(id); ok {
		resp["stats"] = stats
	}

	c.JSON(http.StatusOK, resp)
}

// AppCanReserve reports whether an allocation of the given size could
// plausibly succeed. Advisory: fragmentation can still defeat it.
func (h *Handlers) AppCanReserve(c *gin.Context) {
	id, ok := parseAppID(c)
	if !ok {
		return
	}

	bytes, err := strconv.ParseUint(c.Query("bytes"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bytes query param must be an unsigned 32-bit integer"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"app_id":      id,
		"bytes":       bytes,
		"can_reserve": h.manager.AppCanReserve(id, uint32(bytes)),
	})
}

// DumpApp streams a gzip'd copy of an app's raw region bytes.
func (h *Handlers) DumpApp(c *gin.Context) {
	id, ok := parseAppID(c)
	if !ok {
		return
	}

	data, ok := h.manager.AppDump(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not registered"})
		return
	}
	region, _ := h.manager.AppRegion(id)

	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Encoding", "gzip")
	c.Header("X-Region-Offset", strconv.FormatUint(uint64(region.Offset), 10))
	c.Header("X-Region-Size", strconv.FormatUint(uint64(region.Size), 10))
	c.Status(http.StatusOK)

	gz := gzip.NewWriter(c.Writer)
	if _, err := gz.Write(data); err != nil {
		h.log.Error("region dump write failed", zap.Error(err), zap.Uint32("app_id", uint32(id)))
		return
	}
	if err := gz.Close(); err != nil {
		h.log.Error("region dump close failed", zap.Error(err), zap.Uint32("app_id", uint32(id)))
	}
}

// GetArena returns arena-level accounting.
func (h *Handlers) GetArena(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.ArenaInfo())
}

// GetFragmentation returns the free-region distribution report.
func (h *Handlers) GetFragmentation(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.ArenaFragmentation())
}

// RunSelfTest exercises both tiers end to end and reports each step.
// A failing run returns 500 so probes can alert on status alone.
func (h *Handlers) RunSelfTest(c *gin.Context) {
	timer := monitoring.NewTimer(h.metrics, "selftest", "run")
	report := h.manager.SelfTest()

	if !report.Passed {
		timer.Stop("failure")
		c.JSON(http.StatusInternalServerError, report)
		return
	}

	timer.Stop("success")
	c.JSON(http.StatusOK, report)
}
