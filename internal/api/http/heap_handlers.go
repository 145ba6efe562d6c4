package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stratocompute/stratos/backend/internal/domain/memory/alloc"
	"github.com/stratocompute/stratos/backend/internal/domain/memory/arena"
)

// allocFailure maps allocator errors onto HTTP statuses.
func allocFailure(c *gin.Context, err error) {
	switch {
	case errors.Is(err, alloc.ErrBadAlign):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, alloc.ErrNoSpace):
		c.JSON(http.StatusInsufficientStorage, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	case errors.Is(err, arena.ErrUnknownApp):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
	}
}

// GetHeap returns kernel heap stats with fragment visibility.
func (h *Handlers) GetHeap(c *gin.Context) {
	c.JSON(http.StatusOK, h.manager.HeapDetail())
}

// KernelAlloc claims a block from the kernel heap.
func (h *Handlers) KernelAlloc(c *gin.Context) {
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

	ref, _, err := h.manager.Kalloc(req.Size, req.Align)
	if err != nil {
		h.metrics.RecordMemOp("kernel", "alloc", "refused")
		allocFailure(c, err)
		return
	}

	h.metrics.RecordMemOp("kernel", "alloc", "ok")
	h.metrics.RecordAllocBytes("kernel", req.Size)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"ref":     ref,
		"size":    req.Size,
		"stats":   h.manager.HeapStats(),
	})
}

// KernelFree returns a block to the kernel heap. The caller owns the
// contract that ref and size match the original allocation.
func (h *Handlers) KernelFree(c *gin.Context) {
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

	h.manager.Kdealloc(alloc.Ref(*req.Ref), req.Size, req.Align)
	h.metrics.RecordMemOp("kernel", "free", "ok")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"stats":   h.manager.HeapStats(),
	})
}
