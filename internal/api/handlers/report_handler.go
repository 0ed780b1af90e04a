package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/plenum-backend/internal/api/middleware"
	"github.com/Marga-Ghale/plenum-backend/internal/models"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Report Handler
// ============================================

type ReportHandler struct {
	reportService service.ReportService
}

func (h *ReportHandler) Motions(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var q models.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.reportService.Motions(c.Request.Context(), userID, repository.MotionReportFilter{
		PlenumID:     c.Param("id"),
		GroupID:      q.GroupID,
		UserID:       q.UserID,
		UserName:     q.UserName,
		Types:        q.Types,
		ParentTypes:  q.ParentTypes,
		Statuses:     q.Statuses,
		CreatedFrom:  q.CreatedFrom,
		CreatedTo:    q.CreatedTo,
		ModifiedFrom: q.ModifiedFrom,
		ModifiedTo:   q.ModifiedTo,
		SortBy:       q.SortBy,
		SortDesc:     q.SortDesc,
		Page:         q.Page,
		PerPage:      q.PerPage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ReportHandler) FilterOptions(c *gin.Context) {
	options, err := h.reportService.FilterOptions(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, options)
}

// ============================================
// Completion Handler
// ============================================

type CompletionHandler struct {
	completionService service.CompletionService
}

func (h *CompletionHandler) State(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	state, err := h.completionService.CompletionState(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, state)
}

func (h *CompletionHandler) Overview(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	overview, err := h.completionService.Overview(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, overview)
}
