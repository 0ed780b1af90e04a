package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/plenum-backend/internal/api/middleware"
	"github.com/Marga-Ghale/plenum-backend/internal/models"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

// ============================================
// Grade Handler
// ============================================

type GradeHandler struct {
	gradeService service.GradeService
}

func (h *GradeHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	grades, err := h.gradeService.ListGrades(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, lo.Map(grades, func(g *repository.Grade, _ int) models.GradeResponse {
		return toGradeResponse(g)
	}))
}

func (h *GradeHandler) Store(c *gin.Context) {
	graderID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.StoreGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	grade, err := h.gradeService.StoreGrade(c.Request.Context(), graderID, c.Param("id"), req.UserID, req.Grade)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toGradeResponse(grade))
}

// Mine returns the caller's own grade, or 404 when none was recorded.
func (h *GradeHandler) Mine(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	grade, err := h.gradeService.GetGrade(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toGradeResponse(grade))
}
