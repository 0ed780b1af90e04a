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
// Plenum Handler
// ============================================

type PlenumHandler struct {
	plenumService service.PlenumService
}

func (h *PlenumHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	plenum, err := h.plenumService.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPlenumResponse(plenum))
}

// Administration

func (h *PlenumHandler) ListByCourse(c *gin.Context) {
	plenums, err := h.plenumService.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		respondError(c, err)
		return
	}

	response := make([]models.PlenumResponse, len(plenums))
	for i, p := range plenums {
		response[i] = toPlenumResponse(p)
	}

	c.JSON(http.StatusOK, response)
}

func (h *PlenumHandler) Create(c *gin.Context) {
	var req models.PlenumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plenum, err := h.plenumService.Create(c.Request.Context(), toPlenumInput(&req))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPlenumResponse(plenum))
}

func (h *PlenumHandler) Update(c *gin.Context) {
	var req models.PlenumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	plenum, err := h.plenumService.Update(c.Request.Context(), c.Param("id"), toPlenumInput(&req))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toPlenumResponse(plenum))
}

func (h *PlenumHandler) Delete(c *gin.Context) {
	if err := h.plenumService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plenum deleted"})
}

func (h *PlenumHandler) ListRoles(c *gin.Context) {
	roles, err := h.plenumService.ListRoles(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, roles)
}

func (h *PlenumHandler) AssignRole(c *gin.Context) {
	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.plenumService.AssignRole(c.Request.Context(), c.Param("id"), req.UserID, req.Role); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Role assigned"})
}

func (h *PlenumHandler) UnassignRole(c *gin.Context) {
	var req models.AssignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.plenumService.UnassignRole(c.Request.Context(), c.Param("id"), req.UserID, req.Role); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Role unassigned"})
}

func (h *PlenumHandler) SetOverride(c *gin.Context) {
	var req models.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.plenumService.SetOverride(c.Request.Context(), &repository.CapabilityOverride{
		PlenumID:   c.Param("id"),
		Role:       req.Role,
		Capability: req.Capability,
		Permission: req.Permission,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Override saved"})
}

func (h *PlenumHandler) AddGroupMember(c *gin.Context) {
	var req models.GroupMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.plenumService.AddGroupMember(c.Request.Context(), c.Param("id"), req.GroupID, req.UserID); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Group member added"})
}
