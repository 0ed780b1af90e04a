package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/plenum-backend/internal/api/middleware"
	"github.com/Marga-Ghale/plenum-backend/internal/models"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// ============================================
// Motion Handler
// ============================================

type MotionHandler struct {
	motionService service.MotionService
}

// Pending returns the pending stack of a plenum with the motion that has
// the floor and the motion types the caller may propose now.
func (h *MotionHandler) Pending(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	groupID, ok := groupParam(c)
	if !ok {
		return
	}
	plenumID := c.Param("id")
	ctx := c.Request.Context()

	pending, err := h.motionService.GetPendingMotions(ctx, userID, plenumID, groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	immediate, err := h.motionService.GetImmediatePending(ctx, userID, plenumID, groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	offered, err := h.motionService.OfferedTypes(ctx, userID, plenumID, groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.PendingResponse{
		Immediate: toMotionResponse(immediate),
		Pending:   toMotionResponses(pending),
		Offered:   offered,
	})
}

func (h *MotionHandler) List(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	groupID, ok := groupParam(c)
	if !ok {
		return
	}

	motions, err := h.motionService.ListMotions(c.Request.Context(), userID, c.Param("id"), groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMotionResponses(motions))
}

func (h *MotionHandler) Propose(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.ProposeMotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	motion, err := h.motionService.Propose(c.Request.Context(), userID, service.ProposeInput{
		PlenumID: c.Param("id"),
		GroupID:  req.GroupID,
		Type:     req.Type,
		ParentID: req.ParentID,
		Data:     req.Data,
		Draft:    req.Draft,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toMotionResponse(motion))
}

func (h *MotionHandler) Get(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	motion, err := h.motionService.GetMotion(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMotionResponse(motion))
}

func (h *MotionHandler) Transition(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	motion, err := h.motionService.Transition(c.Request.Context(), userID, c.Param("id"), req.Action)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, toMotionResponse(motion))
}
