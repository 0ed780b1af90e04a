package handlers

import (
	"net/http"

	"github.com/Marga-Ghale/plenum-backend/internal/api/middleware"
	"github.com/Marga-Ghale/plenum-backend/internal/models"
	"github.com/gin-gonic/gin"
)

// ============================================
// Meeting Form Handler
// ============================================

type FormHandler struct {
	forms *Forms
}

// Content renders the meeting view of the plenum's configured form.
func (h *FormHandler) Content(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	groupID, ok := groupParam(c)
	if !ok {
		return
	}

	content, err := h.forms.Manager.Content(c.Request.Context(), userID, c.Param("id"), groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, content)
}

func (h *FormHandler) Enabled(c *gin.Context) {
	names, err := h.forms.Manager.Enabled(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"forms": names})
}

// Jitsi

func (h *FormHandler) RaiseHand(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.RaiseHandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.forms.Jitsi.RaiseHand(c.Request.Context(), userID, c.Param("id"), req.GroupID, req.RaiseHand); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"raisehand": req.RaiseHand})
}

// Jitsi2

func (h *FormHandler) JoinRoom(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.forms.Jitsi2.JoinRoom(c.Request.Context(), userID, c.Param("id"), req.Join)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *FormHandler) PublishFeed(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.PublishFeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status, err := h.forms.Jitsi2.PublishFeed(c.Request.Context(), userID, c.Param("id"), req.GroupID, req.JitsiID, req.Publish)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (h *FormHandler) UpdateContent(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}
	groupID, ok := groupParam(c)
	if !ok {
		return
	}

	content, err := h.forms.Jitsi2.UpdateContent(c.Request.Context(), userID, c.Param("id"), groupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, content)
}

// Deft

func (h *FormHandler) JoinPeer(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.JoinPeerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	peer, err := h.forms.Deft.Join(c.Request.Context(), userID, c.Param("id"), req.GroupID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, peer)
}

func (h *FormHandler) LeavePeer(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	if err := h.forms.Deft.Leave(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Left"})
}

func (h *FormHandler) Mute(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	var req models.MuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.forms.Deft.Mute(c.Request.Context(), userID, c.Param("id"), req.Mute); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"mute": req.Mute})
}

func (h *FormHandler) Peers(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	peers, err := h.forms.Deft.Peers(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, peers)
}

func (h *FormHandler) RenewToken(c *gin.Context) {
	userID, ok := middleware.RequireUserID(c)
	if !ok {
		return
	}

	token, err := h.forms.Deft.RenewToken(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
