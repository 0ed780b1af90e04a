package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/models"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/gin-gonic/gin"
)

// maxBackupSize bounds uploaded backup documents.
const maxBackupSize = 16 << 20

// ============================================
// Plugin Handler
// ============================================

type PluginHandler struct {
	pluginService service.PluginService
}

func (h *PluginHandler) List(c *gin.Context) {
	plugins, err := h.pluginService.List(c.Request.Context(), c.Param("kind"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plugins)
}

// Manage applies enable, disable, up or down to one plugin.
func (h *PluginHandler) Manage(c *gin.Context) {
	kind, name := c.Param("kind"), c.Param("name")
	ctx := c.Request.Context()

	var err error
	switch c.Param("action") {
	case "enable":
		err = h.pluginService.Enable(ctx, kind, name)
	case "disable":
		err = h.pluginService.Disable(ctx, kind, name)
	case "up":
		err = h.pluginService.MoveUp(ctx, kind, name)
	case "down":
		err = h.pluginService.MoveDown(ctx, kind, name)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown plugin action"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	plugins, err := h.pluginService.List(ctx, kind)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, plugins)
}

func (h *PluginHandler) GetConfig(c *gin.Context) {
	cfg, err := h.pluginService.GetConfig(c.Request.Context(), service.Component(c.Param("kind"), c.Param("name")))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func (h *PluginHandler) SetConfig(c *gin.Context) {
	var req models.PluginConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	component := service.Component(c.Param("kind"), c.Param("name"))
	if err := h.pluginService.SetConfig(c.Request.Context(), component, req.Name, req.Value); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Config saved"})
}

// ============================================
// Privacy Handler
// ============================================

type PrivacyHandler struct {
	privacyService service.PrivacyService
}

func (h *PrivacyHandler) Contexts(c *gin.Context) {
	ids, err := h.privacyService.ContextsForUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"plenumIds": ids})
}

func (h *PrivacyHandler) Export(c *gin.Context) {
	var req models.PrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exports, err := h.privacyService.ExportUserData(c.Request.Context(), req.UserID, req.PlenumIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, exports)
}

func (h *PrivacyHandler) DeleteForUser(c *gin.Context) {
	var req models.PrivacyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.privacyService.DeleteDataForUser(c.Request.Context(), req.UserID, req.PlenumIDs); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User data deleted"})
}

func (h *PrivacyHandler) DeleteForUsers(c *gin.Context) {
	var req models.DeleteUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.privacyService.DeleteDataForUsers(c.Request.Context(), c.Param("id"), req.UserIDs); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User data deleted"})
}

func (h *PrivacyHandler) DeleteForContext(c *gin.Context) {
	if err := h.privacyService.DeleteDataForContext(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Plenum data deleted"})
}

// ============================================
// Backup Handler
// ============================================

type BackupHandler struct {
	backupService service.BackupService
}

func (h *BackupHandler) Export(c *gin.Context) {
	plenumID := c.Param("id")
	userInfo := c.Query("userInfo") == "true"

	data, err := h.backupService.Export(c.Request.Context(), plenumID, userInfo)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=plenum-%s.xml", plenumID))
	c.Data(http.StatusOK, "application/xml", data)
}

func (h *BackupHandler) Restore(c *gin.Context) {
	var req models.RestoreRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBackupSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read backup"})
		return
	}

	plenum, err := h.backupService.Restore(c.Request.Context(), data, service.RestoreOptions{
		CourseID: req.CourseID,
		UserInfo: req.UserInfo,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPlenumResponse(plenum))
}

// ============================================
// Token Handler
// ============================================

// TokenConfig holds the defaults for operator issued tokens.
type TokenConfig struct {
	DefaultTTL time.Duration
}

type TokenHandler struct {
	authService service.AuthService
	cfg         TokenConfig
}

// Issue signs a participant token on behalf of the hosting platform.
func (h *TokenHandler) Issue(c *gin.Context) {
	var req models.IssueTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ttl := h.cfg.DefaultTTL
	if req.TTL > 0 {
		ttl = time.Duration(req.TTL) * time.Second
	}

	token, err := h.authService.IssueToken(req.UserID, ttl, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.TokenResponse{Token: token, ExpiresAt: time.Now().Add(ttl)})
}
