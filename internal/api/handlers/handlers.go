package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Marga-Ghale/plenum-backend/internal/meetingform"
	"github.com/Marga-Ghale/plenum-backend/internal/models"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	Motion     *MotionHandler
	Plenum     *PlenumHandler
	Grade      *GradeHandler
	Report     *ReportHandler
	Completion *CompletionHandler
	Form       *FormHandler
	Plugin     *PluginHandler
	Privacy    *PrivacyHandler
	Backup     *BackupHandler
	Token      *TokenHandler
}

// Forms bundles the meeting forms that expose their own endpoints.
type Forms struct {
	Manager *meetingform.Manager
	Jitsi   *meetingform.Jitsi
	Jitsi2  *meetingform.Jitsi2
	Deft    *meetingform.Deft
}

// NewHandlers creates all handlers
func NewHandlers(services *service.Services, forms *Forms, cfg TokenConfig) *Handlers {
	return &Handlers{
		Motion:     &MotionHandler{motionService: services.Motion},
		Plenum:     &PlenumHandler{plenumService: services.Plenum},
		Grade:      &GradeHandler{gradeService: services.Grade},
		Report:     &ReportHandler{reportService: services.Report},
		Completion: &CompletionHandler{completionService: services.Completion},
		Form:       &FormHandler{forms: forms},
		Plugin:     &PluginHandler{pluginService: services.Plugin},
		Privacy:    &PrivacyHandler{privacyService: services.Privacy},
		Backup:     &BackupHandler{backupService: services.Backup},
		Token:      &TokenHandler{authService: services.Auth, cfg: cfg},
	}
}

// ============================================
// Errors
// ============================================

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		zap.L().Error("[HTTP] Unexpected error", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// groupParam reads the optional groupId query parameter.
func groupParam(c *gin.Context) (int64, bool) {
	raw := c.Query("groupId")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid groupId"})
		return 0, false
	}
	return id, true
}

// ============================================
// Response Mappers
// ============================================

func toMotionResponse(m *repository.Motion) *models.MotionResponse {
	if m == nil {
		return nil
	}
	return &models.MotionResponse{
		ID:           m.ID,
		PlenumID:     m.PlenumID,
		GroupID:      m.GroupID,
		Type:         m.Type,
		Status:       m.Status,
		ParentID:     m.ParentID,
		UserCreated:  m.UserCreated,
		UserModified: m.UserModified,
		Data:         m.Data,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toMotionResponses(motions []*repository.Motion) []*models.MotionResponse {
	return lo.Map(motions, func(m *repository.Motion, _ int) *models.MotionResponse {
		return toMotionResponse(m)
	})
}

func toPlenumResponse(p *repository.Plenum) models.PlenumResponse {
	return models.PlenumResponse{
		ID:                p.ID,
		CourseID:          p.CourseID,
		Name:              p.Name,
		Intro:             p.Intro,
		Form:              p.Form,
		Grade:             p.Grade,
		GroupMode:         p.GroupMode,
		CompletionMotions: p.CompletionMotions,
		FormOptions:       p.FormOptions,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func toGradeResponse(g *repository.Grade) models.GradeResponse {
	resp := models.GradeResponse{
		ID:         g.ID,
		PlenumID:   g.PlenumID,
		UserID:     g.UserID,
		ItemNumber: g.ItemNumber,
		Grader:     g.Grader,
		UpdatedAt:  g.UpdatedAt,
	}
	if g.Grade.Valid {
		value := g.Grade.Decimal
		resp.Grade = &value
	}
	return resp
}

func toPlenumInput(req *models.PlenumRequest) service.PlenumInput {
	return service.PlenumInput{
		CourseID:          req.CourseID,
		Name:              req.Name,
		Intro:             req.Intro,
		Form:              req.Form,
		Grade:             req.Grade,
		GroupMode:         req.GroupMode,
		CompletionMotions: req.CompletionMotions,
		FormOptions:       req.FormOptions,
	}
}
