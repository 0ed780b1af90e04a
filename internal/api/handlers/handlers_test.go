package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/api/middleware"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	plenumID = "0b9a5c4e-6f62-4d0e-9f3b-5d2a7a1c9e10"
	motionID = "6d1f0c2b-3a4e-4b5c-8d9e-0f1a2b3c4d5e"
)

type stubAuth struct{}

func (stubAuth) ValidateToken(token string) (*jwt.Token, error) {
	if token != "good" {
		return nil, service.ErrInvalidToken
	}
	return &jwt.Token{Valid: true}, nil
}

func (stubAuth) GetUserIDFromToken(*jwt.Token) (string, error) { return "alice", nil }

func (stubAuth) IssueToken(userID string, ttl time.Duration, _ map[string]interface{}) (string, error) {
	return fmt.Sprintf("%s/%s", userID, ttl), nil
}

func (stubAuth) CheckAdminKey(key string) bool { return key == "secret" }

// stubMotions answers every call with canned values.
type stubMotions struct {
	motion    *repository.Motion
	pending   []*repository.Motion
	err       error
	proposed  service.ProposeInput
	userID    string
	groupSeen int64
}

func (s *stubMotions) Propose(_ context.Context, userID string, in service.ProposeInput) (*repository.Motion, error) {
	s.userID, s.proposed = userID, in
	if s.err != nil {
		return nil, s.err
	}
	return &repository.Motion{ID: "m1", PlenumID: in.PlenumID, Type: in.Type, Status: types.StatusPending, UserCreated: userID}, nil
}

func (s *stubMotions) GetImmediatePending(_ context.Context, _, _ string, groupID int64) (*repository.Motion, error) {
	s.groupSeen = groupID
	return s.motion, s.err
}

func (s *stubMotions) Transition(_ context.Context, _, _, _ string) (*repository.Motion, error) {
	return s.motion, s.err
}

func (s *stubMotions) GetPendingMotions(context.Context, string, string, int64) ([]*repository.Motion, error) {
	return s.pending, s.err
}

func (s *stubMotions) GetMotion(context.Context, string, string) (*repository.Motion, error) {
	return s.motion, s.err
}

func (s *stubMotions) ListMotions(context.Context, string, string, int64) ([]*repository.Motion, error) {
	return s.pending, s.err
}

func (s *stubMotions) OfferedTypes(context.Context, string, string, int64) ([]string, error) {
	return []string{types.MotionOrder}, s.err
}

func newRouter(motions service.MotionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handlers{
		Motion: &MotionHandler{motionService: motions},
		Token:  &TokenHandler{authService: stubAuth{}, cfg: TokenConfig{DefaultTTL: time.Hour}},
	}

	r := gin.New()
	protected := r.Group("/api", middleware.AuthMiddleware(stubAuth{}))
	plenums := protected.Group("/plenums", middleware.IDParam("id"))
	plenums.GET("/:id/pending", h.Motion.Pending)
	plenums.POST("/:id/motions", h.Motion.Propose)
	protected.POST("/motions/:id/transition", middleware.IDParam("id"), h.Motion.Transition)

	admin := r.Group("/admin", middleware.AdminKeyMiddleware(stubAuth{}))
	admin.POST("/tokens", h.Token.Issue)
	return r
}

func do(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var bearer = map[string]string{"Authorization": "Bearer good"}

func TestAuthRequired(t *testing.T) {
	r := newRouter(&stubMotions{})

	w := do(r, http.MethodGet, "/api/plenums/"+plenumID+"/pending", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/api/plenums/"+plenumID+"/pending", nil, map[string]string{"Authorization": "Bearer bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPending(t *testing.T) {
	open := &repository.Motion{ID: "m0", Type: types.MotionOpen, Status: types.StatusAdopted}
	order := &repository.Motion{ID: "m1", Type: types.MotionOrder, Status: types.StatusPending}
	motions := &stubMotions{motion: order, pending: []*repository.Motion{open, order}}
	r := newRouter(motions)

	w := do(r, http.MethodGet, "/api/plenums/"+plenumID+"/pending?groupId=3", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), motions.groupSeen)

	var body struct {
		Immediate struct {
			ID string `json:"id"`
		} `json:"immediate"`
		Pending []map[string]interface{} `json:"pending"`
		Offered []string                 `json:"offered"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "m1", body.Immediate.ID)
	assert.Len(t, body.Pending, 2)
	assert.Equal(t, []string{types.MotionOrder}, body.Offered)

	w = do(r, http.MethodGet, "/api/plenums/"+plenumID+"/pending?groupId=x", nil, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPropose(t *testing.T) {
	motions := &stubMotions{}
	r := newRouter(motions)

	w := do(r, http.MethodPost, "/api/plenums/"+plenumID+"/motions", map[string]interface{}{
		"type": types.MotionOrder,
		"data": map[string]interface{}{"text": "hello"},
	}, bearer)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "alice", motions.userID)
	assert.Equal(t, plenumID, motions.proposed.PlenumID)
	assert.Equal(t, "hello", motions.proposed.Data["text"])

	w = do(r, http.MethodPost, "/api/plenums/"+plenumID+"/motions", map[string]interface{}{}, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorStatuses(t *testing.T) {
	tests := []struct {
		name string
		id   string
		err  error
		want int
	}{
		{"forbidden", motionID, fmt.Errorf("%w: chair only", service.ErrForbidden), http.StatusForbidden},
		{"invalid state", motionID, fmt.Errorf("%w: motion is closed", service.ErrInvalidState), http.StatusConflict},
		{"not found", motionID, fmt.Errorf("%w: motion", service.ErrNotFound), http.StatusNotFound},
		{"invalid input", motionID, fmt.Errorf("%w: unknown action", service.ErrInvalidInput), http.StatusBadRequest},
		{"unexpected", motionID, fmt.Errorf("database is down"), http.StatusInternalServerError},
		{"malformed id", "abc", fmt.Errorf("database is down"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRouter(&stubMotions{err: tt.err})
			w := do(r, http.MethodPost, "/api/motions/"+tt.id+"/transition", map[string]string{"action": types.ActionAdopt}, bearer)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestMalformedPlenumID(t *testing.T) {
	motions := &stubMotions{}
	r := newRouter(motions)

	w := do(r, http.MethodGet, "/api/plenums/not-a-plenum/pending", nil, bearer)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid id")
	assert.Zero(t, motions.groupSeen)
}

func TestIssueTokenNeedsAdminKey(t *testing.T) {
	r := newRouter(&stubMotions{})

	w := do(r, http.MethodPost, "/admin/tokens", map[string]string{"userId": "bob"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/admin/tokens", map[string]interface{}{"userId": "bob", "ttl": 60}, map[string]string{middleware.AdminKeyHeader: "secret"})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "bob/1m0s", body.Token)
}
