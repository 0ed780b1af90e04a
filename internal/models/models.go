package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================
// Motion DTOs
// ============================================

type ProposeMotionRequest struct {
	GroupID  int64                  `json:"groupId" binding:"gte=0"`
	Type     string                 `json:"type" binding:"required,max=20"`
	ParentID *string                `json:"parentId,omitempty" binding:"omitempty,uuid"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Draft    bool                   `json:"draft"`
}

type TransitionRequest struct {
	Action string `json:"action" binding:"required"`
}

type MotionResponse struct {
	ID           string                 `json:"id"`
	PlenumID     string                 `json:"plenumId"`
	GroupID      int64                  `json:"groupId"`
	Type         string                 `json:"type"`
	Status       string                 `json:"status"`
	ParentID     *string                `json:"parentId,omitempty"`
	UserCreated  string                 `json:"userCreated"`
	UserModified string                 `json:"userModified"`
	Data         map[string]interface{} `json:"data,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

type PendingResponse struct {
	Immediate *MotionResponse   `json:"immediate"`
	Pending   []*MotionResponse `json:"pending"`
	Offered   []string          `json:"offered"`
}

// ============================================
// Plenum DTOs
// ============================================

type PlenumRequest struct {
	CourseID          string                 `json:"courseId" binding:"required"`
	Name              string                 `json:"name" binding:"required,max=255"`
	Intro             string                 `json:"intro"`
	Form              string                 `json:"form" binding:"required"`
	Grade             decimal.Decimal        `json:"grade"`
	GroupMode         int                    `json:"groupMode" binding:"gte=0,lte=2"`
	CompletionMotions int                    `json:"completionMotions" binding:"gte=0"`
	FormOptions       map[string]interface{} `json:"formOptions,omitempty"`
}

type PlenumResponse struct {
	ID                string                 `json:"id"`
	CourseID          string                 `json:"courseId"`
	Name              string                 `json:"name"`
	Intro             string                 `json:"intro"`
	Form              string                 `json:"form"`
	Grade             decimal.Decimal        `json:"grade"`
	GroupMode         int                    `json:"groupMode"`
	CompletionMotions int                    `json:"completionMotions"`
	FormOptions       map[string]interface{} `json:"formOptions,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
}

type AssignRoleRequest struct {
	UserID string `json:"userId" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

type OverrideRequest struct {
	Role       string `json:"role" binding:"required"`
	Capability string `json:"capability" binding:"required"`
	Permission string `json:"permission" binding:"required,oneof=allow prohibit"`
}

type GroupMemberRequest struct {
	GroupID int64  `json:"groupId" binding:"required,gt=0"`
	UserID  string `json:"userId" binding:"required"`
}

// ============================================
// Grade DTOs
// ============================================

type StoreGradeRequest struct {
	UserID string          `json:"userId" binding:"required"`
	Grade  decimal.Decimal `json:"grade"`
}

type GradeResponse struct {
	ID         string           `json:"id"`
	PlenumID   string           `json:"plenumId"`
	UserID     string           `json:"userId"`
	ItemNumber int              `json:"itemNumber"`
	Grade      *decimal.Decimal `json:"grade"`
	Grader     string           `json:"grader"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// ============================================
// Report DTOs
// ============================================

// ReportQuery is bound from the report URL query string.
type ReportQuery struct {
	GroupID      *int64     `form:"groupId"`
	UserID       string     `form:"userId"`
	UserName     string     `form:"userName"`
	Types        []string   `form:"type"`
	ParentTypes  []string   `form:"parentType"`
	Statuses     []string   `form:"status"`
	CreatedFrom  *time.Time `form:"createdFrom" time_format:"2006-01-02"`
	CreatedTo    *time.Time `form:"createdTo" time_format:"2006-01-02"`
	ModifiedFrom *time.Time `form:"modifiedFrom" time_format:"2006-01-02"`
	ModifiedTo   *time.Time `form:"modifiedTo" time_format:"2006-01-02"`
	SortBy       string     `form:"sort"`
	SortDesc     bool       `form:"desc"`
	Page         int        `form:"page" binding:"gte=0"`
	PerPage      int        `form:"perPage" binding:"gte=0,lte=500"`
}

// ============================================
// Plugin DTOs
// ============================================

type PluginConfigRequest struct {
	Name  string `json:"name" binding:"required"`
	Value string `json:"value"`
}

// ============================================
// Meeting Form DTOs
// ============================================

type RaiseHandRequest struct {
	GroupID   int64 `json:"groupId"`
	RaiseHand bool  `json:"raisehand"`
}

type JoinRoomRequest struct {
	Join bool `json:"join"`
}

type PublishFeedRequest struct {
	GroupID int64  `json:"groupId"`
	JitsiID string `json:"id" binding:"required"`
	Publish bool   `json:"publish"`
}

type JoinPeerRequest struct {
	GroupID int64 `json:"groupId"`
}

type MuteRequest struct {
	Mute bool `json:"mute"`
}

// ============================================
// Admin DTOs
// ============================================

type PrivacyRequest struct {
	UserID    string   `json:"userId" binding:"required"`
	PlenumIDs []string `json:"plenumIds"`
}

type DeleteUsersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

type RestoreRequest struct {
	CourseID string `form:"courseId"`
	UserInfo bool   `form:"userInfo"`
}

type IssueTokenRequest struct {
	UserID string `json:"userId" binding:"required"`
	// TTL in seconds; zero uses the socket token lifetime.
	TTL int `json:"ttl" binding:"gte=0"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
