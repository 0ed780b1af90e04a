package meetingform

import (
	"context"
	"fmt"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ============================================
// Jitsi2
// ============================================

// Jitsi2 runs a Jitsi conference where only the chair and the floor holder
// publish video. Published feeds are tracked as speaker rows.
type Jitsi2 struct {
	deps     *Deps
	speakers repository.SpeakerRepository
	now      func() time.Time
}

func NewJitsi2(deps *Deps, speakers repository.SpeakerRepository) *Jitsi2 {
	return &Jitsi2{deps: deps, speakers: speakers, now: time.Now}
}

func (j *Jitsi2) Name() string { return types.FormJitsi2 }

// SpeakerInfo fills a video slot.
type SpeakerInfo struct {
	Role string `json:"role"`
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Jitsi2Content is what clients poll between motion updates.
type Jitsi2Content struct {
	Motions        []*repository.Motion `json:"motions"`
	ShareVideo     bool                 `json:"sharevideo"`
	IsSharingVideo bool                 `json:"issharingvideo"`
	UserInfo       []SpeakerInfo        `json:"userinfo"`
}

// room prefers the room carried by the floor motion in grouped plenums,
// then the plenum's configured room.
func (j *Jitsi2) room(scope *Scope) string {
	if scope.Plenum.GroupMode != types.GroupModeNone && len(scope.Pending) > 0 {
		last := scope.Pending[len(scope.Pending)-1]
		if room, ok := last.Data["room"].(string); ok && room != "" {
			return room
		}
	}
	room, _ := scope.Plenum.FormOptions["room"].(string)
	return room
}

func (j *Jitsi2) token(cfg map[string]string, room string, p participant) (string, error) {
	claims := jwt.MapClaims{
		"aud":       "jitsi2",
		"iss":       cfg["appid"],
		"sub":       cfg["server"],
		"room":      room,
		"moderator": p.Moderator,
		"exp":       j.now().Add(24 * time.Hour).Unix(),
		"context": map[string]interface{}{
			"user": map[string]interface{}{
				"id":    p.Username,
				"name":  p.Name,
				"email": p.Email,
			},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = "jitsi2/custom_key_name"
	return token.SignedString([]byte(cfg["secret"]))
}

func (j *Jitsi2) Content(ctx context.Context, scope *Scope) (map[string]interface{}, error) {
	cfg := j.deps.config(ctx, types.FormJitsi2)
	room := j.room(scope)
	p := j.deps.participant(ctx, scope)

	token, err := j.token(cfg, room, p)
	if err != nil {
		return nil, fmt.Errorf("failed to sign conference token: %w", err)
	}
	return map[string]interface{}{
		"delay":    delayMillis(cfg),
		"email":    p.Email,
		"fullname": p.Name,
		"jwt":      token,
		"room":     room,
		"server":   cfg["server"],
		"slots": []map[string]string{
			{"slot": "chair", "slotname": "Chair"},
			{"slot": "speaker", "slotname": "Floor"},
		},
	}, nil
}

// JoinRoom records a participant entering or leaving the conference.
func (j *Jitsi2) JoinRoom(ctx context.Context, userID, plenumID string, join bool) (bool, error) {
	if _, err := j.deps.scope(ctx, userID, plenumID, 0, types.CapView); err != nil {
		return false, err
	}
	event := "video_ended"
	if join {
		event = "video_started"
	}
	zap.L().Info("[Jitsi2] "+event, zap.String("plenum", plenumID), zap.String("user", userID))
	return true, nil
}

// PublishFeed starts or stops the caller's published video. Only the floor
// holder may publish without presiding. It reports whether anything changed.
func (j *Jitsi2) PublishFeed(ctx context.Context, userID, plenumID string, groupID int64, jitsiID string, publish bool) (bool, error) {
	scope, err := j.deps.scope(ctx, userID, plenumID, groupID, types.CapMeet)
	if err != nil {
		return false, err
	}
	immediate := scope.Immediate

	if publish {
		if immediate == nil {
			return false, fmt.Errorf("%w: nothing has the floor", service.ErrInvalidState)
		}
		if immediate.UserCreated != userID && !scope.Chair {
			return false, fmt.Errorf("%w: only the floor holder or the chair may publish", service.ErrForbidden)
		}
	}

	if !publish {
		ended, err := j.speakers.EndActiveByUser(ctx, plenumID, userID)
		if err != nil {
			return false, fmt.Errorf("failed to end speaker: %w", err)
		}
		if ended == 0 {
			return false, nil
		}
		zap.L().Info("[Jitsi2] video_ended", zap.String("plenum", plenumID), zap.String("user", userID))
		return true, nil
	}

	if _, err := j.speakers.EndActiveByGroup(ctx, plenumID, immediate.GroupID); err != nil {
		return false, fmt.Errorf("failed to end group speakers: %w", err)
	}
	if _, err := j.speakers.EndActiveByUser(ctx, plenumID, userID); err != nil {
		return false, fmt.Errorf("failed to end speaker: %w", err)
	}

	role := types.SpeakerRoleSpeaker
	if scope.Chair {
		role = types.SpeakerRoleChair
	}
	speaker := &repository.Speaker{
		PlenumID:    plenumID,
		MotionID:    immediate.ID,
		UserID:      userID,
		JitsiUserID: jitsiID,
		Role:        role,
		Status:      types.ConnectionActive,
	}
	if err := j.speakers.Create(ctx, speaker); err != nil {
		return false, fmt.Errorf("failed to record speaker: %w", err)
	}
	zap.L().Info("[Jitsi2] video_started",
		zap.String("plenum", plenumID), zap.String("user", userID), zap.String("motion", immediate.ID))
	return true, nil
}

// UpdateContent returns the motions, the caller's video controls and the
// occupants of the chair and floor slots.
func (j *Jitsi2) UpdateContent(ctx context.Context, userID, plenumID string, groupID int64) (*Jitsi2Content, error) {
	scope, err := j.deps.scope(ctx, userID, plenumID, groupID, types.CapView)
	if err != nil {
		return nil, err
	}
	immediate := scope.Immediate

	hasFloor := immediate != nil && immediate.UserCreated == userID
	canShare := immediate != nil &&
		j.deps.Permissions.HasCapability(ctx, userID, plenumID, types.CapMeet) &&
		j.deps.Permissions.HasCapability(ctx, userID, plenumID, types.CapShareVideo) &&
		(scope.Chair || hasFloor)

	speakers, err := j.speakers.FindActiveByGroup(ctx, plenumID, scope.GroupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load speakers: %w", err)
	}

	sharing := false
	if canShare {
		for _, s := range speakers {
			if s.UserID == userID {
				sharing = true
				break
			}
		}
	}

	return &Jitsi2Content{
		Motions:        scope.Pending,
		ShareVideo:     canShare,
		IsSharingVideo: sharing,
		UserInfo:       j.slots(ctx, speakers, immediate),
	}, nil
}

// slots fills the chair and speaker slots from active speakers, falling back
// to placeholders.
func (j *Jitsi2) slots(ctx context.Context, speakers []*repository.Speaker, immediate *repository.Motion) []SpeakerInfo {
	byRole := map[int]SpeakerInfo{}
	for _, s := range speakers {
		role := "speaker"
		if s.Role == types.SpeakerRoleChair {
			role = "chair"
		}
		byRole[s.Role] = SpeakerInfo{Role: role, ID: s.JitsiUserID, Name: j.deps.userName(ctx, s.UserID)}
	}

	chair, ok := byRole[types.SpeakerRoleChair]
	if !ok {
		chair = SpeakerInfo{Role: "chair", Name: "Chair"}
	}
	speaker, ok := byRole[types.SpeakerRoleSpeaker]
	if !ok {
		speaker = SpeakerInfo{Role: "speaker", Name: "Floor"}
		if immediate != nil {
			speaker.Name = j.deps.userName(ctx, immediate.UserCreated)
		}
	}
	return []SpeakerInfo{chair, speaker}
}

// OnMotionUpdated ends the feeds of speakers who lost the floor. Chairs keep
// theirs.
func (j *Jitsi2) OnMotionUpdated(ctx context.Context, e hook.AfterMotionUpdated) error {
	immediate, err := j.deps.immediate(ctx, e.PlenumID, e.GroupID)
	if err != nil {
		return err
	}
	keep := ""
	if immediate != nil {
		keep = immediate.UserCreated
	}
	ended, err := j.speakers.EndOthers(ctx, e.PlenumID, e.GroupID, keep)
	if err != nil {
		return fmt.Errorf("failed to end speakers: %w", err)
	}
	if ended > 0 {
		zap.L().Debug("[Jitsi2] Ended speakers after floor change",
			zap.String("plenum", e.PlenumID), zap.Int64("ended", ended))
	}
	return nil
}

// Register wires the form's hook listeners.
func (j *Jitsi2) Register(d *hook.Dispatcher) {
	d.OnAfterMotionUpdated("jitsi2.speakers", j.OnMotionUpdated)
}

func (j *Jitsi2) PrivacyProvider() service.PrivacyProvider {
	return &connectionProvider[*repository.Speaker]{name: "plenumform_jitsi2", store: j.speakers}
}
