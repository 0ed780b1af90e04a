package meetingform

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ============================================
// Jitsi
// ============================================

// Jitsi embeds a Jitsi Meet room per plenum (and group).
type Jitsi struct {
	deps *Deps
	now  func() time.Time
}

func NewJitsi(deps *Deps) *Jitsi {
	return &Jitsi{deps: deps, now: time.Now}
}

func (j *Jitsi) Name() string { return types.FormJitsi }

// Room derives the conference room name. Grouped plenums get one room per
// group.
func Room(wwwroot string, plenum *repository.Plenum, groupID int64) string {
	key := fmt.Sprintf("%s mod %s", wwwroot, plenum.ID)
	if plenum.GroupMode != types.GroupModeNone {
		key = fmt.Sprintf("%s mod %s group %d type main", wwwroot, plenum.ID, groupID)
	}
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

// participant is who a conference token is issued for.
type participant struct {
	Username  string
	Name      string
	Email     string
	Moderator bool
}

func (d *Deps) participant(ctx context.Context, scope *Scope) participant {
	p := participant{Username: scope.UserID, Moderator: scope.Chair}
	if d.Users == nil {
		return p
	}
	if user, err := d.Users.FindByID(ctx, scope.UserID); err == nil && user != nil {
		p.Username = user.Username
		p.Name = user.Name
		p.Email = user.Email
	}
	return p
}

// Token signs the conference JWT for a participant.
func (j *Jitsi) Token(cfg map[string]string, room string, p participant) (string, error) {
	claims := jwt.MapClaims{
		"aud":  "jitsi",
		"iss":  cfg["appid"],
		"sub":  cfg["server"],
		"room": room,
		"exp":  j.now().Add(24 * time.Hour).Unix(),
		"context": map[string]interface{}{
			"user": map[string]interface{}{
				"id":        p.Username,
				"name":      p.Name,
				"email":     p.Email,
				"moderator": p.Moderator,
			},
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = "jitsi/custom_key_name"
	return token.SignedString([]byte(cfg["secret"]))
}

func (j *Jitsi) Content(ctx context.Context, scope *Scope) (map[string]interface{}, error) {
	cfg := j.deps.config(ctx, types.FormJitsi)
	room := Room(j.deps.WWWRoot, scope.Plenum, scope.GroupID)
	p := j.deps.participant(ctx, scope)

	token, err := j.Token(cfg, room, p)
	if err != nil {
		return nil, fmt.Errorf("failed to sign conference token: %w", err)
	}

	var toolbar []string
	if cfg["toolbar"] != "" {
		toolbar = strings.Split(cfg["toolbar"], ",")
	}

	return map[string]interface{}{
		"delay":  delayMillis(cfg),
		"server": cfg["server"],
		"width":  atoiOr(cfg["width"], 0),
		"options": map[string]interface{}{
			"jwt":      token,
			"server":   cfg["server"],
			"roomName": room,
			"configOverwrite": map[string]interface{}{
				"hideConferenceSubject": true,
				"lobby":                 map[string]interface{}{"autoknock": true},
				"startWithAudioMuted":   true,
				"startWithVideoMuted":   true,
				"readOnlyName":          true,
				"toolbarButtons":        toolbar,
			},
			"securityUI": map[string]interface{}{"hideLobbyButton": true},
			"height":     "56.25vw",
			"userInfo": map[string]interface{}{
				"displayName": p.Name,
				"email":       p.Email,
			},
		},
	}, nil
}

// RaiseHand announces that a participant wants (or no longer wants) the floor.
func (j *Jitsi) RaiseHand(ctx context.Context, userID, plenumID string, groupID int64, raise bool) error {
	scope, err := j.deps.scope(ctx, userID, plenumID, groupID, types.CapView)
	if err != nil {
		return err
	}
	if j.deps.Notifier != nil {
		j.deps.Notifier.BroadcastHandRaised(plenumID, scope.GroupID, userID, raise)
	}
	zap.L().Info("[Jitsi] raise_hand_updated",
		zap.String("plenum", plenumID), zap.String("user", userID), zap.Bool("raisehand", raise))
	return nil
}
