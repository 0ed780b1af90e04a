package meetingform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	wwwroot = "https://lms.example.org"
	chair   = "chair"
	alice   = "alice"
	bob     = "bob"
)

type fakePlugins struct {
	enabled []string
	config  map[string]map[string]string
}

func (f *fakePlugins) GetConfig(_ context.Context, component string) (map[string]string, error) {
	return f.config[component], nil
}

func (f *fakePlugins) EnabledNames(_ context.Context, kind string) ([]string, error) {
	if kind != types.PluginKindForm {
		return nil, nil
	}
	return f.enabled, nil
}

type fakePermissions struct {
	caps map[string][]string
}

func (f *fakePermissions) HasCapability(_ context.Context, userID, _, capability string) bool {
	for _, c := range f.caps[userID] {
		if c == capability {
			return true
		}
	}
	return false
}

func (f *fakePermissions) Require(ctx context.Context, userID, plenumID, capability string) error {
	if !f.HasCapability(ctx, userID, plenumID, capability) {
		return fmt.Errorf("%w: %s lacks %s", service.ErrForbidden, userID, capability)
	}
	return nil
}

func (f *fakePermissions) ResolveGroup(_ context.Context, _ string, plenum *repository.Plenum, requested int64, _ bool) (int64, error) {
	if plenum.GroupMode == types.GroupModeNone {
		return 0, nil
	}
	return requested, nil
}

type fakePlenums map[string]*repository.Plenum

func (f fakePlenums) FindByID(_ context.Context, id string) (*repository.Plenum, error) {
	return f[id], nil
}

type fakeMotions struct {
	motions []*repository.Motion
}

func (f *fakeMotions) FindPending(_ context.Context, plenumID string, groupID int64) ([]*repository.Motion, error) {
	var out []*repository.Motion
	for _, m := range f.motions {
		if m.PlenumID == plenumID && m.GroupID == groupID && m.Status == types.StatusPending {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMotions) group(motionID string) int64 {
	for _, m := range f.motions {
		if m.ID == motionID {
			return m.GroupID
		}
	}
	return -1
}

type fakeUsers map[string]*repository.User

func (f fakeUsers) FindByID(_ context.Context, id string) (*repository.User, error) {
	return f[id], nil
}

type fakeTokens struct{}

func (fakeTokens) IssueToken(userID string, ttl time.Duration, extra map[string]interface{}) (string, error) {
	return fmt.Sprintf("token:%s:%s:%s", userID, extra["plenum"], ttl), nil
}

type notice struct {
	kind    string
	target  string
	payload map[string]interface{}
}

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *recordingNotifier) add(kind, target string, payload map[string]interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{kind: kind, target: target, payload: payload})
}

func (n *recordingNotifier) BroadcastFloorChanged(plenumID string, _ int64, floor map[string]interface{}) {
	n.add("floor", plenumID, floor)
}

func (n *recordingNotifier) BroadcastHandRaised(plenumID string, _ int64, userID string, raised bool) {
	n.add("hand", plenumID, map[string]interface{}{"userId": userID, "raised": raised})
}

func (n *recordingNotifier) BroadcastPeer(plenumID string, joined bool, peer map[string]interface{}, _ string) {
	kind := "left"
	if joined {
		kind = "joined"
	}
	n.add(kind, plenumID, peer)
}

func (n *recordingNotifier) SendSignal(toUserID string, payload map[string]interface{}) {
	n.add("signal", toUserID, payload)
}

type fakeSpeakers struct {
	motions  *fakeMotions
	speakers []*repository.Speaker
}

func (f *fakeSpeakers) Create(_ context.Context, s *repository.Speaker) error {
	s.ID = uuid.NewString()
	f.speakers = append(f.speakers, s)
	return nil
}

func (f *fakeSpeakers) active(plenumID string, groupID int64) []*repository.Speaker {
	var out []*repository.Speaker
	for _, s := range f.speakers {
		if s.PlenumID == plenumID && s.Status == types.ConnectionActive && f.motions.group(s.MotionID) == groupID {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSpeakers) FindActiveByGroup(_ context.Context, plenumID string, groupID int64) ([]*repository.Speaker, error) {
	return f.active(plenumID, groupID), nil
}

func (f *fakeSpeakers) FindActiveByUser(_ context.Context, plenumID string, groupID int64, userID string) (*repository.Speaker, error) {
	for _, s := range f.active(plenumID, groupID) {
		if s.UserID == userID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeSpeakers) FindByUser(_ context.Context, plenumID, userID string) ([]*repository.Speaker, error) {
	var out []*repository.Speaker
	for _, s := range f.speakers {
		if s.PlenumID == plenumID && s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSpeakers) FindPlenumIDsByUser(_ context.Context, userID string) ([]string, error) {
	var out []string
	for _, s := range f.speakers {
		if s.UserID == userID {
			out = append(out, s.PlenumID)
		}
	}
	return out, nil
}

func (f *fakeSpeakers) end(match func(*repository.Speaker) bool) int64 {
	var n int64
	for _, s := range f.speakers {
		if s.Status == types.ConnectionActive && match(s) {
			s.Status = types.ConnectionEnded
			n++
		}
	}
	return n
}

func (f *fakeSpeakers) EndActiveByUser(_ context.Context, plenumID, userID string) (int64, error) {
	return f.end(func(s *repository.Speaker) bool { return s.PlenumID == plenumID && s.UserID == userID }), nil
}

func (f *fakeSpeakers) EndActiveByGroup(_ context.Context, plenumID string, groupID int64) (int64, error) {
	return f.end(func(s *repository.Speaker) bool {
		return s.PlenumID == plenumID && f.motions.group(s.MotionID) == groupID
	}), nil
}

func (f *fakeSpeakers) EndOthers(_ context.Context, plenumID string, groupID int64, keepUserID string) (int64, error) {
	return f.end(func(s *repository.Speaker) bool {
		return s.PlenumID == plenumID && f.motions.group(s.MotionID) == groupID &&
			s.Role == types.SpeakerRoleSpeaker && s.UserID != keepUserID
	}), nil
}

func (f *fakeSpeakers) EndStale(context.Context, time.Time) (int64, error)  { return 0, nil }
func (f *fakeSpeakers) PurgeEnded(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakeSpeakers) DeleteByUser(_ context.Context, plenumIDs []string, userID string) error {
	return nil
}

func (f *fakeSpeakers) DeleteByUsers(_ context.Context, plenumID string, userIDs []string) error {
	return nil
}

func (f *fakeSpeakers) DeleteByPlenum(_ context.Context, plenumID string) error { return nil }

type fakePeers struct {
	peers []*repository.Peer
}

func (f *fakePeers) Create(_ context.Context, p *repository.Peer) error {
	p.ID = uuid.NewString()
	f.peers = append(f.peers, p)
	return nil
}

func (f *fakePeers) FindActiveByPlenum(_ context.Context, plenumID string) ([]*repository.Peer, error) {
	var out []*repository.Peer
	for _, p := range f.peers {
		if p.PlenumID == plenumID && p.Status == types.ConnectionActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeers) FindByUser(_ context.Context, plenumID, userID string) ([]*repository.Peer, error) {
	var out []*repository.Peer
	for _, p := range f.peers {
		if p.PlenumID == plenumID && p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePeers) FindPlenumIDsByUser(_ context.Context, userID string) ([]string, error) {
	return nil, nil
}

func (f *fakePeers) SetMute(_ context.Context, id string, mute bool) error {
	for _, p := range f.peers {
		if p.ID == id {
			p.Mute = mute
		}
	}
	return nil
}

func (f *fakePeers) end(match func(*repository.Peer) bool) int64 {
	var n int64
	for _, p := range f.peers {
		if p.Status == types.ConnectionActive && match(p) {
			p.Status = types.ConnectionEnded
			n++
		}
	}
	return n
}

func (f *fakePeers) EndByMotion(_ context.Context, motionID string) (int64, error) {
	return f.end(func(p *repository.Peer) bool { return p.MotionID != nil && *p.MotionID == motionID }), nil
}

func (f *fakePeers) EndByUser(_ context.Context, plenumID, userID string) (int64, error) {
	return f.end(func(p *repository.Peer) bool { return p.PlenumID == plenumID && p.UserID == userID }), nil
}

func (f *fakePeers) EndStale(context.Context, time.Time) (int64, error)  { return 0, nil }
func (f *fakePeers) PurgeEnded(context.Context, time.Time) (int64, error) { return 0, nil }

func (f *fakePeers) DeleteByUser(context.Context, []string, string) error  { return nil }
func (f *fakePeers) DeleteByUsers(context.Context, string, []string) error { return nil }
func (f *fakePeers) DeleteByPlenum(context.Context, string) error          { return nil }

type fixture struct {
	deps     *Deps
	plugins  *fakePlugins
	motions  *fakeMotions
	notifier *recordingNotifier
	plenum   *repository.Plenum
}

func newFixture(form string, groupMode int) *fixture {
	plenum := &repository.Plenum{
		ID:          "p1",
		CourseID:    "c1",
		Name:        "Council",
		Form:        form,
		Grade:       decimal.NewFromInt(10),
		GroupMode:   groupMode,
		FormOptions: map[string]interface{}{"room": "councilroom"},
	}
	plugins := &fakePlugins{
		enabled: []string{types.FormBasic, types.FormJitsi, types.FormJitsi2, types.FormDeft},
		config: map[string]map[string]string{
			"plenumform_basic":  {"delay": "5"},
			"plenumform_jitsi":  {"server": "meet.example.org", "appid": "lms", "secret": "s3cret", "toolbar": "microphone,camera"},
			"plenumform_jitsi2": {"server": "meet.example.org", "appid": "lms", "secret": "s3cret"},
		},
	}
	student := []string{types.CapView, types.CapMeet, types.CapShareVideo, types.CapViewVideo}
	motions := &fakeMotions{}
	notifier := &recordingNotifier{}
	deps := &Deps{
		WWWRoot:        wwwroot,
		SocketTokenTTL: time.Hour,
		Plugins:        plugins,
		Permissions: &fakePermissions{caps: map[string][]string{
			chair: append([]string{types.CapPreside}, student...),
			alice: student,
			bob:   student,
		}},
		Plenums:  fakePlenums{"p1": plenum},
		Motions:  motions,
		Users:    fakeUsers{alice: {ID: alice, Username: "alice", Name: "Alice Able", Email: "alice@example.org"}},
		Registry: procedure.DefaultRegistry(),
		Notifier: notifier,
		Tokens:   fakeTokens{},
	}
	return &fixture{deps: deps, plugins: plugins, motions: motions, notifier: notifier, plenum: plenum}
}

// pending adds a pending motion created by userID; later calls get later
// timestamps.
func (f *fixture) pending(id, motionType, userID string, groupID int64) *repository.Motion {
	m := &repository.Motion{
		ID:          id,
		PlenumID:    f.plenum.ID,
		GroupID:     groupID,
		Type:        motionType,
		Status:      types.StatusPending,
		UserCreated: userID,
		Data:        map[string]interface{}{},
		CreatedAt:   time.Date(2024, 5, 1, 10, 0, len(f.motions.motions), 0, time.UTC),
	}
	f.motions.motions = append(f.motions.motions, m)
	return m
}
