package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// clock hands out strictly increasing timestamps.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) tick() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// ============================================
// Motions
// ============================================

type fakeMotionRepo struct {
	clock     *clock
	motions   map[string]*repository.Motion
	failApply bool
}

func newFakeMotionRepo(c *clock) *fakeMotionRepo {
	return &fakeMotionRepo{clock: c, motions: map[string]*repository.Motion{}}
}

func (r *fakeMotionRepo) copyOf(m *repository.Motion) *repository.Motion {
	cp := *m
	return &cp
}

func (r *fakeMotionRepo) filter(keep func(m *repository.Motion) bool) []*repository.Motion {
	var out []*repository.Motion
	for _, m := range r.motions {
		if keep(m) {
			out = append(out, r.copyOf(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (r *fakeMotionRepo) Create(ctx context.Context, m *repository.Motion) error {
	m.ID = uuid.NewString()
	m.CreatedAt = r.clock.tick()
	m.UpdatedAt = m.CreatedAt
	r.motions[m.ID] = r.copyOf(m)
	return nil
}

func (r *fakeMotionRepo) Import(ctx context.Context, m *repository.Motion) error {
	m.ID = uuid.NewString()
	r.motions[m.ID] = r.copyOf(m)
	return nil
}

func (r *fakeMotionRepo) FindByID(ctx context.Context, id string) (*repository.Motion, error) {
	m, ok := r.motions[id]
	if !ok {
		return nil, nil
	}
	return r.copyOf(m), nil
}

func (r *fakeMotionRepo) FindByScope(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, error) {
	return r.filter(func(m *repository.Motion) bool {
		return m.PlenumID == plenumID && m.GroupID == groupID && m.Status != types.StatusDraft
	}), nil
}

func (r *fakeMotionRepo) FindPending(ctx context.Context, plenumID string, groupID int64) ([]*repository.Motion, error) {
	return r.filter(func(m *repository.Motion) bool {
		return m.PlenumID == plenumID && m.GroupID == groupID && m.Status == types.StatusPending
	}), nil
}

func (r *fakeMotionRepo) FindByPlenum(ctx context.Context, plenumID string) ([]*repository.Motion, error) {
	return r.filter(func(m *repository.Motion) bool { return m.PlenumID == plenumID }), nil
}

func (r *fakeMotionRepo) FindByUser(ctx context.Context, plenumID, userID string) ([]*repository.Motion, error) {
	return r.filter(func(m *repository.Motion) bool { return m.PlenumID == plenumID && m.UserCreated == userID }), nil
}

func (r *fakeMotionRepo) FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error) {
	ms := r.filter(func(m *repository.Motion) bool { return m.UserCreated == userID })
	return lo.Uniq(lo.Map(ms, func(m *repository.Motion, _ int) string { return m.PlenumID })), nil
}

func (r *fakeMotionRepo) FindUserIDsByPlenum(ctx context.Context, plenumID string) ([]string, error) {
	ms := r.filter(func(m *repository.Motion) bool { return m.PlenumID == plenumID })
	return lo.Uniq(lo.Map(ms, func(m *repository.Motion, _ int) string { return m.UserCreated })), nil
}

func (r *fakeMotionRepo) CountByUser(ctx context.Context, plenumID, userID string) (int, error) {
	return len(r.filter(func(m *repository.Motion) bool {
		return m.PlenumID == plenumID && m.UserCreated == userID && m.Status != types.StatusDraft
	})), nil
}

func (r *fakeMotionRepo) CountByType(ctx context.Context, plenumID, motionType string) (int, error) {
	return len(r.filter(func(m *repository.Motion) bool {
		return m.PlenumID == plenumID && m.Type == motionType && m.Status != types.StatusDraft
	})), nil
}

func (r *fakeMotionRepo) ApplyChanges(ctx context.Context, changes []repository.StatusChange, userID string) error {
	if r.failApply {
		return fmt.Errorf("%w: motion changed", repository.ErrStaleStatus)
	}
	for _, c := range changes {
		if m := r.motions[c.MotionID]; m == nil || m.Status != c.From {
			return fmt.Errorf("%w: motion %s", repository.ErrStaleStatus, c.MotionID)
		}
	}
	for _, c := range changes {
		m := r.motions[c.MotionID]
		m.Status = c.To
		m.UserModified = userID
		m.UpdatedAt = r.clock.tick()
	}
	return nil
}

func (r *fakeMotionRepo) Submit(ctx context.Context, id, status string, parentID *string) error {
	m := r.motions[id]
	if m == nil || m.Status != types.StatusDraft {
		return fmt.Errorf("%w: motion %s", repository.ErrStaleStatus, id)
	}
	m.Status = status
	m.ParentID = parentID
	m.CreatedAt = r.clock.tick()
	m.UpdatedAt = m.CreatedAt
	return nil
}

func (r *fakeMotionRepo) Delete(ctx context.Context, id string) error {
	delete(r.motions, id)
	return nil
}

func (r *fakeMotionRepo) DeleteDraftsByUser(ctx context.Context, plenumIDs []string, userID string) ([]string, error) {
	var ids []string
	for id, m := range r.motions {
		if lo.Contains(plenumIDs, m.PlenumID) && m.UserCreated == userID && m.Status == types.StatusDraft {
			ids = append(ids, id)
			delete(r.motions, id)
		}
	}
	return ids, nil
}

func (r *fakeMotionRepo) AnonymizeUser(ctx context.Context, plenumIDs []string, userID, anonymousID string) (int64, error) {
	var n int64
	for _, m := range r.motions {
		if !lo.Contains(plenumIDs, m.PlenumID) {
			continue
		}
		if m.UserCreated == userID {
			m.UserCreated = anonymousID
			n++
		}
		if m.UserModified == userID {
			m.UserModified = anonymousID
		}
	}
	return n, nil
}

func (r *fakeMotionRepo) DeleteByPlenum(ctx context.Context, plenumID string) error {
	for id, m := range r.motions {
		if m.PlenumID == plenumID {
			delete(r.motions, id)
		}
	}
	return nil
}

func (r *fakeMotionRepo) status(id string) string {
	return r.motions[id].Status
}

// ============================================
// Plenums
// ============================================

type fakePlenumRepo struct {
	plenums map[string]*repository.Plenum
}

func newFakePlenumRepo(plenums ...*repository.Plenum) *fakePlenumRepo {
	r := &fakePlenumRepo{plenums: map[string]*repository.Plenum{}}
	for _, p := range plenums {
		r.plenums[p.ID] = p
	}
	return r
}

func (r *fakePlenumRepo) Create(ctx context.Context, p *repository.Plenum) error {
	p.ID = uuid.NewString()
	r.plenums[p.ID] = p
	return nil
}

func (r *fakePlenumRepo) FindByID(ctx context.Context, id string) (*repository.Plenum, error) {
	return r.plenums[id], nil
}

func (r *fakePlenumRepo) FindByCourse(ctx context.Context, courseID string) ([]*repository.Plenum, error) {
	return lo.Filter(lo.Values(r.plenums), func(p *repository.Plenum, _ int) bool { return p.CourseID == courseID }), nil
}

func (r *fakePlenumRepo) Update(ctx context.Context, p *repository.Plenum) error {
	r.plenums[p.ID] = p
	return nil
}

func (r *fakePlenumRepo) Delete(ctx context.Context, id string) error {
	delete(r.plenums, id)
	return nil
}

// ============================================
// Roles
// ============================================

type fakeRoleRepo struct {
	roles     map[string][]string
	overrides []*repository.CapabilityOverride
	members   map[string]bool
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: map[string][]string{}, members: map[string]bool{}}
}

func (r *fakeRoleRepo) Assign(ctx context.Context, a *repository.RoleAssignment) error {
	key := a.PlenumID + "/" + a.UserID
	r.roles[key] = lo.Uniq(append(r.roles[key], a.Role))
	return nil
}

func (r *fakeRoleRepo) Unassign(ctx context.Context, plenumID, userID, role string) error {
	key := plenumID + "/" + userID
	r.roles[key] = lo.Without(r.roles[key], role)
	return nil
}

func (r *fakeRoleRepo) FindRoles(ctx context.Context, plenumID, userID string) ([]string, error) {
	return r.roles[plenumID+"/"+userID], nil
}

func (r *fakeRoleRepo) FindByPlenum(ctx context.Context, plenumID string) ([]*repository.RoleAssignment, error) {
	return nil, nil
}

func (r *fakeRoleRepo) SetOverride(ctx context.Context, o *repository.CapabilityOverride) error {
	r.overrides = append(r.overrides, o)
	return nil
}

func (r *fakeRoleRepo) FindOverrides(ctx context.Context, plenumID string, roles []string) ([]*repository.CapabilityOverride, error) {
	return lo.Filter(r.overrides, func(o *repository.CapabilityOverride, _ int) bool {
		return o.PlenumID == plenumID && lo.Contains(roles, o.Role)
	}), nil
}

func (r *fakeRoleRepo) AddGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) error {
	r.members[fmt.Sprintf("%s/%d/%s", plenumID, groupID, userID)] = true
	return nil
}

func (r *fakeRoleRepo) IsGroupMember(ctx context.Context, plenumID string, groupID int64, userID string) (bool, error) {
	return r.members[fmt.Sprintf("%s/%d/%s", plenumID, groupID, userID)], nil
}

func (r *fakeRoleRepo) DeleteByPlenum(ctx context.Context, plenumID string) error {
	return nil
}

// ============================================
// Plugins
// ============================================

type fakePluginRepo struct {
	plugins []*repository.Plugin
	config  map[string]map[string]string
}

// newFakePluginRepo mirrors the seeded plugin rows.
func newFakePluginRepo() *fakePluginRepo {
	r := &fakePluginRepo{config: map[string]map[string]string{}}
	for i, name := range types.ValidForms {
		r.plugins = append(r.plugins, &repository.Plugin{Kind: types.PluginKindForm, Name: name, Enabled: true, SortOrder: i})
	}
	motionTypes := []string{"open", "resolve", "amend", "second", "call", "order", "close"}
	for i, name := range motionTypes {
		r.plugins = append(r.plugins, &repository.Plugin{Kind: types.PluginKindType, Name: name, Enabled: true, SortOrder: i})
	}
	for _, t := range []string{"resolve", "amend", "call", "close"} {
		r.config["plenumtype_"+t] = map[string]string{"requiresecond": "1"}
	}
	r.config["plenumform_jitsi"] = map[string]string{"server": "meet.jit.si", "secret": "s3cret", "toolbar": "camera,hangup"}
	return r
}

func (r *fakePluginRepo) List(ctx context.Context, kind string) ([]*repository.Plugin, error) {
	out := lo.Filter(r.plugins, func(p *repository.Plugin, _ int) bool { return p.Kind == kind })
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *fakePluginRepo) Find(ctx context.Context, kind, name string) (*repository.Plugin, error) {
	p, _ := lo.Find(r.plugins, func(p *repository.Plugin) bool { return p.Kind == kind && p.Name == name })
	return p, nil
}

func (r *fakePluginRepo) SetEnabled(ctx context.Context, kind, name string, enabled bool) error {
	p, _ := r.Find(ctx, kind, name)
	p.Enabled = enabled
	return nil
}

func (r *fakePluginRepo) SwapOrder(ctx context.Context, kind, first, second string) error {
	a, _ := r.Find(ctx, kind, first)
	b, _ := r.Find(ctx, kind, second)
	a.SortOrder, b.SortOrder = b.SortOrder, a.SortOrder
	return nil
}

func (r *fakePluginRepo) GetConfig(ctx context.Context, component string) (map[string]string, error) {
	return r.config[component], nil
}

func (r *fakePluginRepo) SetConfig(ctx context.Context, component, name, value string) error {
	if r.config[component] == nil {
		r.config[component] = map[string]string{}
	}
	r.config[component][name] = value
	return nil
}

// ============================================
// Grades
// ============================================

type fakeGradeRepo struct {
	grades map[string]*repository.Grade
}

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{grades: map[string]*repository.Grade{}}
}

func gradeKey(plenumID, userID string, item int) string {
	return fmt.Sprintf("%s/%s/%d", plenumID, userID, item)
}

func (r *fakeGradeRepo) Create(ctx context.Context, g *repository.Grade) error {
	g.ID = uuid.NewString()
	r.grades[gradeKey(g.PlenumID, g.UserID, g.ItemNumber)] = g
	return nil
}

func (r *fakeGradeRepo) Upsert(ctx context.Context, g *repository.Grade) error {
	return r.Create(ctx, g)
}

func (r *fakeGradeRepo) Find(ctx context.Context, plenumID, userID string, item int) (*repository.Grade, error) {
	return r.grades[gradeKey(plenumID, userID, item)], nil
}

func (r *fakeGradeRepo) FindByPlenum(ctx context.Context, plenumID string) ([]*repository.Grade, error) {
	return lo.Filter(lo.Values(r.grades), func(g *repository.Grade, _ int) bool { return g.PlenumID == plenumID }), nil
}

func (r *fakeGradeRepo) FindPlenumIDsByUser(ctx context.Context, userID string) ([]string, error) {
	gs := lo.Filter(lo.Values(r.grades), func(g *repository.Grade, _ int) bool { return g.UserID == userID })
	return lo.Uniq(lo.Map(gs, func(g *repository.Grade, _ int) string { return g.PlenumID })), nil
}

func (r *fakeGradeRepo) DeleteByUser(ctx context.Context, plenumIDs []string, userID string) error {
	for k, g := range r.grades {
		if g.UserID == userID && lo.Contains(plenumIDs, g.PlenumID) {
			delete(r.grades, k)
		}
	}
	return nil
}

func (r *fakeGradeRepo) DeleteByUsers(ctx context.Context, plenumID string, userIDs []string) error {
	for k, g := range r.grades {
		if g.PlenumID == plenumID && lo.Contains(userIDs, g.UserID) {
			delete(r.grades, k)
		}
	}
	return nil
}

func (r *fakeGradeRepo) DeleteByPlenum(ctx context.Context, plenumID string) error {
	for k, g := range r.grades {
		if g.PlenumID == plenumID {
			delete(r.grades, k)
		}
	}
	return nil
}

// ============================================
// Cache
// ============================================

type recordingCache struct {
	invalidated []string
}

func (c *recordingCache) GetPending(context.Context, string, int64) ([]*repository.Motion, bool) {
	return nil, false
}

func (c *recordingCache) SetPending(context.Context, string, int64, []*repository.Motion) {}

func (c *recordingCache) InvalidatePending(ctx context.Context, plenumID string) {
	c.invalidated = append(c.invalidated, plenumID)
}
