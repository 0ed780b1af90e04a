package service

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/plenum-backend/internal/hook"
	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	chair = "user-chair"
	alice = "user-alice"
	bob   = "user-bob"
)

type motionFixture struct {
	plenum  *repository.Plenum
	motions *fakeMotionRepo
	roles   *fakeRoleRepo
	cache   *recordingCache
	events  []hook.AfterMotionUpdated
	svc     MotionService
}

func newMotionFixture(t *testing.T, groupMode int) *motionFixture {
	t.Helper()
	ctx := context.Background()

	f := &motionFixture{
		plenum: &repository.Plenum{
			ID:        uuid.NewString(),
			Name:      "Student council",
			Form:      types.FormBasic,
			Grade:     decimal.NewFromInt(100),
			GroupMode: groupMode,
		},
		motions: newFakeMotionRepo(newClock()),
		roles:   newFakeRoleRepo(),
		cache:   &recordingCache{},
	}
	for user, role := range map[string]string{chair: types.RoleTeacher, alice: types.RoleStudent, bob: types.RoleStudent} {
		require.NoError(t, f.roles.Assign(ctx, &repository.RoleAssignment{PlenumID: f.plenum.ID, UserID: user, Role: role}))
	}

	dispatcher := hook.NewDispatcher()
	dispatcher.OnAfterMotionUpdated("record", func(ctx context.Context, e hook.AfterMotionUpdated) error {
		f.events = append(f.events, e)
		return nil
	})

	plenums := newFakePlenumRepo(f.plenum)
	permissions := NewPermissionService(f.roles, plenums)
	plugins := NewPluginService(newFakePluginRepo(), procedure.DefaultRegistry())
	f.svc = NewMotionService(f.motions, plenums, permissions, plugins, f.cache, dispatcher)
	return f
}

func (f *motionFixture) input(motionType string) ProposeInput {
	return ProposeInput{PlenumID: f.plenum.ID, Type: motionType}
}

func (f *motionFixture) propose(t *testing.T, userID, motionType string) *repository.Motion {
	t.Helper()
	m, err := f.svc.Propose(context.Background(), userID, f.input(motionType))
	require.NoError(t, err)
	return m
}

func TestMotionLifecycle(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, alice, f.input(types.MotionResolve))
	assert.ErrorIs(t, err, ErrInvalidState, "nothing is open yet")

	_, err = f.svc.Propose(ctx, alice, f.input(types.MotionOpen))
	assert.ErrorIs(t, err, ErrForbidden)

	open := f.propose(t, chair, types.MotionOpen)
	assert.Equal(t, types.StatusPending, open.Status)
	assert.Nil(t, open.ParentID)

	resolve := f.propose(t, alice, types.MotionResolve)
	require.NotNil(t, resolve.ParentID)
	assert.Equal(t, open.ID, *resolve.ParentID)

	_, err = f.svc.Transition(ctx, alice, resolve.ID, types.ActionAdopt)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Transition(ctx, chair, resolve.ID, types.ActionAdopt)
	assert.ErrorIs(t, err, ErrInvalidState, "resolution has not been seconded")

	_, err = f.svc.Propose(ctx, alice, f.input(types.MotionSecond))
	assert.ErrorIs(t, err, ErrInvalidState, "a proposer cannot second their own motion")

	second := f.propose(t, bob, types.MotionSecond)
	assert.Equal(t, types.StatusAdopted, second.Status)
	assert.Equal(t, resolve.ID, *second.ParentID)

	adopted, err := f.svc.Transition(ctx, chair, resolve.ID, types.ActionAdopt)
	require.NoError(t, err)
	assert.Equal(t, types.StatusAdopted, adopted.Status)

	immediate, err := f.svc.GetImmediatePending(ctx, bob, f.plenum.ID, 0)
	require.NoError(t, err)
	require.NotNil(t, immediate)
	assert.Equal(t, open.ID, immediate.ID)

	assert.Len(t, f.events, 4)
	assert.Contains(t, f.cache.invalidated, f.plenum.ID)
}

func TestOrderTakesTheFloor(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	open := f.propose(t, chair, types.MotionOpen)
	resolve := f.propose(t, alice, types.MotionResolve)
	order := f.propose(t, bob, types.MotionOrder)

	immediate, err := f.svc.GetImmediatePending(ctx, alice, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, order.ID, immediate.ID)

	pending, err := f.svc.GetPendingMotions(ctx, alice, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{order.ID, resolve.ID, open.ID}, lo.Map(pending, func(m *repository.Motion, _ int) string { return m.ID }))

	_, err = f.svc.Transition(ctx, chair, resolve.ID, types.ActionAllow)
	assert.ErrorIs(t, err, ErrInvalidInput, "resolutions are voted on, not ruled")

	_, err = f.svc.Transition(ctx, chair, order.ID, types.ActionAllow)
	require.NoError(t, err)

	immediate, err = f.svc.GetImmediatePending(ctx, alice, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, resolve.ID, immediate.ID)
}

func TestAdoptingCloseEndsTheSession(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	open := f.propose(t, chair, types.MotionOpen)
	resolve := f.propose(t, alice, types.MotionResolve)
	closeMotion := f.propose(t, alice, types.MotionClose)
	f.propose(t, bob, types.MotionSecond)

	_, err := f.svc.Transition(ctx, chair, closeMotion.ID, types.ActionAdopt)
	require.NoError(t, err)

	assert.Equal(t, types.StatusAdopted, f.motions.status(closeMotion.ID))
	assert.Equal(t, types.StatusClosed, f.motions.status(open.ID))
	assert.Equal(t, types.StatusClosed, f.motions.status(resolve.ID))

	immediate, err := f.svc.GetImmediatePending(ctx, chair, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Nil(t, immediate)
}

func TestDraftSubmitAndDiscard(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	input := f.input(types.MotionResolve)
	input.Draft = true
	input.Data = map[string]interface{}{"name": `Budget <script>alert(1)</script>`}
	draft, err := f.svc.Propose(ctx, alice, input)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDraft, draft.Status)
	assert.Equal(t, "Budget ", draft.Data["name"])
	assert.Empty(t, f.events, "drafts are not announced")

	_, err = f.svc.Transition(ctx, bob, draft.ID, types.ActionSubmit)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.svc.Transition(ctx, alice, draft.ID, types.ActionSubmit)
	assert.ErrorIs(t, err, ErrInvalidState, "no session is open")

	open := f.propose(t, chair, types.MotionOpen)

	submitted, err := f.svc.Transition(ctx, alice, draft.ID, types.ActionSubmit)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, submitted.Status)
	assert.Equal(t, open.ID, *submitted.ParentID)

	input.Data = nil
	other, err := f.svc.Propose(ctx, alice, input)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, bob, other.ID, types.ActionDiscard)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Transition(ctx, alice, other.ID, types.ActionDiscard)
	require.NoError(t, err)

	_, err = f.svc.GetMotion(ctx, alice, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	listed, err := f.svc.ListMotions(ctx, alice, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestExplicitParentMustHoldTheFloor(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	f.propose(t, chair, types.MotionOpen)
	resolve := f.propose(t, alice, types.MotionResolve)
	adjourn := f.propose(t, bob, types.MotionClose)

	// The adjournment holds the floor, so a second is in order against it
	// but must not attach to alice's own resolution.
	selfSecond := f.input(types.MotionSecond)
	selfSecond.ParentID = &resolve.ID
	_, err := f.svc.Propose(ctx, alice, selfSecond)
	assert.ErrorIs(t, err, ErrInvalidInput)

	selfSecond.Draft = true
	_, err = f.svc.Propose(ctx, alice, selfSecond)
	assert.ErrorIs(t, err, ErrInvalidInput, "drafts take the same parent rule")

	_, err = f.svc.Transition(ctx, bob, adjourn.ID, types.ActionClose)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, chair, resolve.ID, types.ActionAdopt)
	assert.ErrorIs(t, err, ErrInvalidState, "the resolution is still unseconded")

	second := f.input(types.MotionSecond)
	second.ParentID = &resolve.ID
	seconded, err := f.svc.Propose(ctx, bob, second)
	require.NoError(t, err)
	assert.Equal(t, resolve.ID, *seconded.ParentID)

	_, err = f.svc.Transition(ctx, chair, resolve.ID, types.ActionAdopt)
	require.NoError(t, err)
}

func TestSubmitReparentsToTheFloor(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	f.propose(t, chair, types.MotionOpen)
	resolve := f.propose(t, alice, types.MotionResolve)

	input := f.input(types.MotionOrder)
	input.ParentID = &resolve.ID
	input.Draft = true
	draft, err := f.svc.Propose(ctx, bob, input)
	require.NoError(t, err)

	adjourn := f.propose(t, chair, types.MotionClose)

	submitted, err := f.svc.Transition(ctx, bob, draft.ID, types.ActionSubmit)
	require.NoError(t, err)
	assert.Equal(t, adjourn.ID, *submitted.ParentID)
}

func TestTransitionConflictIsStateError(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	open := f.propose(t, chair, types.MotionOpen)

	f.motions.failApply = true
	_, err := f.svc.Transition(context.Background(), chair, open.ID, types.ActionClose)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestTransitionErrors(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()
	open := f.propose(t, chair, types.MotionOpen)

	_, err := f.svc.Transition(ctx, chair, uuid.NewString(), types.ActionClose)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Transition(ctx, chair, open.ID, "dissolve")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Transition(ctx, alice, open.ID, types.ActionClose)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestOfferedTypes(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	offered, err := f.svc.OfferedTypes(ctx, chair, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{types.MotionOpen}, offered)

	f.propose(t, chair, types.MotionOpen)

	offered, err = f.svc.OfferedTypes(ctx, alice, f.plenum.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{types.MotionResolve, types.MotionOrder, types.MotionClose}, offered)
}

func TestSeparateGroups(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeSeparate)
	ctx := context.Background()
	require.NoError(t, f.roles.AddGroupMember(ctx, f.plenum.ID, 2, alice))

	open, err := f.svc.Propose(ctx, chair, ProposeInput{PlenumID: f.plenum.ID, GroupID: 2, Type: types.MotionOpen})
	require.NoError(t, err)
	assert.Equal(t, int64(2), open.GroupID)

	_, err = f.svc.Propose(ctx, alice, ProposeInput{PlenumID: f.plenum.ID, GroupID: 3, Type: types.MotionResolve})
	assert.ErrorIs(t, err, ErrForbidden)

	resolve, err := f.svc.Propose(ctx, alice, ProposeInput{PlenumID: f.plenum.ID, GroupID: 2, Type: types.MotionResolve})
	require.NoError(t, err)
	assert.Equal(t, open.ID, *resolve.ParentID)

	_, err = f.svc.GetPendingMotions(ctx, bob, f.plenum.ID, 2)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProposeValidation(t *testing.T) {
	f := newMotionFixture(t, types.GroupModeNone)
	ctx := context.Background()

	_, err := f.svc.Propose(ctx, chair, ProposeInput{PlenumID: "not-a-uuid", Type: types.MotionOpen})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.Propose(ctx, chair, ProposeInput{PlenumID: uuid.NewString(), Type: types.MotionOpen})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Propose(ctx, chair, f.input("filibuster"))
	assert.ErrorIs(t, err, ErrInvalidInput)
}
