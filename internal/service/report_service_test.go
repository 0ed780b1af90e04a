package service

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReportRepo struct {
	filter repository.MotionReportFilter
	calls  int
}

func (r *recordingReportRepo) Motions(_ context.Context, filter repository.MotionReportFilter) ([]*repository.MotionReportRow, int, error) {
	r.filter = filter
	r.calls++
	return []*repository.MotionReportRow{{ID: "m1", Type: types.MotionResolve}}, 1, nil
}

func TestReportFilters(t *testing.T) {
	ctx := context.Background()
	plenums := newFakePlenumRepo(&repository.Plenum{ID: "p1", GroupMode: types.GroupModeNone})
	roles := newFakeRoleRepo()
	require.NoError(t, roles.Assign(ctx, &repository.RoleAssignment{PlenumID: "p1", UserID: chair, Role: types.RoleTeacher}))
	require.NoError(t, roles.Assign(ctx, &repository.RoleAssignment{PlenumID: "p1", UserID: alice, Role: types.RoleStudent}))

	reports := &recordingReportRepo{}
	svc := NewReportService(reports, plenums, NewPermissionService(roles, plenums),
		NewPluginService(newFakePluginRepo(), procedure.DefaultRegistry()))

	_, err := svc.Motions(ctx, alice, repository.MotionReportFilter{PlenumID: "p1"})
	assert.ErrorIs(t, err, ErrForbidden)

	group := int64(2)
	report, err := svc.Motions(ctx, chair, repository.MotionReportFilter{
		PlenumID: "p1",
		GroupID:  &group,
		Types:    []string{types.MotionResolve},
		Statuses: []string{types.StatusAdopted},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, repository.DefaultReportPerPage, report.PerPage)
	assert.Nil(t, reports.filter.GroupID, "ungrouped plenums ignore the group")

	rejected := []repository.MotionReportFilter{
		{PlenumID: "p1", Types: []string{"filibuster"}},
		{PlenumID: "p1", ParentTypes: []string{"motion"}},
		{PlenumID: "p1", Statuses: []string{types.StatusDraft}},
		{PlenumID: "p1", Statuses: []string{"tabled"}},
		{PlenumID: "p1", SortBy: "password"},
	}
	for _, filter := range rejected {
		_, err := svc.Motions(ctx, chair, filter)
		assert.ErrorIs(t, err, ErrInvalidInput, "%+v", filter)
	}
	assert.Equal(t, 1, reports.calls)
}
