package service

import (
	"context"
	"testing"

	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wwwroot = "https://lms.example.org"

func TestContentLinks(t *testing.T) {
	content := `See ` + wwwroot + `/mod/plenum/view.php?id=42 and ` + wwwroot + `/mod/plenum/index.php?id=7.`

	encoded := EncodeContentLinks(wwwroot, content)
	assert.Equal(t, `See $@PLENUMVIEWBYID*42@$ and $@PLENUMINDEX*7@$.`, encoded)

	decoded := DecodeContentLinks(wwwroot, encoded, map[string]string{"42": "99"})
	assert.Equal(t, `See `+wwwroot+`/mod/plenum/view.php?id=99 and `+wwwroot+`/mod/plenum/index.php?id=7.`, decoded)
}

func TestBackupRoundTrip(t *testing.T) {
	ctx := context.Background()
	plenums := newFakePlenumRepo(&repository.Plenum{
		ID:          "source",
		CourseID:    "c1",
		Name:        "Assembly",
		Intro:       "Minutes: " + wwwroot + "/mod/plenum/view.php?id=12",
		Form:        types.FormJitsi,
		Grade:       decimal.NewFromInt(20),
		FormOptions: map[string]interface{}{"delay": "5"},
	})
	motions := newFakeMotionRepo(newClock())
	grades := newFakeGradeRepo()

	open := &repository.Motion{PlenumID: "source", Type: types.MotionOpen, Status: types.StatusClosed, UserCreated: chair, UserModified: chair}
	require.NoError(t, motions.Create(ctx, open))
	resolve := &repository.Motion{
		PlenumID: "source", Type: types.MotionResolve, Status: types.StatusAdopted, ParentID: &open.ID,
		UserCreated: alice, UserModified: chair,
		Data: map[string]interface{}{"name": "See " + wwwroot + "/mod/plenum/index.php?id=3"},
	}
	require.NoError(t, motions.Create(ctx, resolve))
	require.NoError(t, grades.Upsert(ctx, &repository.Grade{PlenumID: "source", UserID: alice, Grade: decimal.NewNullDecimal(decimal.NewFromInt(15))}))

	svc := NewBackupService(
		&config.Config{WWWRoot: wwwroot},
		plenums, motions, grades,
		NewPluginService(newFakePluginRepo(), procedure.DefaultRegistry()),
	)

	data, err := svc.Export(ctx, "source", true)
	require.NoError(t, err)
	assert.Contains(t, string(data), "$@PLENUMVIEWBYID*12@$")
	assert.Contains(t, string(data), "$@PLENUMINDEX*3@$")

	restored, err := svc.Restore(ctx, data, RestoreOptions{CourseID: "c2", UserInfo: true, Links: map[string]string{"12": "40"}})
	require.NoError(t, err)
	assert.NotEqual(t, "source", restored.ID)
	assert.Equal(t, "c2", restored.CourseID)
	assert.Equal(t, "Minutes: "+wwwroot+"/mod/plenum/view.php?id=40", restored.Intro)
	assert.True(t, restored.Grade.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, "5", restored.FormOptions["delay"])
	assert.Equal(t, "meet.jit.si", restored.FormOptions["server"])
	assert.NotContains(t, restored.FormOptions, "secret")

	copied, err := motions.FindByPlenum(ctx, restored.ID)
	require.NoError(t, err)
	require.Len(t, copied, 2)
	byType := map[string]*repository.Motion{}
	for _, m := range copied {
		byType[m.Type] = m
	}
	require.NotNil(t, byType[types.MotionResolve].ParentID)
	assert.Equal(t, byType[types.MotionOpen].ID, *byType[types.MotionResolve].ParentID)
	assert.Equal(t, "See "+wwwroot+"/mod/plenum/index.php?id=3", byType[types.MotionResolve].Data["name"])
	assert.Equal(t, types.StatusAdopted, byType[types.MotionResolve].Status)

	restoredGrade, err := grades.Find(ctx, restored.ID, alice, 0)
	require.NoError(t, err)
	require.NotNil(t, restoredGrade)
	assert.True(t, restoredGrade.Grade.Decimal.Equal(decimal.NewFromInt(15)))
}

func TestRestoreWithoutUserInfo(t *testing.T) {
	ctx := context.Background()
	plenums := newFakePlenumRepo(&repository.Plenum{ID: "source", Name: "Assembly", Form: types.FormBasic})
	motions := newFakeMotionRepo(newClock())
	require.NoError(t, motions.Create(ctx, &repository.Motion{PlenumID: "source", Type: types.MotionOpen, Status: types.StatusPending, UserCreated: chair}))

	svc := NewBackupService(&config.Config{WWWRoot: wwwroot}, plenums, motions, newFakeGradeRepo(),
		NewPluginService(newFakePluginRepo(), procedure.DefaultRegistry()))

	data, err := svc.Export(ctx, "source", false)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "<motion ")

	restored, err := svc.Restore(ctx, data, RestoreOptions{UserInfo: true})
	require.NoError(t, err)
	copied, err := motions.FindByPlenum(ctx, restored.ID)
	require.NoError(t, err)
	assert.Empty(t, copied)

	_, err = svc.Restore(ctx, []byte("<nope"), RestoreOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
