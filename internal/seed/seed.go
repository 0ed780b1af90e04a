// internal/seed/seed.go
package seed

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/service"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DemoCourseID is the course the demo plenum is created in.
const DemoCourseID = "demo-course"

// SeedData creates a demo plenum with a chair and three members. It does
// nothing when the demo course already has a plenum.
func SeedData(ctx context.Context, repos *repository.Repositories, services *service.Services) error {
	existing, err := services.Plenum.ListByCourse(ctx, DemoCourseID)
	if err != nil {
		return fmt.Errorf("failed to check demo course: %w", err)
	}
	if len(existing) > 0 {
		zap.L().Info("[Seed] Data already exists, skipping...")
		return nil
	}

	zap.L().Info("[Seed] Creating demo plenum...")

	// ============================================
	// USERS
	// ============================================
	users := []*repository.User{
		{ID: "11111111-1111-4111-8111-111111111111", Username: "chair", Name: "Carla Chair", Email: "chair@example.org"},
		{ID: "22222222-2222-4222-8222-222222222222", Username: "ana", Name: "Ana Alvarez", Email: "ana@example.org"},
		{ID: "33333333-3333-4333-8333-333333333333", Username: "ben", Name: "Ben Brooks", Email: "ben@example.org"},
		{ID: "44444444-4444-4444-8444-444444444444", Username: "guest", Name: "Gil Guest", Email: "guest@example.org"},
	}
	for _, u := range users {
		if err := repos.UserRepo.Upsert(ctx, u); err != nil {
			return fmt.Errorf("failed to create user %s: %w", u.Username, err)
		}
	}
	chair, ana, ben, guest := users[0], users[1], users[2], users[3]

	// ============================================
	// PLENUM
	// ============================================
	plenum, err := services.Plenum.Create(ctx, service.PlenumInput{
		CourseID:          DemoCourseID,
		Name:              "Weekly plenary",
		Intro:             "<p>Practice meeting for parliamentary procedure.</p>",
		Form:              types.FormBasic,
		Grade:             decimal.NewFromInt(100),
		GroupMode:         types.GroupModeNone,
		CompletionMotions: 2,
	})
	if err != nil {
		return fmt.Errorf("failed to create plenum: %w", err)
	}

	roles := []struct {
		user *repository.User
		role string
	}{
		{chair, types.RoleEditingTeacher},
		{ana, types.RoleStudent},
		{ben, types.RoleStudent},
		{guest, types.RoleGuest},
	}
	for _, r := range roles {
		if err := services.Plenum.AssignRole(ctx, plenum.ID, r.user.ID, r.role); err != nil {
			return fmt.Errorf("failed to assign %s: %w", r.user.Username, err)
		}
	}

	// ============================================
	// SESSION
	// Carla opens the meeting, Ana asks for the floor
	// ============================================
	if _, err := services.Motion.Propose(ctx, chair.ID, service.ProposeInput{
		PlenumID: plenum.ID,
		Type:     types.MotionOpen,
	}); err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	if _, err := services.Motion.Propose(ctx, ana.ID, service.ProposeInput{
		PlenumID: plenum.ID,
		Type:     types.MotionResolve,
		Data:     map[string]interface{}{"resolution": "<p>That we meet every Tuesday.</p>"},
	}); err != nil {
		return fmt.Errorf("failed to propose resolution: %w", err)
	}

	zap.L().Info("[Seed] Demo plenum ready",
		zap.String("plenum", plenum.ID),
		zap.String("chair", chair.ID),
		zap.Int("users", len(users)))
	return nil
}
