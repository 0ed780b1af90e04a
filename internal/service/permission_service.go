package service

import (
	"context"
	"fmt"

	"github.com/Marga-Ghale/plenum-backend/internal/procedure"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// PermissionService resolves plenum capabilities from role assignments, the
// archetype defaults and per-plenum overrides.
type PermissionService interface {
	HasCapability(ctx context.Context, userID, plenumID, capability string) bool
	Capabilities(ctx context.Context, userID, plenumID string) (procedure.CapabilitySet, error)
	Require(ctx context.Context, userID, plenumID, capability string) error

	// ResolveGroup returns the group the user acts in. Plenums without
	// groups always use group 0. With visible groups non-members may watch
	// but not participate.
	ResolveGroup(ctx context.Context, userID string, plenum *repository.Plenum, requested int64, participate bool) (int64, error)
}

type permissionService struct {
	roleRepo   repository.RoleRepository
	plenumRepo repository.PlenumRepository
}

func NewPermissionService(roleRepo repository.RoleRepository, plenumRepo repository.PlenumRepository) PermissionService {
	return &permissionService{roleRepo: roleRepo, plenumRepo: plenumRepo}
}

// ============================================
// Capability Helpers
// ============================================

// archetypeGrants reports whether any of roles is granted capability by default.
func archetypeGrants(capability string, roles []string) bool {
	return len(lo.Intersect(types.Archetypes[capability], roles)) > 0
}

// resolveCapabilities applies overrides on top of the archetype defaults. An
// allow adds the capability, a prohibit on any held role removes it for good.
func resolveCapabilities(roles []string, overrides []*repository.CapabilityOverride) procedure.CapabilitySet {
	set := procedure.CapabilitySet{}
	for capability := range types.Archetypes {
		if archetypeGrants(capability, roles) {
			set[capability] = true
		}
	}

	prohibited := map[string]bool{}
	for _, o := range overrides {
		if !lo.Contains(roles, o.Role) {
			continue
		}
		switch o.Permission {
		case types.PermissionAllow:
			set[o.Capability] = true
		case types.PermissionProhibit:
			prohibited[o.Capability] = true
		}
	}
	for capability := range prohibited {
		delete(set, capability)
	}
	return set
}

func (s *permissionService) Capabilities(ctx context.Context, userID, plenumID string) (procedure.CapabilitySet, error) {
	roles, err := s.roleRepo.FindRoles(ctx, plenumID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	if len(roles) == 0 {
		return procedure.CapabilitySet{}, nil
	}

	overrides, err := s.roleRepo.FindOverrides(ctx, plenumID, roles)
	if err != nil {
		return nil, fmt.Errorf("failed to load capability overrides: %w", err)
	}
	return resolveCapabilities(roles, overrides), nil
}

func (s *permissionService) HasCapability(ctx context.Context, userID, plenumID, capability string) bool {
	caps, err := s.Capabilities(ctx, userID, plenumID)
	if err != nil {
		zap.L().Warn("[Permission] Capability lookup failed",
			zap.String("user", userID), zap.String("plenum", plenumID), zap.Error(err))
		return false
	}
	return caps.Has(capability)
}

func (s *permissionService) Require(ctx context.Context, userID, plenumID, capability string) error {
	if !s.HasCapability(ctx, userID, plenumID, capability) {
		return fmt.Errorf("%w: missing %s", ErrForbidden, capability)
	}
	return nil
}

func (s *permissionService) ResolveGroup(ctx context.Context, userID string, plenum *repository.Plenum, requested int64, participate bool) (int64, error) {
	if plenum.GroupMode == types.GroupModeNone {
		return 0, nil
	}
	if requested < 0 {
		return 0, fmt.Errorf("%w: invalid group", ErrInvalidInput)
	}
	// The chair may act in every group, including the all-participants group 0.
	if s.HasCapability(ctx, userID, plenum.ID, types.CapPreside) {
		return requested, nil
	}
	if requested == 0 {
		if participate || plenum.GroupMode == types.GroupModeSeparate {
			return 0, fmt.Errorf("%w: a group must be selected", ErrForbidden)
		}
		return 0, nil
	}
	member, err := s.roleRepo.IsGroupMember(ctx, plenum.ID, requested, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to check group membership: %w", err)
	}
	if !member && (participate || plenum.GroupMode == types.GroupModeSeparate) {
		return 0, fmt.Errorf("%w: not a member of group %d", ErrForbidden, requested)
	}
	return requested, nil
}
