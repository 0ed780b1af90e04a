package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/Marga-Ghale/plenum-backend/internal/types"
	"github.com/samber/lo"
)

// ReportFilterOptions lists the choices offered by the report filters.
type ReportFilterOptions struct {
	Types    []string `json:"types"`
	Statuses []string `json:"statuses"`
	Columns  []string `json:"columns"`
}

type MotionReport struct {
	Rows    []*repository.MotionReportRow `json:"rows"`
	Total   int                           `json:"total"`
	Page    int                           `json:"page"`
	PerPage int                           `json:"perPage"`
}

type ReportService interface {
	Motions(ctx context.Context, userID string, filter repository.MotionReportFilter) (*MotionReport, error)
	FilterOptions(ctx context.Context) (*ReportFilterOptions, error)
}

type reportService struct {
	reportRepo    repository.ReportRepository
	plenumRepo    repository.PlenumRepository
	permissionSvc PermissionService
	pluginSvc     PluginService
}

func NewReportService(
	reportRepo repository.ReportRepository,
	plenumRepo repository.PlenumRepository,
	permissionSvc PermissionService,
	pluginSvc PluginService,
) ReportService {
	return &reportService{
		reportRepo:    reportRepo,
		plenumRepo:    plenumRepo,
		permissionSvc: permissionSvc,
		pluginSvc:     pluginSvc,
	}
}

func (s *reportService) Motions(ctx context.Context, userID string, filter repository.MotionReportFilter) (*MotionReport, error) {
	plenum, err := s.plenumRepo.FindByID(ctx, filter.PlenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", ErrNotFound, filter.PlenumID)
	}
	if err := s.permissionSvc.Require(ctx, userID, plenum.ID, types.CapPreside); err != nil {
		return nil, err
	}
	if bad, ok := lo.Find(append(append([]string{}, filter.Types...), filter.ParentTypes...), func(t string) bool {
		return !types.IsValidMotionType(t)
	}); ok {
		return nil, fmt.Errorf("%w: unknown motion type %q", ErrInvalidInput, bad)
	}
	if bad, ok := lo.Find(filter.Statuses, func(st string) bool {
		return !types.IsValidMotionStatus(st) || st == types.StatusDraft
	}); ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, bad)
	}
	if filter.SortBy != "" {
		if _, ok := repository.ReportSortColumns[filter.SortBy]; !ok {
			return nil, fmt.Errorf("%w: unknown sort column %q", ErrInvalidInput, filter.SortBy)
		}
	}
	if plenum.GroupMode == types.GroupModeNone {
		filter.GroupID = nil
	}
	if filter.PerPage <= 0 {
		filter.PerPage = repository.DefaultReportPerPage
	}

	rows, total, err := s.reportRepo.Motions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to build motions report: %w", err)
	}
	return &MotionReport{Rows: rows, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

// FilterOptions offers the enabled motion types, every status except draft
// and the sortable columns.
func (s *reportService) FilterOptions(ctx context.Context) (*ReportFilterOptions, error) {
	enabled, err := s.pluginSvc.EnabledNames(ctx, types.PluginKindType)
	if err != nil {
		return nil, err
	}
	columns := lo.Keys(repository.ReportSortColumns)
	sort.Strings(columns)
	return &ReportFilterOptions{
		Types:    enabled,
		Statuses: lo.Without(types.ValidMotionStatuses, types.StatusDraft),
		Columns:  columns,
	}, nil
}
