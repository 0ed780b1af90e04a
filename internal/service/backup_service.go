package service

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/Marga-Ghale/plenum-backend/internal/config"
	"github.com/Marga-Ghale/plenum-backend/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================
// Backup document
// ============================================

type backupDocument struct {
	XMLName    xml.Name     `xml:"activity"`
	ModuleName string       `xml:"modulename,attr"`
	UserInfo   bool         `xml:"userinfo,attr"`
	Plenum     backupPlenum `xml:"plenum"`
}

type backupPlenum struct {
	ID                string         `xml:"id,attr"`
	CourseID          string         `xml:"course"`
	Name              string         `xml:"name"`
	Intro             string         `xml:"intro"`
	Form              string         `xml:"form"`
	Grade             string         `xml:"grade"`
	GroupMode         int            `xml:"groupmode"`
	CompletionMotions int            `xml:"completionmotions"`
	FormOptions       string         `xml:"formoptions"`
	TimeModified      int64          `xml:"timemodified"`
	Motions           []backupMotion `xml:"motions>motion"`
	Grades            []backupGrade  `xml:"grades>grade"`
}

type backupMotion struct {
	ID           string `xml:"id,attr"`
	GroupID      int64  `xml:"groupid"`
	Type         string `xml:"type"`
	Status       string `xml:"status"`
	Parent       string `xml:"parent"`
	UserCreated  string `xml:"usercreated"`
	UserModified string `xml:"usermodified"`
	Data         string `xml:"plugindata"`
	TimeCreated  int64  `xml:"timecreated"`
	TimeModified int64  `xml:"timemodified"`
}

type backupGrade struct {
	UserID     string `xml:"userid"`
	ItemNumber int    `xml:"itemnumber"`
	Grade      string `xml:"grade"`
	Grader     string `xml:"grader"`
}

// RestoreOptions controls how a backup is brought into a course.
type RestoreOptions struct {
	CourseID string
	UserInfo bool
	// Links maps ids found in encoded links to their restored ids.
	Links map[string]string
}

type BackupService interface {
	Export(ctx context.Context, plenumID string, userInfo bool) ([]byte, error)
	Restore(ctx context.Context, data []byte, opts RestoreOptions) (*repository.Plenum, error)
}

type backupService struct {
	cfg        *config.Config
	plenumRepo repository.PlenumRepository
	motionRepo repository.MotionRepository
	gradeRepo  repository.GradeRepository
	pluginSvc  PluginService
}

func NewBackupService(
	cfg *config.Config,
	plenumRepo repository.PlenumRepository,
	motionRepo repository.MotionRepository,
	gradeRepo repository.GradeRepository,
	pluginSvc PluginService,
) BackupService {
	return &backupService{
		cfg:        cfg,
		plenumRepo: plenumRepo,
		motionRepo: motionRepo,
		gradeRepo:  gradeRepo,
		pluginSvc:  pluginSvc,
	}
}

// ============================================
// Link encoding
// ============================================

const (
	linkIndex  = "PLENUMINDEX"
	linkViewBy = "PLENUMVIEWBYID"
)

var encodedLinkPattern = regexp.MustCompile(`\$@(PLENUMINDEX|PLENUMVIEWBYID)\*([0-9A-Za-z-]+)@\$`)

// EncodeContentLinks replaces site links to plenum pages with portable markers.
func EncodeContentLinks(wwwroot, content string) string {
	base := regexp.QuoteMeta(wwwroot)
	index := regexp.MustCompile(base + `/mod/plenum/index\.php\?id=([0-9A-Za-z-]+)`)
	content = index.ReplaceAllString(content, `$$@`+linkIndex+`*${1}@$$`)
	view := regexp.MustCompile(base + `/mod/plenum/view\.php\?id=([0-9A-Za-z-]+)`)
	return view.ReplaceAllString(content, `$$@`+linkViewBy+`*${1}@$$`)
}

// DecodeContentLinks turns markers back into links on wwwroot. Ids missing
// from links are kept as they are.
func DecodeContentLinks(wwwroot, content string, links map[string]string) string {
	return encodedLinkPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := encodedLinkPattern.FindStringSubmatch(match)
		id := parts[2]
		if mapped, ok := links[id]; ok {
			id = mapped
		}
		page := "index.php"
		if parts[1] == linkViewBy {
			page = "view.php"
		}
		return wwwroot + "/mod/plenum/" + page + "?id=" + id
	})
}

func (s *backupService) encodeData(data map[string]interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return EncodeContentLinks(s.cfg.WWWRoot, string(raw)), nil
}

func (s *backupService) decodeData(raw string, links map[string]string) (map[string]interface{}, error) {
	if raw == "" {
		return map[string]interface{}{}, nil
	}
	data := map[string]interface{}{}
	decoded := DecodeContentLinks(s.cfg.WWWRoot, raw, links)
	if err := json.Unmarshal([]byte(decoded), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// ============================================
// Export
// ============================================

func (s *backupService) Export(ctx context.Context, plenumID string, userInfo bool) ([]byte, error) {
	plenum, err := s.plenumRepo.FindByID(ctx, plenumID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plenum: %w", err)
	}
	if plenum == nil {
		return nil, fmt.Errorf("%w: plenum %s", ErrNotFound, plenumID)
	}

	options, err := json.Marshal(plenum.FormOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode form options: %w", err)
	}
	doc := backupDocument{
		ModuleName: "plenum",
		UserInfo:   userInfo,
		Plenum: backupPlenum{
			ID:                plenum.ID,
			CourseID:          plenum.CourseID,
			Name:              plenum.Name,
			Intro:             EncodeContentLinks(s.cfg.WWWRoot, plenum.Intro),
			Form:              plenum.Form,
			Grade:             plenum.Grade.String(),
			GroupMode:         plenum.GroupMode,
			CompletionMotions: plenum.CompletionMotions,
			FormOptions:       string(options),
			TimeModified:      plenum.UpdatedAt.Unix(),
		},
	}

	if userInfo {
		motions, err := s.motionRepo.FindByPlenum(ctx, plenumID)
		if err != nil {
			return nil, fmt.Errorf("failed to load motions: %w", err)
		}
		for _, m := range motions {
			data, err := s.encodeData(m.Data)
			if err != nil {
				return nil, fmt.Errorf("failed to encode motion data: %w", err)
			}
			bm := backupMotion{
				ID:           m.ID,
				GroupID:      m.GroupID,
				Type:         m.Type,
				Status:       m.Status,
				UserCreated:  m.UserCreated,
				UserModified: m.UserModified,
				Data:         data,
				TimeCreated:  m.CreatedAt.Unix(),
				TimeModified: m.UpdatedAt.Unix(),
			}
			if m.ParentID != nil {
				bm.Parent = *m.ParentID
			}
			doc.Plenum.Motions = append(doc.Plenum.Motions, bm)
		}

		grades, err := s.gradeRepo.FindByPlenum(ctx, plenumID)
		if err != nil {
			return nil, fmt.Errorf("failed to load grades: %w", err)
		}
		for _, g := range grades {
			bg := backupGrade{UserID: g.UserID, ItemNumber: g.ItemNumber, Grader: g.Grader}
			if g.Grade.Valid {
				bg.Grade = g.Grade.Decimal.String()
			}
			doc.Plenum.Grades = append(doc.Plenum.Grades, bg)
		}
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// ============================================
// Restore
// ============================================

func (s *backupService) Restore(ctx context.Context, data []byte, opts RestoreOptions) (*repository.Plenum, error) {
	var doc backupDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: malformed backup: %v", ErrInvalidInput, err)
	}
	if doc.ModuleName != "plenum" {
		return nil, fmt.Errorf("%w: backup is not a plenum activity", ErrInvalidInput)
	}
	src := doc.Plenum

	grade, err := decimal.NewFromString(src.Grade)
	if err != nil {
		grade = decimal.Zero
	}
	options := map[string]interface{}{}
	if src.FormOptions != "" {
		if err := json.Unmarshal([]byte(src.FormOptions), &options); err != nil {
			return nil, fmt.Errorf("%w: malformed form options: %v", ErrInvalidInput, err)
		}
	}
	if options, err = mergeFormDefaults(ctx, s.pluginSvc, src.Form, options); err != nil {
		return nil, err
	}

	courseID := opts.CourseID
	if courseID == "" {
		courseID = src.CourseID
	}
	plenum := &repository.Plenum{
		CourseID:          courseID,
		Name:              src.Name,
		Intro:             DecodeContentLinks(s.cfg.WWWRoot, src.Intro, opts.Links),
		Form:              src.Form,
		Grade:             grade,
		GroupMode:         src.GroupMode,
		CompletionMotions: src.CompletionMotions,
		FormOptions:       options,
	}
	if err := s.plenumRepo.Create(ctx, plenum); err != nil {
		return nil, fmt.Errorf("failed to restore plenum: %w", err)
	}

	if opts.UserInfo && doc.UserInfo {
		if err := s.restoreMotions(ctx, plenum.ID, src.Motions, opts.Links); err != nil {
			return nil, err
		}
		if err := s.restoreGrades(ctx, plenum.ID, src.Grades); err != nil {
			return nil, err
		}
	}

	zap.L().Info("[Backup] Plenum restored",
		zap.String("from", src.ID), zap.String("plenum", plenum.ID), zap.Int("motions", len(src.Motions)))
	return plenum, nil
}

// restoreMotions inserts parents before children so every parent id can be
// remapped. Motions whose parent is missing from the backup lose the parent.
func (s *backupService) restoreMotions(ctx context.Context, plenumID string, motions []backupMotion, links map[string]string) error {
	sort.SliceStable(motions, func(i, j int) bool { return motions[i].TimeCreated < motions[j].TimeCreated })

	inBackup := map[string]bool{}
	for _, m := range motions {
		inBackup[m.ID] = true
	}

	idMap := map[string]string{}
	remaining := motions
	for len(remaining) > 0 {
		var deferred []backupMotion
		for _, bm := range remaining {
			var parentID *string
			if bm.Parent != "" && inBackup[bm.Parent] {
				mapped, ok := idMap[bm.Parent]
				if !ok {
					deferred = append(deferred, bm)
					continue
				}
				parentID = &mapped
			}

			payload, err := s.decodeData(bm.Data, links)
			if err != nil {
				return fmt.Errorf("%w: malformed motion data: %v", ErrInvalidInput, err)
			}
			m := &repository.Motion{
				PlenumID:     plenumID,
				GroupID:      bm.GroupID,
				Type:         bm.Type,
				Status:       bm.Status,
				ParentID:     parentID,
				UserCreated:  bm.UserCreated,
				UserModified: bm.UserModified,
				Data:         payload,
				CreatedAt:    time.Unix(bm.TimeCreated, 0),
				UpdatedAt:    time.Unix(bm.TimeModified, 0),
			}
			if err := s.motionRepo.Import(ctx, m); err != nil {
				return fmt.Errorf("failed to restore motion: %w", err)
			}
			idMap[bm.ID] = m.ID
		}
		if len(deferred) == len(remaining) {
			// Parent cycle in the backup; restore the rest without parents.
			for i := range deferred {
				delete(inBackup, deferred[i].Parent)
			}
		}
		remaining = deferred
	}
	return nil
}

func (s *backupService) restoreGrades(ctx context.Context, plenumID string, grades []backupGrade) error {
	for _, bg := range grades {
		g := &repository.Grade{PlenumID: plenumID, UserID: bg.UserID, ItemNumber: bg.ItemNumber, Grader: bg.Grader}
		if bg.Grade != "" {
			value, err := decimal.NewFromString(bg.Grade)
			if err != nil {
				return fmt.Errorf("%w: malformed grade: %v", ErrInvalidInput, err)
			}
			g.Grade = decimal.NewNullDecimal(value)
		}
		if err := s.gradeRepo.Upsert(ctx, g); err != nil {
			return fmt.Errorf("failed to restore grade: %w", err)
		}
	}
	return nil
}
