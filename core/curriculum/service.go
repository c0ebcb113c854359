package curriculum

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
)

var (
	// errors
	ErrLevelNotFound  = core.NewNotFoundError("level not found")
	ErrModuleNotFound = core.NewNotFoundError("module not found")
	ErrLessonNotFound = core.NewNotFoundError("lesson not found")

	ErrLevelCodeExists     = core.NewConflictError("a level with this code already exists")
	ErrModuleSlugExists    = core.NewConflictError("a module with this slug already exists in the level")
	ErrModuleOrderExists   = core.NewConflictError("a module with this order already exists in the level")
	ErrLessonOrderExists   = core.NewConflictError("a lesson with this order already exists in the module")
	ErrLevelHasModules     = core.NewConflictError("cannot delete a level that has modules")
	ErrModuleHasLessons    = core.NewConflictError("cannot delete a module that has lessons")
	ErrLessonHasProgress   = core.NewConflictError("cannot delete a lesson that has progress records")
	ErrParentLevelMissing  = core.NewValidationError(nil, core.FieldError{Field: "level_id", Error: "level not found"})
	ErrParentModuleMissing = core.NewValidationError(nil, core.FieldError{Field: "module_id", Error: "module not found"})
)

type (
	// Repository persists the curriculum. Uniqueness and referential guards are enforced by the store:
	// colliding codes/slugs/orders fail with the matching Conflict error and are never renumbered.
	Repository interface {
		CreateLevel(ctx context.Context, lvl Level) (Level, error)
		QueryLevels(ctx context.Context, page core.Page) ([]Level, int, error)
		GetLevel(ctx context.Context, id string) (Level, error)
		UpdateLevel(ctx context.Context, lvl Level) (Level, error)
		DeleteLevel(ctx context.Context, id string) error

		CreateModule(ctx context.Context, mod Module) (Module, error)
		QueryModules(ctx context.Context, filter ModuleFilter, page core.Page) ([]Module, int, error)
		GetModule(ctx context.Context, id string) (Module, error)
		UpdateModule(ctx context.Context, mod Module) (Module, error)
		DeleteModule(ctx context.Context, id string) error

		CreateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		QueryLessons(ctx context.Context, filter LessonFilter, page core.Page) ([]Lesson, int, error)
		GetLesson(ctx context.Context, id string) (Lesson, error)
		UpdateLesson(ctx context.Context, lsn Lesson) (Lesson, error)
		DeleteLesson(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Levels

func (svc *Service) CreateLevel(ctx context.Context, actor access.Actor, nl NewLevel) (Level, error) {
	if err := access.Check(actor, access.ManageLevels, access.Target{}); err != nil {
		return Level{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateLevel(ctx, Level{
		Code:      nl.Code,
		Name:      nl.Name,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryLevels(ctx context.Context, page core.Page) ([]Level, core.Pagination, error) {
	levels, total, err := svc.repo.QueryLevels(ctx, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying levels")
	}
	return levels, core.NewPagination(total, page), nil
}

func (svc *Service) GetLevel(ctx context.Context, id string) (Level, error) {
	return svc.repo.GetLevel(ctx, id)
}

func (svc *Service) UpdateLevel(ctx context.Context, actor access.Actor, id string, ul UpdateLevel) (Level, error) {
	if err := access.Check(actor, access.ManageLevels, access.Target{}); err != nil {
		return Level{}, err
	}
	lvl, err := svc.repo.GetLevel(ctx, id)
	if err != nil {
		return Level{}, err
	}
	if ul.Code != nil {
		lvl.Code = *ul.Code
	}
	if ul.Name != nil {
		lvl.Name = *ul.Name
	}
	lvl.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLevel(ctx, lvl)
}

// DeleteLevel fails with ErrLevelHasModules while the level has modules.
func (svc *Service) DeleteLevel(ctx context.Context, actor access.Actor, id string) error {
	if err := access.Check(actor, access.ManageLevels, access.Target{}); err != nil {
		return err
	}
	return svc.repo.DeleteLevel(ctx, id)
}

// Modules

func (svc *Service) CreateModule(ctx context.Context, actor access.Actor, nm NewModule) (Module, error) {
	if err := access.Check(actor, access.EditCurriculum, access.Target{}); err != nil {
		return Module{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateModule(ctx, Module{
		LevelID:   nm.LevelID,
		Slug:      nm.Slug,
		Title:     nm.Title,
		Order:     nm.Order,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryModules(ctx context.Context, filter ModuleFilter, page core.Page) ([]Module, core.Pagination, error) {
	modules, total, err := svc.repo.QueryModules(ctx, filter, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying modules")
	}
	return modules, core.NewPagination(total, page), nil
}

// GetModule returns the module with its level and its lessons in order.
func (svc *Service) GetModule(ctx context.Context, id string) (Module, error) {
	return svc.repo.GetModule(ctx, id)
}

func (svc *Service) UpdateModule(ctx context.Context, actor access.Actor, id string, um UpdateModule) (Module, error) {
	if err := access.Check(actor, access.EditCurriculum, access.Target{}); err != nil {
		return Module{}, err
	}
	mod, err := svc.repo.GetModule(ctx, id)
	if err != nil {
		return Module{}, err
	}
	if um.Slug != nil {
		mod.Slug = *um.Slug
	}
	if um.Title != nil {
		mod.Title = *um.Title
	}
	if um.Order != nil {
		mod.Order = *um.Order
	}
	mod.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateModule(ctx, mod)
}

// DeleteModule fails with ErrModuleHasLessons while the module has lessons.
func (svc *Service) DeleteModule(ctx context.Context, actor access.Actor, id string) error {
	if err := access.Check(actor, access.DeleteCurriculum, access.Target{}); err != nil {
		return err
	}
	return svc.repo.DeleteModule(ctx, id)
}

// Lessons

func (svc *Service) CreateLesson(ctx context.Context, actor access.Actor, nl NewLesson) (Lesson, error) {
	if err := access.Check(actor, access.EditCurriculum, access.Target{}); err != nil {
		return Lesson{}, err
	}
	now := time.Now().UTC()
	return svc.repo.CreateLesson(ctx, Lesson{
		ModuleID:  nl.ModuleID,
		Title:     nl.Title,
		Order:     nl.Order,
		Content:   nl.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) QueryLessons(ctx context.Context, filter LessonFilter, page core.Page) ([]Lesson, core.Pagination, error) {
	lessons, total, err := svc.repo.QueryLessons(ctx, filter, page)
	if err != nil {
		return nil, core.Pagination{}, errors.Wrap(err, "querying lessons")
	}
	return lessons, core.NewPagination(total, page), nil
}

// GetLesson returns the lesson with its module and level context.
func (svc *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return svc.repo.GetLesson(ctx, id)
}

func (svc *Service) UpdateLesson(ctx context.Context, actor access.Actor, id string, ul UpdateLesson) (Lesson, error) {
	if err := access.Check(actor, access.EditCurriculum, access.Target{}); err != nil {
		return Lesson{}, err
	}
	lsn, err := svc.repo.GetLesson(ctx, id)
	if err != nil {
		return Lesson{}, err
	}
	if ul.Title != nil {
		lsn.Title = *ul.Title
	}
	if ul.Order != nil {
		lsn.Order = *ul.Order
	}
	if len(ul.Content) > 0 { // absent: unchanged, null: cleared
		lsn.Content = normalizeContent(ul.Content)
	}
	lsn.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateLesson(ctx, lsn)
}

// DeleteLesson fails with ErrLessonHasProgress while any progress row references the lesson.
func (svc *Service) DeleteLesson(ctx context.Context, actor access.Actor, id string) error {
	if err := access.Check(actor, access.DeleteCurriculum, access.Target{}); err != nil {
		return err
	}
	return svc.repo.DeleteLesson(ctx, id)
}
