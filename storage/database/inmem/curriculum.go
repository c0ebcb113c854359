package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
)

type curriculumRepository struct {
	db *DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *DB) *curriculumRepository {
	return &curriculumRepository{db: db}
}

// the helpers below must be called with the lock held

func (repo *curriculumRepository) levelWithModules(lvl curriculum.Level) curriculum.Level {
	lvl.Modules = []curriculum.ModuleSummary{}
	for _, m := range repo.db.modules {
		if m.LevelID == lvl.ID {
			lvl.Modules = append(lvl.Modules, curriculum.ModuleSummary{ID: m.ID, Slug: m.Slug, Title: m.Title, Order: m.Order})
		}
	}
	sort.Slice(lvl.Modules, func(i, j int) bool { return lvl.Modules[i].Order < lvl.Modules[j].Order })
	return lvl
}

func (repo *curriculumRepository) moduleWithLevel(mod curriculum.Module) curriculum.Module {
	mod.Level = repo.db.levels[mod.LevelID].Ref()
	return mod
}

func (repo *curriculumRepository) moduleRef(moduleID string) *curriculum.ModuleRef {
	mod := repo.db.modules[moduleID]
	return &curriculum.ModuleRef{
		ID:    mod.ID,
		Slug:  mod.Slug,
		Title: mod.Title,
		Level: repo.db.levels[mod.LevelID].Ref(),
	}
}

func (repo *curriculumRepository) lessonWithModule(lsn curriculum.Lesson) curriculum.Lesson {
	lsn.Content = cloneBytes(lsn.Content)
	lsn.Module = repo.moduleRef(lsn.ModuleID)
	return lsn
}

// Levels

func (repo *curriculumRepository) checkLevel(lvl curriculum.Level) error {
	for _, l := range repo.db.levels {
		if l.ID != lvl.ID && l.Code == lvl.Code {
			return curriculum.ErrLevelCodeExists
		}
	}
	return nil
}

func (repo *curriculumRepository) CreateLevel(ctx context.Context, lvl curriculum.Level) (curriculum.Level, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lvl.ID = uuid.New().String()
	if err := repo.checkLevel(lvl); err != nil {
		return curriculum.Level{}, err
	}
	lvl.Modules = nil
	repo.db.levels[lvl.ID] = lvl
	return repo.levelWithModules(lvl), nil
}

func (repo *curriculumRepository) QueryLevels(ctx context.Context, page core.Page) ([]curriculum.Level, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	levels := make([]curriculum.Level, 0, len(repo.db.levels))
	for _, l := range repo.db.levels {
		levels = append(levels, l)
	}
	sort.Slice(levels, func(i, j int) bool {
		if levels[i].Code != levels[j].Code {
			return levels[i].Code < levels[j].Code
		}
		return levels[i].ID < levels[j].ID
	})

	levels = paginate(levels, page)
	for i := range levels {
		levels[i] = repo.levelWithModules(levels[i])
	}
	return levels, len(repo.db.levels), nil
}

func (repo *curriculumRepository) GetLevel(ctx context.Context, id string) (curriculum.Level, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lvl, ok := repo.db.levels[id]
	if !ok {
		return curriculum.Level{}, curriculum.ErrLevelNotFound
	}
	return repo.levelWithModules(lvl), nil
}

func (repo *curriculumRepository) UpdateLevel(ctx context.Context, lvl curriculum.Level) (curriculum.Level, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.levels[lvl.ID]
	if !ok {
		return curriculum.Level{}, curriculum.ErrLevelNotFound
	}
	if err := repo.checkLevel(lvl); err != nil {
		return curriculum.Level{}, err
	}
	orig.Code = lvl.Code
	orig.Name = lvl.Name
	orig.UpdatedAt = lvl.UpdatedAt
	repo.db.levels[lvl.ID] = orig
	return repo.levelWithModules(orig), nil
}

func (repo *curriculumRepository) DeleteLevel(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.levels[id]; !ok {
		return curriculum.ErrLevelNotFound
	}
	for _, m := range repo.db.modules {
		if m.LevelID == id {
			return curriculum.ErrLevelHasModules
		}
	}
	delete(repo.db.levels, id)
	return nil
}

// Modules

func (repo *curriculumRepository) checkModule(mod curriculum.Module) error {
	if _, ok := repo.db.levels[mod.LevelID]; !ok {
		return curriculum.ErrParentLevelMissing
	}
	for _, m := range repo.db.modules {
		if m.ID == mod.ID || m.LevelID != mod.LevelID {
			continue
		}
		if m.Slug == mod.Slug {
			return curriculum.ErrModuleSlugExists
		}
		if m.Order == mod.Order {
			return curriculum.ErrModuleOrderExists
		}
	}
	return nil
}

func (repo *curriculumRepository) CreateModule(ctx context.Context, mod curriculum.Module) (curriculum.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	mod.ID = uuid.New().String()
	if err := repo.checkModule(mod); err != nil {
		return curriculum.Module{}, err
	}
	mod.Level, mod.Lessons = nil, nil
	repo.db.modules[mod.ID] = mod
	return repo.getModule(mod.ID), nil
}

func (repo *curriculumRepository) QueryModules(
	ctx context.Context,
	filter curriculum.ModuleFilter,
	page core.Page,
) ([]curriculum.Module, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	modules := make([]curriculum.Module, 0, len(repo.db.modules))
	for _, m := range repo.db.modules {
		if filter.LevelID != "" && m.LevelID != filter.LevelID {
			continue
		}
		modules = append(modules, repo.moduleWithLevel(m))
	}
	sort.Slice(modules, func(i, j int) bool {
		if modules[i].Level.Code != modules[j].Level.Code {
			return modules[i].Level.Code < modules[j].Level.Code
		}
		return modules[i].Order < modules[j].Order
	})
	return paginate(modules, page), len(modules), nil
}

func (repo *curriculumRepository) getModule(id string) curriculum.Module {
	mod := repo.moduleWithLevel(repo.db.modules[id])
	mod.Lessons = []curriculum.LessonSummary{}
	for _, l := range repo.db.lessons {
		if l.ModuleID == id {
			mod.Lessons = append(mod.Lessons, curriculum.LessonSummary{ID: l.ID, Title: l.Title, Order: l.Order})
		}
	}
	sort.Slice(mod.Lessons, func(i, j int) bool { return mod.Lessons[i].Order < mod.Lessons[j].Order })
	return mod
}

func (repo *curriculumRepository) GetModule(ctx context.Context, id string) (curriculum.Module, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if _, ok := repo.db.modules[id]; !ok {
		return curriculum.Module{}, curriculum.ErrModuleNotFound
	}
	return repo.getModule(id), nil
}

func (repo *curriculumRepository) UpdateModule(ctx context.Context, mod curriculum.Module) (curriculum.Module, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.modules[mod.ID]
	if !ok {
		return curriculum.Module{}, curriculum.ErrModuleNotFound
	}
	orig.Slug = mod.Slug
	orig.Title = mod.Title
	orig.Order = mod.Order
	orig.UpdatedAt = mod.UpdatedAt
	if err := repo.checkModule(orig); err != nil {
		return curriculum.Module{}, err
	}
	repo.db.modules[mod.ID] = orig
	return repo.getModule(mod.ID), nil
}

func (repo *curriculumRepository) DeleteModule(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.modules[id]; !ok {
		return curriculum.ErrModuleNotFound
	}
	for _, l := range repo.db.lessons {
		if l.ModuleID == id {
			return curriculum.ErrModuleHasLessons
		}
	}
	delete(repo.db.modules, id)
	return nil
}

// Lessons

func (repo *curriculumRepository) checkLesson(lsn curriculum.Lesson) error {
	if _, ok := repo.db.modules[lsn.ModuleID]; !ok {
		return curriculum.ErrParentModuleMissing
	}
	for _, l := range repo.db.lessons {
		if l.ID != lsn.ID && l.ModuleID == lsn.ModuleID && l.Order == lsn.Order {
			return curriculum.ErrLessonOrderExists
		}
	}
	return nil
}

func (repo *curriculumRepository) CreateLesson(ctx context.Context, lsn curriculum.Lesson) (curriculum.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	lsn.ID = uuid.New().String()
	if err := repo.checkLesson(lsn); err != nil {
		return curriculum.Lesson{}, err
	}
	lsn.Module = nil
	lsn.Content = cloneBytes(lsn.Content)
	repo.db.lessons[lsn.ID] = lsn
	return repo.lessonWithModule(lsn), nil
}

func (repo *curriculumRepository) QueryLessons(
	ctx context.Context,
	filter curriculum.LessonFilter,
	page core.Page,
) ([]curriculum.Lesson, int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lessons := make([]curriculum.Lesson, 0, len(repo.db.lessons))
	for _, l := range repo.db.lessons {
		if filter.ModuleID != "" && l.ModuleID != filter.ModuleID {
			continue
		}
		if filter.LevelID != "" && repo.db.modules[l.ModuleID].LevelID != filter.LevelID {
			continue
		}
		lessons = append(lessons, repo.lessonWithModule(l))
	}
	sort.Slice(lessons, func(i, j int) bool {
		mi, mj := repo.db.modules[lessons[i].ModuleID], repo.db.modules[lessons[j].ModuleID]
		if ci, cj := lessons[i].Module.Level.Code, lessons[j].Module.Level.Code; ci != cj {
			return ci < cj
		}
		if mi.Order != mj.Order {
			return mi.Order < mj.Order
		}
		return lessons[i].Order < lessons[j].Order
	})
	return paginate(lessons, page), len(lessons), nil
}

func (repo *curriculumRepository) GetLesson(ctx context.Context, id string) (curriculum.Lesson, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	lsn, ok := repo.db.lessons[id]
	if !ok {
		return curriculum.Lesson{}, curriculum.ErrLessonNotFound
	}
	return repo.lessonWithModule(lsn), nil
}

func (repo *curriculumRepository) UpdateLesson(ctx context.Context, lsn curriculum.Lesson) (curriculum.Lesson, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.lessons[lsn.ID]
	if !ok {
		return curriculum.Lesson{}, curriculum.ErrLessonNotFound
	}
	orig.Title = lsn.Title
	orig.Order = lsn.Order
	orig.Content = cloneBytes(lsn.Content)
	orig.UpdatedAt = lsn.UpdatedAt
	if err := repo.checkLesson(orig); err != nil {
		return curriculum.Lesson{}, err
	}
	repo.db.lessons[lsn.ID] = orig
	return repo.lessonWithModule(orig), nil
}

func (repo *curriculumRepository) DeleteLesson(ctx context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.lessons[id]; !ok {
		return curriculum.ErrLessonNotFound
	}
	for key := range repo.db.progress {
		if key.lessonID == id {
			return curriculum.ErrLessonHasProgress
		}
	}
	delete(repo.db.lessons, id)
	return nil
}
