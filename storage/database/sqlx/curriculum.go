package sqlxrepos

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
)

const (
	levelColumns = "id, code, name, created_at, updated_at"

	moduleFrom    = "modules m JOIN levels l ON l.id = m.level_id"
	moduleColumns = "m.id, m.level_id, m.slug, m.title, m.position, m.created_at, m.updated_at, " +
		"l.code AS level_code, l.name AS level_name"

	lessonFrom    = "lessons ls JOIN modules m ON m.id = ls.module_id JOIN levels l ON l.id = m.level_id"
	lessonColumns = "ls.id, ls.module_id, ls.title, ls.position, ls.content, ls.created_at, ls.updated_at, " +
		"m.slug AS module_slug, m.title AS module_title, m.level_id, l.code AS level_code, l.name AS level_name"
)

var (
	levelUniqueErrors = constraintErrors{"levels_code_key": curriculum.ErrLevelCodeExists}
	levelDeleteErrors = constraintErrors{"modules_level_id_fkey": curriculum.ErrLevelHasModules}

	moduleWriteErrors = constraintErrors{
		"modules_level_id_slug_key":     curriculum.ErrModuleSlugExists,
		"modules_level_id_position_key": curriculum.ErrModuleOrderExists,
		"modules_level_id_fkey":         curriculum.ErrParentLevelMissing,
	}
	moduleDeleteErrors = constraintErrors{"lessons_module_id_fkey": curriculum.ErrModuleHasLessons}

	lessonWriteErrors = constraintErrors{
		"lessons_module_id_position_key": curriculum.ErrLessonOrderExists,
		"lessons_module_id_fkey":         curriculum.ErrParentModuleMissing,
	}
	lessonDeleteErrors = constraintErrors{"progress_lesson_id_fkey": curriculum.ErrLessonHasProgress}
)

type (
	levelRow struct {
		ID        string    `db:"id"`
		Code      string    `db:"code"`
		Name      string    `db:"name"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	moduleRow struct {
		ID        string    `db:"id"`
		LevelID   string    `db:"level_id"`
		Slug      string    `db:"slug"`
		Title     string    `db:"title"`
		Position  int       `db:"position"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
		LevelCode string    `db:"level_code"`
		LevelName string    `db:"level_name"`
	}

	lessonRow struct {
		ID          string    `db:"id"`
		ModuleID    string    `db:"module_id"`
		Title       string    `db:"title"`
		Position    int       `db:"position"`
		Content     null.JSON `db:"content"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
		ModuleSlug  string    `db:"module_slug"`
		ModuleTitle string    `db:"module_title"`
		LevelID     string    `db:"level_id"`
		LevelCode   string    `db:"level_code"`
		LevelName   string    `db:"level_name"`
	}
)

func (r levelRow) toLevel() curriculum.Level {
	return curriculum.Level{
		ID:        r.ID,
		Code:      r.Code,
		Name:      r.Name,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Modules:   []curriculum.ModuleSummary{},
	}
}

func (r moduleRow) toModule() curriculum.Module {
	return curriculum.Module{
		ID:        r.ID,
		LevelID:   r.LevelID,
		Slug:      r.Slug,
		Title:     r.Title,
		Order:     r.Position,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Level:     &curriculum.LevelRef{ID: r.LevelID, Code: r.LevelCode, Name: r.LevelName},
	}
}

func (r lessonRow) toLesson() curriculum.Lesson {
	var content json.RawMessage
	if r.Content.Valid {
		content = json.RawMessage(r.Content.JSON)
	}
	return curriculum.Lesson{
		ID:        r.ID,
		ModuleID:  r.ModuleID,
		Title:     r.Title,
		Order:     r.Position,
		Content:   content,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
		Module: &curriculum.ModuleRef{
			ID:    r.ModuleID,
			Slug:  r.ModuleSlug,
			Title: r.ModuleTitle,
			Level: &curriculum.LevelRef{ID: r.LevelID, Code: r.LevelCode, Name: r.LevelName},
		},
	}
}

type curriculumRepository struct {
	db *sqlx.DB
}

var _ curriculum.Repository = (*curriculumRepository)(nil) // interface compliance check

func NewCurriculumRepository(db *sqlx.DB) *curriculumRepository {
	return &curriculumRepository{db: db}
}

// Levels

func (repo curriculumRepository) CreateLevel(ctx context.Context, lvl curriculum.Level) (curriculum.Level, error) {
	row := levelRow{
		ID:        uuid.New().String(),
		Code:      lvl.Code,
		Name:      lvl.Name,
		CreatedAt: lvl.CreatedAt.UTC(),
		UpdatedAt: lvl.UpdatedAt.UTC(),
	}
	q := `INSERT INTO levels (` + levelColumns + `) VALUES (:id, :code, :name, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return curriculum.Level{}, translate(err, "inserting level", levelUniqueErrors)
	}
	return row.toLevel(), nil
}

// moduleSummaries returns the modules of the given levels, in order.
func (repo curriculumRepository) moduleSummaries(ctx context.Context, levelIDs []string) (map[string][]curriculum.ModuleSummary, error) {
	var rows []moduleRow
	q := repo.db.Rebind(`SELECT ` + moduleColumns + ` FROM ` + moduleFrom + ` WHERE m.level_id = ANY(?) ORDER BY m.position`)
	if err := repo.db.SelectContext(ctx, &rows, q, pq.Array(levelIDs)); err != nil {
		return nil, errors.Wrap(err, "selecting level modules")
	}
	summaries := make(map[string][]curriculum.ModuleSummary, len(levelIDs))
	for _, r := range rows {
		summaries[r.LevelID] = append(summaries[r.LevelID], curriculum.ModuleSummary{
			ID:    r.ID,
			Slug:  r.Slug,
			Title: r.Title,
			Order: r.Position,
		})
	}
	return summaries, nil
}

func (repo curriculumRepository) QueryLevels(ctx context.Context, page core.Page) ([]curriculum.Level, int, error) {
	var rows []levelRow
	total, err := selectPage(ctx, repo.db, &rows, "levels", whereClause{}, " ORDER BY code, id", page, levelColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying levels")
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	summaries, err := repo.moduleSummaries(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	levels := make([]curriculum.Level, 0, len(rows))
	for _, r := range rows {
		lvl := r.toLevel()
		if mods, ok := summaries[r.ID]; ok {
			lvl.Modules = mods
		}
		levels = append(levels, lvl)
	}
	return levels, total, nil
}

func (repo curriculumRepository) GetLevel(ctx context.Context, id string) (curriculum.Level, error) {
	if !isUUID(id) {
		return curriculum.Level{}, curriculum.ErrLevelNotFound
	}
	var row levelRow
	q := repo.db.Rebind(`SELECT ` + levelColumns + ` FROM levels WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return curriculum.Level{}, trapNoRowsErr(err, curriculum.ErrLevelNotFound, "finding level")
	}

	lvl := row.toLevel()
	summaries, err := repo.moduleSummaries(ctx, []string{id})
	if err != nil {
		return curriculum.Level{}, err
	}
	if mods, ok := summaries[id]; ok {
		lvl.Modules = mods
	}
	return lvl, nil
}

func (repo curriculumRepository) UpdateLevel(ctx context.Context, lvl curriculum.Level) (curriculum.Level, error) {
	q := repo.db.Rebind(`UPDATE levels SET code = ?, name = ?, updated_at = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, lvl.Code, lvl.Name, lvl.UpdatedAt.UTC(), lvl.ID)
	if err != nil {
		return curriculum.Level{}, translate(err, "updating level", levelUniqueErrors)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curriculum.Level{}, curriculum.ErrLevelNotFound
	}
	return repo.GetLevel(ctx, lvl.ID)
}

func (repo curriculumRepository) DeleteLevel(ctx context.Context, id string) error {
	return repo.delete(ctx, "levels", id, curriculum.ErrLevelNotFound, levelDeleteErrors)
}

func (repo curriculumRepository) delete(ctx context.Context, table, id string, notFound error, known constraintErrors) error {
	if !isUUID(id) {
		return notFound
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM `+table+` WHERE id = ?`), id)
	if err != nil {
		return translate(err, "deleting from "+table, known)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound
	}
	return nil
}

// Modules

func (repo curriculumRepository) CreateModule(ctx context.Context, mod curriculum.Module) (curriculum.Module, error) {
	if !isUUID(mod.LevelID) {
		return curriculum.Module{}, curriculum.ErrParentLevelMissing
	}
	row := moduleRow{
		ID:        uuid.New().String(),
		LevelID:   mod.LevelID,
		Slug:      mod.Slug,
		Title:     mod.Title,
		Position:  mod.Order,
		CreatedAt: mod.CreatedAt.UTC(),
		UpdatedAt: mod.UpdatedAt.UTC(),
	}
	q := `INSERT INTO modules (id, level_id, slug, title, position, created_at, updated_at)
		VALUES (:id, :level_id, :slug, :title, :position, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, row); err != nil {
		return curriculum.Module{}, translate(err, "inserting module", moduleWriteErrors)
	}
	return repo.GetModule(ctx, row.ID)
}

func (repo curriculumRepository) QueryModules(
	ctx context.Context,
	filter curriculum.ModuleFilter,
	page core.Page,
) ([]curriculum.Module, int, error) {
	var where whereClause
	if filter.LevelID != "" {
		if !isUUID(filter.LevelID) {
			return []curriculum.Module{}, 0, nil
		}
		where.add("m.level_id = ?", filter.LevelID)
	}

	var rows []moduleRow
	total, err := selectPage(ctx, repo.db, &rows, moduleFrom, where, " ORDER BY l.code, m.position", page, moduleColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying modules")
	}
	modules := make([]curriculum.Module, 0, len(rows))
	for _, r := range rows {
		modules = append(modules, r.toModule())
	}
	return modules, total, nil
}

func (repo curriculumRepository) GetModule(ctx context.Context, id string) (curriculum.Module, error) {
	if !isUUID(id) {
		return curriculum.Module{}, curriculum.ErrModuleNotFound
	}
	var row moduleRow
	q := repo.db.Rebind(`SELECT ` + moduleColumns + ` FROM ` + moduleFrom + ` WHERE m.id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return curriculum.Module{}, trapNoRowsErr(err, curriculum.ErrModuleNotFound, "finding module")
	}

	var lessons []lessonRow
	q = repo.db.Rebind(`SELECT ` + lessonColumns + ` FROM ` + lessonFrom + ` WHERE ls.module_id = ? ORDER BY ls.position`)
	if err := repo.db.SelectContext(ctx, &lessons, q, id); err != nil {
		return curriculum.Module{}, errors.Wrap(err, "selecting module lessons")
	}

	mod := row.toModule()
	mod.Lessons = make([]curriculum.LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		mod.Lessons = append(mod.Lessons, curriculum.LessonSummary{ID: l.ID, Title: l.Title, Order: l.Position})
	}
	return mod, nil
}

func (repo curriculumRepository) UpdateModule(ctx context.Context, mod curriculum.Module) (curriculum.Module, error) {
	q := repo.db.Rebind(`UPDATE modules SET slug = ?, title = ?, position = ?, updated_at = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q, mod.Slug, mod.Title, mod.Order, mod.UpdatedAt.UTC(), mod.ID)
	if err != nil {
		return curriculum.Module{}, translate(err, "updating module", moduleWriteErrors)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curriculum.Module{}, curriculum.ErrModuleNotFound
	}
	return repo.GetModule(ctx, mod.ID)
}

func (repo curriculumRepository) DeleteModule(ctx context.Context, id string) error {
	return repo.delete(ctx, "modules", id, curriculum.ErrModuleNotFound, moduleDeleteErrors)
}

// Lessons

func (repo curriculumRepository) CreateLesson(ctx context.Context, lsn curriculum.Lesson) (curriculum.Lesson, error) {
	if !isUUID(lsn.ModuleID) {
		return curriculum.Lesson{}, curriculum.ErrParentModuleMissing
	}
	id := uuid.New().String()
	q := repo.db.Rebind(`INSERT INTO lessons (id, module_id, title, position, content, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err := repo.db.ExecContext(ctx, q,
		id, lsn.ModuleID, lsn.Title, lsn.Order, null.NewJSON(lsn.Content, len(lsn.Content) > 0),
		lsn.CreatedAt.UTC(), lsn.UpdatedAt.UTC(),
	)
	if err != nil {
		return curriculum.Lesson{}, translate(err, "inserting lesson", lessonWriteErrors)
	}
	return repo.GetLesson(ctx, id)
}

func (repo curriculumRepository) QueryLessons(
	ctx context.Context,
	filter curriculum.LessonFilter,
	page core.Page,
) ([]curriculum.Lesson, int, error) {
	var where whereClause
	if filter.ModuleID != "" {
		if !isUUID(filter.ModuleID) {
			return []curriculum.Lesson{}, 0, nil
		}
		where.add("ls.module_id = ?", filter.ModuleID)
	}
	if filter.LevelID != "" {
		if !isUUID(filter.LevelID) {
			return []curriculum.Lesson{}, 0, nil
		}
		where.add("m.level_id = ?", filter.LevelID)
	}

	var rows []lessonRow
	order := " ORDER BY l.code, m.position, ls.position"
	total, err := selectPage(ctx, repo.db, &rows, lessonFrom, where, order, page, lessonColumns)
	if err != nil {
		return nil, 0, errors.Wrap(err, "querying lessons")
	}
	lessons := make([]curriculum.Lesson, 0, len(rows))
	for _, r := range rows {
		lessons = append(lessons, r.toLesson())
	}
	return lessons, total, nil
}

func (repo curriculumRepository) GetLesson(ctx context.Context, id string) (curriculum.Lesson, error) {
	if !isUUID(id) {
		return curriculum.Lesson{}, curriculum.ErrLessonNotFound
	}
	var row lessonRow
	q := repo.db.Rebind(`SELECT ` + lessonColumns + ` FROM ` + lessonFrom + ` WHERE ls.id = ?`)
	if err := repo.db.GetContext(ctx, &row, q, id); err != nil {
		return curriculum.Lesson{}, trapNoRowsErr(err, curriculum.ErrLessonNotFound, "finding lesson")
	}
	return row.toLesson(), nil
}

func (repo curriculumRepository) UpdateLesson(ctx context.Context, lsn curriculum.Lesson) (curriculum.Lesson, error) {
	q := repo.db.Rebind(`UPDATE lessons SET title = ?, position = ?, content = ?, updated_at = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		lsn.Title, lsn.Order, null.NewJSON(lsn.Content, len(lsn.Content) > 0), lsn.UpdatedAt.UTC(), lsn.ID,
	)
	if err != nil {
		return curriculum.Lesson{}, translate(err, "updating lesson", lessonWriteErrors)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return curriculum.Lesson{}, curriculum.ErrLessonNotFound
	}
	return repo.GetLesson(ctx, lsn.ID)
}

func (repo curriculumRepository) DeleteLesson(ctx context.Context, id string) error {
	return repo.delete(ctx, "lessons", id, curriculum.ErrLessonNotFound, lessonDeleteErrors)
}
