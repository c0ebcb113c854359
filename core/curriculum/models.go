package curriculum

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
)

type (
	Level struct {
		ID        string          `json:"id"`
		Code      string          `json:"code"`
		Name      string          `json:"name"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
		Modules   []ModuleSummary `json:"modules"`
	}

	Module struct {
		ID        string          `json:"id"`
		LevelID   string          `json:"level_id"`
		Slug      string          `json:"slug"`
		Title     string          `json:"title"`
		Order     int             `json:"order"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
		Level     *LevelRef       `json:"level,omitempty"`
		Lessons   []LessonSummary `json:"lessons,omitempty"`
	}

	// Lesson content is opaque JSON. It is stored and returned verbatim, never interpreted.
	Lesson struct {
		ID        string          `json:"id"`
		ModuleID  string          `json:"module_id"`
		Title     string          `json:"title"`
		Order     int             `json:"order"`
		Content   json.RawMessage `json:"content"`
		CreatedAt time.Time       `json:"created_at"`
		UpdatedAt time.Time       `json:"updated_at"`
		Module    *ModuleRef      `json:"module,omitempty"`
	}

	LevelRef struct {
		ID   string `json:"id"`
		Code string `json:"code"`
		Name string `json:"name"`
	}

	ModuleRef struct {
		ID    string    `json:"id"`
		Slug  string    `json:"slug"`
		Title string    `json:"title"`
		Level *LevelRef `json:"level,omitempty"`
	}

	// LessonRef is the lesson context attached to progress rows.
	LessonRef struct {
		ID     string     `json:"id"`
		Title  string     `json:"title"`
		Order  int        `json:"order"`
		Module *ModuleRef `json:"module,omitempty"`
	}

	ModuleSummary struct {
		ID    string `json:"id"`
		Slug  string `json:"slug"`
		Title string `json:"title"`
		Order int    `json:"order"`
	}

	LessonSummary struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Order int    `json:"order"`
	}
)

func (l Level) Ref() *LevelRef {
	return &LevelRef{ID: l.ID, Code: l.Code, Name: l.Name}
}

// NewLevel contains information needed to create a new Level.
type NewLevel struct {
	Code string `json:"code" validate:"required,max=20"`
	Name string `json:"name" validate:"required,max=100"`
}

func (nl *NewLevel) Validate(validate *validator.Validate) error {
	nl.Code = core.CleanString(nl.Code)
	nl.Name = core.CleanString(nl.Name)
	return validate.Struct(nl)
}

type UpdateLevel struct {
	Code *string `json:"code" validate:"omitempty,notblank,max=20"`
	Name *string `json:"name" validate:"omitempty,notblank,max=100"`
}

func (ul *UpdateLevel) Validate(validate *validator.Validate) error {
	cleanPtr(ul.Code)
	cleanPtr(ul.Name)
	return validate.Struct(ul)
}

// NewModule contains information needed to create a new Module.
type NewModule struct {
	LevelID string `json:"level_id" validate:"required,uuid"`
	Slug    string `json:"slug" validate:"required,max=100,slug"`
	Title   string `json:"title" validate:"required,max=200"`
	Order   int    `json:"order" validate:"required,min=1"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.LevelID = core.CleanString(nm.LevelID, true /* lower */)
	nm.Slug = core.CleanString(nm.Slug, true /* lower */)
	nm.Title = core.CleanString(nm.Title)
	return validate.Struct(nm)
}

type UpdateModule struct {
	Slug  *string `json:"slug" validate:"omitempty,max=100,slug"`
	Title *string `json:"title" validate:"omitempty,notblank,max=200"`
	Order *int    `json:"order" validate:"omitempty,min=1"`
}

func (um *UpdateModule) Validate(validate *validator.Validate) error {
	if um.Slug != nil {
		s := core.CleanString(*um.Slug, true /* lower */)
		um.Slug = &s
	}
	cleanPtr(um.Title)
	return validate.Struct(um)
}

// NewLesson contains information needed to create a new Lesson.
type NewLesson struct {
	ModuleID string          `json:"module_id" validate:"required,uuid"`
	Title    string          `json:"title" validate:"required,max=200"`
	Order    int             `json:"order" validate:"required,min=1"`
	Content  json.RawMessage `json:"content"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.ModuleID = core.CleanString(nl.ModuleID, true /* lower */)
	nl.Title = core.CleanString(nl.Title)
	nl.Content = normalizeContent(nl.Content)
	return validate.Struct(nl)
}

type UpdateLesson struct {
	Title   *string         `json:"title" validate:"omitempty,notblank,max=200"`
	Order   *int            `json:"order" validate:"omitempty,min=1"`
	Content json.RawMessage `json:"content"`
}

func (ul *UpdateLesson) Validate(validate *validator.Validate) error {
	cleanPtr(ul.Title)
	return validate.Struct(ul)
}

type ModuleFilter struct {
	LevelID string
}

type LessonFilter struct {
	ModuleID string
	LevelID  string
}

func cleanPtr(s *string) {
	if s != nil {
		*s = core.CleanString(*s)
	}
}

// normalizeContent maps an absent or JSON null content to nil.
func normalizeContent(c json.RawMessage) json.RawMessage {
	if len(c) == 0 || string(c) == "null" {
		return nil
	}
	return c
}
