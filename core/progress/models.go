package progress

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
)

const RecentActivityLimit = 5

// Progress is the ledger row of one (student, lesson) pair.
type Progress struct {
	StudentID   string                `json:"student_id"`
	LessonID    string                `json:"lesson_id"`
	Completed   bool                  `json:"completed"`
	Score       *float64              `json:"score"`
	CompletedAt *time.Time            `json:"completed_at"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
	Lesson      *curriculum.LessonRef `json:"lesson,omitempty"`
}

// Entry is a progress write. A nil Score keeps the stored score;
// a nil CompletedAt keeps the stored completion time.
type Entry struct {
	StudentID   string
	LessonID    string
	Completed   bool
	Score       *float64
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Summary holds the ledger aggregates of one student.
type Summary struct {
	Completed    int
	InProgress   int
	AverageScore *float64 // nil when no row is scored
}

type Stats struct {
	TotalLessons         int        `json:"total_lessons"`
	CompletedLessons     int        `json:"completed_lessons"`
	InProgressLessons    int        `json:"in_progress_lessons"`
	CompletionPercentage float64    `json:"completion_percentage"`
	AverageScore         *float64   `json:"average_score"`
	RecentActivity       []Progress `json:"recent_activity"`
}

// RecordProgress is the payload of a progress submission. Score is expected within 0-100 but not enforced.
type RecordProgress struct {
	LessonID  string   `json:"lesson_id" validate:"required,uuid"`
	Completed *bool    `json:"completed"`
	Score     *float64 `json:"score"`
}

func (rp *RecordProgress) Validate(validate *validator.Validate) error {
	rp.LessonID = core.CleanString(rp.LessonID, true /* lower */)
	return validate.Struct(rp)
}

type QueryFilter struct {
	ModuleID  string
	LevelID   string
	Completed *bool
}
