// Package inmemdb implements the repositories in memory. It enforces the same uniqueness and
// referential rules as the SQL schema and backs the tests and database-less dev runs.
package inmemdb

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/progress"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/report"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

type (
	DB struct {
		mutex sync.RWMutex

		users       map[string]user.User
		levels      map[string]curriculum.Level
		modules     map[string]curriculum.Module
		lessons     map[string]curriculum.Lesson
		classes     map[string]class.Class
		enrollments map[string]class.Enrollment // by student ID
		progress    map[progressKey]progress.Progress
		reports     []report.Report // in creation order
	}

	progressKey struct {
		studentID string
		lessonID  string
	}
)

func Open() *DB {
	db := &DB{}
	db.reset()
	return db
}

func (db *DB) reset() {
	db.users = make(map[string]user.User)
	db.levels = make(map[string]curriculum.Level)
	db.modules = make(map[string]curriculum.Module)
	db.lessons = make(map[string]curriculum.Lesson)
	db.classes = make(map[string]class.Class)
	db.enrollments = make(map[string]class.Enrollment)
	db.progress = make(map[progressKey]progress.Progress)
	db.reports = nil
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.reset()
}

func compareValues(a, b interface{}) int {
	switch x := a.(type) {
	case string:
		return strings.Compare(x, b.(string))
	case int:
		y := b.(int)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case bool:
		y := b.(bool)
		if x != y {
			if !x {
				return -1
			}
			return 1
		}
	case time.Time:
		y := b.(time.Time)
		switch {
		case x.Before(y):
			return -1
		case x.After(y):
			return 1
		}
	}
	return 0
}

// sortByOrdering stably sorts rows on the orderings whose field is known to value.
func sortByOrdering[T any](rows []T, ordering []core.DBOrdering, value func(row T, field string) interface{}) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, ord := range ordering {
			a, b := value(rows[i], ord.Field), value(rows[j], ord.Field)
			if a == nil || b == nil {
				continue
			}
			if c := compareValues(a, b); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return false
	})
}

func paginate[T any](rows []T, page core.Page) []T {
	start, end := page.Window(len(rows))
	return rows[start:end]
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
