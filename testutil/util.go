// Package testutil holds fixtures shared by the service, storage and API tests.
package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/class"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/curriculum"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

// TestConfig returns the configuration used by the tests.
func TestConfig() *core.Config {
	return &core.Config{
		Env:                       "TEST",
		TestMode:                  true,
		AppName:                   "English Kids",
		SecretKey:                 "test-secret-key",
		FrontendBaseURL:           "http://localhost:5173",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			AllowOrigins:              []string{"*"},
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, email, pwd string,
	role access.Role,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Username:  uname,
		Email:     email,
		FirstName: uname,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateLevel(t *testing.T, repo curriculum.Repository, code, name string) curriculum.Level {
	now := time.Now().UTC()
	lvl, err := repo.CreateLevel(context.Background(), curriculum.Level{Code: code, Name: name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("CreateLevel() failed: %v", err)
	}
	return lvl
}

func CreateModule(t *testing.T, repo curriculum.Repository, levelID, slug string, order int) curriculum.Module {
	now := time.Now().UTC()
	mod, err := repo.CreateModule(context.Background(), curriculum.Module{
		LevelID:   levelID,
		Slug:      slug,
		Title:     slug,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateModule() failed: %v", err)
	}
	return mod
}

func CreateLesson(t *testing.T, repo curriculum.Repository, moduleID, title string, order int, content ...json.RawMessage) curriculum.Lesson {
	now := time.Now().UTC()
	lsn := curriculum.Lesson{
		ModuleID:  moduleID,
		Title:     title,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if len(content) > 0 {
		lsn.Content = content[0]
	}
	lsn, err := repo.CreateLesson(context.Background(), lsn)
	if err != nil {
		t.Fatalf("CreateLesson() failed: %v", err)
	}
	return lsn
}

func CreateClass(t *testing.T, repo class.Repository, code, teacherID string, studentIDs ...string) class.Class {
	now := time.Now().UTC()
	c, err := repo.CreateClass(context.Background(), class.Class{
		Code:      code,
		Name:      "Class " + code,
		TeacherID: teacherID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	for _, id := range studentIDs {
		if _, err = repo.Enroll(context.Background(), c.ID, id); err != nil {
			t.Fatalf("CreateClass() failed to enroll %s: %v", id, err)
		}
	}
	if len(studentIDs) > 0 {
		if c, err = repo.GetClass(context.Background(), c.ID); err != nil {
			t.Fatalf("CreateClass() failed: %v", err)
		}
	}
	return c
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

// NewValidator returns a validator with every custom validation and its english translations registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator("en")

	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}
