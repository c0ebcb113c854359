package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/access"
	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core/user"
)

func newTestLogger() (*RollbarLogger, *observer.ObservedLogs) {
	obs, logs := observer.New(zapcore.DebugLevel)
	l := NewRollbarLogger(zap.New(obs).Sugar(), &core.Config{Env: "TEST", TestMode: true})
	l.Enable(false)
	return l, logs
}

func TestRollbarLogger(t *testing.T) {
	l, logs := newTestLogger()
	usr := user.User{ID: "u1", Username: "johndoe", Role: access.RoleTeacher}

	l.Error("saving class", errors.New("boom"), map[string]interface{}{"class": "c1"}, usr, user.User{Username: "ignored"})
	l.Info("started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "saving class", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "boom", fields["error"])
	assert.Equal(t, "c1", fields["class"])
	assert.Equal(t, "johndoe", fields["user"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].ContextMap())
}
