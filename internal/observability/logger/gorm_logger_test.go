package logger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestOperationFromSQL(t *testing.T) {
	cases := []struct{ sql, want string }{
		{"SELECT * FROM users", "SELECT"},
		{"  insert into webhook_events (id) values (1)", "INSERT"},
		{"WITH x AS (SELECT 1) UPDATE users SET a = 1", "SELECT"},
		{"", "UNKNOWN"},
		{"VACUUM", "UNKNOWN"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, operationFromSQL(tc.sql), tc.sql)
	}
}

func TestGormLoggerDropsBoundParams(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())
	sql, params := l.ParamsFilter(context.Background(), "SELECT * FROM users WHERE email = ?", "a@b.com")
	assert.Equal(t, "SELECT * FROM users WHERE email = ?", sql)
	assert.Nil(t, params)
}

func TestGormLoggerIgnoresRecordNotFound(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cfg := DefaultGormLoggerConfig()
	cfg.Base = zap.New(core)
	l := NewGormLogger(cfg)

	l.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT * FROM users", 0
	}, gormlogger.ErrRecordNotFound)
	assert.Equal(t, 0, logs.Len())

	l.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) {
		return "SELECT * FROM users", 1
	}, nil)
	if assert.Equal(t, 1, logs.Len()) {
		assert.Equal(t, "db.query", logs.All()[0].Message)
	}
}
