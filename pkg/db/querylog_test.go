package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/gamehub/gamehub-backend/pkg/logger"
)

func newBufferedLogger(buf *bytes.Buffer) *logger.Logger {
	return logger.New(logger.Options{ServiceName: "db-test", Output: buf, Level: zerolog.DebugLevel, Format: logger.FormatJSON})
}

func TestQueryLoggerTrace(t *testing.T) {
	ctx := context.Background()
	query := func() (string, int64) { return "SELECT 1", 1 }

	tests := []struct {
		name  string
		took  time.Duration
		err   error
		wants string
	}{
		{name: "fast ok", took: 0},
		{name: "not found", err: gorm.ErrRecordNotFound},
		{name: "slow", took: time.Second, wants: "db.slow_query"},
		{name: "failed", err: errors.New("boom"), wants: "db.query_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			ql := newQueryLogger(newBufferedLogger(&buf), 100*time.Millisecond)
			ql.Trace(ctx, time.Now().Add(-tt.took), query, tt.err)
			if tt.wants == "" {
				require.Empty(t, buf.String())
				return
			}
			require.Contains(t, buf.String(), tt.wants)
			require.Contains(t, buf.String(), `"sql":"SELECT 1"`)
		})
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	var buf bytes.Buffer
	ql := newQueryLogger(newBufferedLogger(&buf), time.Millisecond).LogMode(gormlogger.Silent)
	ql.Trace(context.Background(), time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 0 }, errors.New("boom"))
	require.Empty(t, buf.String())
}

func TestQueryLoggerNilLogger(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
