package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/plunoo/biskakenauto-sub000/pkg/logger"
)

func newBufferedQueryLogger(t *testing.T, verbose bool) (gormlogger.Interface, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: logger.ParseLevel("debug"), Output: &buf})
	return newQueryLogger(logg, 100*time.Millisecond, verbose), &buf
}

func trace(l gormlogger.Interface, elapsed time.Duration, err error) {
	l.Trace(context.Background(), time.Now().Add(-elapsed), func() (string, int64) {
		return "SELECT * FROM invoices", 3
	}, err)
}

func TestQueryLoggerWarnsOnSlowAndFailedStatements(t *testing.T) {
	l, buf := newBufferedQueryLogger(t, false)

	trace(l, time.Millisecond, nil)
	if buf.Len() != 0 {
		t.Fatalf("fast statements should be quiet, got %s", buf.String())
	}

	trace(l, time.Second, nil)
	if !strings.Contains(buf.String(), "db.slow_query") || !strings.Contains(buf.String(), `"rows":3`) {
		t.Fatalf("expected slow query line, got %s", buf.String())
	}
	buf.Reset()

	trace(l, time.Millisecond, errors.New("relation does not exist"))
	if !strings.Contains(buf.String(), "db.query_failed") || !strings.Contains(buf.String(), "relation does not exist") {
		t.Fatalf("expected failed query line, got %s", buf.String())
	}
	buf.Reset()

	trace(l, time.Millisecond, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("record not found is not a failure, got %s", buf.String())
	}
}

func TestQueryLoggerVerboseAndSilent(t *testing.T) {
	l, buf := newBufferedQueryLogger(t, true)
	trace(l, time.Millisecond, nil)
	if !strings.Contains(buf.String(), `"message":"db.query"`) {
		t.Fatalf("verbose mode should log every statement, got %s", buf.String())
	}
	buf.Reset()

	trace(l.LogMode(gormlogger.Silent), time.Second, errors.New("boom"))
	if buf.Len() != 0 {
		t.Fatalf("silent mode should drop everything, got %s", buf.String())
	}

	if newQueryLogger(nil, time.Second, true) != gormlogger.Discard {
		t.Fatalf("nil logger should discard")
	}
}
