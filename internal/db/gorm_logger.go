package db

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/arencloud/s3lister/internal/logging"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlLogger routes gorm output through logging.Logger as structured fields.
type sqlLogger struct {
	l     logging.Logger
	level gormlogger.LogLevel
}

func newGormLogger(l logging.Logger, lvl gormlogger.LogLevel) *sqlLogger {
	return &sqlLogger{l: l, level: lvl}
}

func (g *sqlLogger) LogMode(l gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = l
	return &cp
}

func (g *sqlLogger) Info(_ context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Info {
		g.l.Info("gorm", "msg", msg, "args", data)
	}
}

func (g *sqlLogger) Warn(_ context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.l.Error("gorm_warn", "msg", msg, "args", data)
	}
}

func (g *sqlLogger) Error(_ context.Context, msg string, data ...interface{}) {
	if g.level >= gormlogger.Error {
		g.l.Error("gorm_error", "msg", msg, "args", data)
	}
}

// Trace logs a statement summary (operation, table, rows, duration). Raw SQL
// and bind values are never logged.
func (g *sqlLogger) Trace(_ context.Context, begin time.Time, fc func() (sql string, rowsAffected int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}
	sql, rows := fc()
	op, table := summarizeSQL(sql)
	fields := []any{"op", op, "table", table, "rows", rows, "durationMs", float64(time.Since(begin)) / 1e6, "caller", callerFileLine()}
	switch {
	case err != nil && errors.Is(err, gorm.ErrRecordNotFound):
		if g.level >= gormlogger.Info {
			g.l.Debug("gorm_sql", append(fields, "notFound", true)...)
		}
	case err != nil:
		if g.level >= gormlogger.Error {
			g.l.Error("gorm_sql", append(fields, "error", err.Error())...)
		}
	case g.level >= gormlogger.Info:
		g.l.Debug("gorm_sql", fields...)
	}
}

// callerFileLine returns the first caller outside gorm.
func callerFileLine() string {
	for i := 2; i < 12; i++ {
		_, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}
		if !strings.Contains(file, "gorm.io") {
			return file + ":" + strconv.Itoa(line)
		}
	}
	return ""
}

// summarizeSQL returns the statement verb and target table, e.g.
// ("INSERT", "trace_rows"), without any parameters.
func summarizeSQL(sql string) (op string, table string) {
	words := strings.Fields(strings.ToUpper(sql))
	if len(words) == 0 {
		return "", ""
	}
	op = words[0]
	var rest []string
	switch {
	case op == "UPDATE":
		rest = words[1:]
	case op == "INSERT" && len(words) > 2 && words[1] == "INTO":
		rest = words[2:]
	case op == "DELETE" && len(words) > 2 && words[1] == "FROM":
		rest = words[2:]
	default:
		for i, w := range words {
			if w == "FROM" || w == "INTO" {
				rest = words[i+1:]
				break
			}
		}
	}
	if len(rest) > 0 {
		table = strings.Trim(rest[0], "`\"")
	}
	return op, strings.ToLower(table)
}
