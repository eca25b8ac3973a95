package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/arencloud/s3lister/internal/logging"
	"github.com/arencloud/s3lister/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a trace id is unknown.
var ErrNotFound = errors.New("not found")

// Store persists request traces so they survive restarts.
type Store struct {
	db     *gorm.DB
	logger logging.Logger
}

func gormLevel() gormlogger.LogLevel {
	switch strings.ToLower(logging.GetLevel()) {
	case "debug":
		return gormlogger.Info // log SQL traces at debug level
	case "error", "dpanic", "panic", "fatal":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}

// Open connects to PostgreSQL and migrates the trace tables.
func Open(dsn string, logger logging.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("db: empty DSN")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: newGormLogger(logger, gormLevel())})
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := gdb.AutoMigrate(&models.TraceRow{}, &models.TraceEventRow{}); err != nil {
		return nil, fmt.Errorf("db migrate: %w", err)
	}
	logger.Info("db connect", "driver", "postgres")
	return New(gdb, logger), nil
}

func New(gdb *gorm.DB, logger logging.Logger) *Store { return &Store{db: gdb, logger: logger} }

// TraceEvent is a single named event with free-form fields.
type TraceEvent struct {
	Row    models.TraceEventRow
	Fields map[string]any
}

// SaveTrace writes the trace row and its events in one transaction; either
// all of them are stored or none.
func (s *Store) SaveTrace(ctx context.Context, row models.TraceRow, events []TraceEvent) error {
	rows := make([]models.TraceEventRow, 0, len(events))
	for _, ev := range events {
		er := ev.Row
		er.TraceID = row.ID
		if ev.Fields != nil {
			b, err := json.Marshal(ev.Fields)
			if err != nil {
				return fmt.Errorf("encode trace event %s/%s: %w", row.ID, er.Name, err)
			}
			er.Fields = string(b)
		}
		rows = append(rows, er)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("save trace %s: %w", row.ID, err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("save trace events %s: %w", row.ID, err)
		}
		return nil
	})
}

// RecentTraces returns up to limit traces, newest first.
func (s *Store) RecentTraces(ctx context.Context, limit int) ([]models.TraceRow, error) {
	var rows []models.TraceRow
	if err := s.db.WithContext(ctx).Order("started desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTrace loads one trace with its events in time order.
func (s *Store) GetTrace(ctx context.Context, id string) (models.TraceRow, []TraceEvent, error) {
	var tr models.TraceRow
	if err := s.db.WithContext(ctx).First(&tr, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tr, nil, ErrNotFound
		}
		return tr, nil, err
	}
	var evs []models.TraceEventRow
	if err := s.db.WithContext(ctx).Where("trace_id = ?", id).Order("time asc").Find(&evs).Error; err != nil {
		return tr, nil, err
	}
	out := make([]TraceEvent, 0, len(evs))
	for _, e := range evs {
		var f map[string]any
		if e.Fields != "" {
			if err := json.Unmarshal([]byte(e.Fields), &f); err != nil {
				s.logger.Error("decode trace event fields", "traceId", id, "event", e.Name, "error", err)
				f = map[string]any{"raw": e.Fields}
			}
		}
		out = append(out, TraceEvent{Row: e, Fields: f})
	}
	return tr, out, nil
}
