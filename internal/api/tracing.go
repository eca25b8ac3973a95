package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/arencloud/s3lister/internal/db"
	"github.com/arencloud/s3lister/internal/logging"
	"github.com/arencloud/s3lister/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Lightweight request tracing: each request gets a Trace with Events, kept in
// a ring buffer and optionally persisted through a TraceStore. Trace ids are
// generated here and never taken from the client; X-Request-ID stays a
// correlation id only.

type TraceEvent struct {
	Time   time.Time      `json:"time"`
	Name   string         `json:"name"`
	Fields map[string]any `json:"fields,omitempty"`
}

type Trace struct {
	ID        string        `json:"id"`
	Method    string        `json:"method"`
	Path      string        `json:"path"`
	Status    int           `json:"status"`
	UserAgent string        `json:"userAgent,omitempty"`
	RemoteIP  string        `json:"remoteIp,omitempty"`
	ReqBytes  int64         `json:"reqBytes,omitempty"`
	RespBytes int64         `json:"respBytes,omitempty"`
	Started   time.Time     `json:"started"`
	Ended     time.Time     `json:"ended"`
	Duration  time.Duration `json:"duration"`
	Events    []TraceEvent  `json:"events"`
}

// TraceStore is durable trace storage; *db.Store implements it.
type TraceStore interface {
	SaveTrace(ctx context.Context, row models.TraceRow, events []db.TraceEvent) error
	RecentTraces(ctx context.Context, limit int) ([]models.TraceRow, error)
	GetTrace(ctx context.Context, id string) (models.TraceRow, []db.TraceEvent, error)
}

type traceRing struct {
	mu   sync.RWMutex
	buf  []*Trace
	next int
}

func newTraceRing(size int) *traceRing {
	if size <= 0 {
		size = 1000
	}
	return &traceRing{buf: make([]*Trace, size)}
}

func (s *traceRing) add(t *Trace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf[s.next] = t
	s.next = (s.next + 1) % len(s.buf)
}

// all walks the ring newest-first.
func (s *traceRing) all(limit int) []*Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size := len(s.buf)
	if limit <= 0 || limit > size {
		limit = size
	}
	out := make([]*Trace, 0, limit)
	idx := (s.next - 1 + size) % size
	for i := 0; i < size && len(out) < limit; i++ {
		if s.buf[idx] != nil {
			out = append(out, s.buf[idx])
		}
		idx = (idx - 1 + size) % size
	}
	return out
}

// get returns the newest trace with id.
func (s *traceRing) get(id string) *Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	size := len(s.buf)
	idx := (s.next - 1 + size) % size
	for i := 0; i < size; i++ {
		if t := s.buf[idx]; t != nil && t.ID == id {
			return t
		}
		idx = (idx - 1 + size) % size
	}
	return nil
}

type tracer struct {
	ring   *traceRing
	store  TraceStore // nil when persistence is disabled
	logger logging.Logger
}

const (
	traceKey    = "trace"
	traceHeader = "X-Trace-Id"
)

func newTraceID() string { return uuid.NewString() }

func (tr *tracer) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		t := &Trace{
			ID:        newTraceID(),
			Method:    c.Request.Method,
			Path:      c.Request.URL.Path,
			UserAgent: c.Request.UserAgent(),
			RemoteIP:  c.ClientIP(),
			Started:   time.Now(),
			Events:    []TraceEvent{},
		}
		if c.Request.ContentLength > 0 {
			t.ReqBytes = c.Request.ContentLength
		}
		c.Set(traceKey, t)
		c.Header(traceHeader, t.ID)
		addEvent(c, "request.start", map[string]any{"method": t.Method, "path": t.Path})
		c.Next()
		t.Status = c.Writer.Status()
		if n := c.Writer.Size(); n > 0 {
			t.RespBytes = int64(n)
		}
		t.Ended = time.Now()
		t.Duration = t.Ended.Sub(t.Started)
		addEvent(c, "request.end", map[string]any{"status": t.Status, "respBytes": t.RespBytes})
		tr.ring.add(t)
		if tr.store != nil {
			row, evs := traceToRows(t)
			if err := tr.store.SaveTrace(c.Request.Context(), row, evs); err != nil {
				tr.logger.Error("persist trace", "traceId", t.ID, "error", err)
			}
		}
	}
}

func traceFrom(c *gin.Context) *Trace {
	if v, ok := c.Get(traceKey); ok {
		if t, ok := v.(*Trace); ok {
			return t
		}
	}
	return nil
}

func addEvent(c *gin.Context, name string, fields map[string]any) {
	if t := traceFrom(c); t != nil {
		t.Events = append(t.Events, TraceEvent{Time: time.Now(), Name: name, Fields: fields})
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError records an error event into the current trace and writes a JSON error.
func respondError(c *gin.Context, status int, code, msg string) {
	addEvent(c, "error", map[string]any{"status": status, "code": code, "message": msg})
	c.AbortWithStatusJSON(status, errorBody{Error: msg, Code: code})
}

func traceToRows(t *Trace) (models.TraceRow, []db.TraceEvent) {
	row := models.TraceRow{
		ID:         t.ID,
		Method:     t.Method,
		Path:       t.Path,
		Status:     t.Status,
		UserAgent:  t.UserAgent,
		RemoteIP:   t.RemoteIP,
		ReqBytes:   t.ReqBytes,
		RespBytes:  t.RespBytes,
		Started:    t.Started,
		Ended:      t.Ended,
		DurationNs: int64(t.Duration),
	}
	evs := make([]db.TraceEvent, 0, len(t.Events))
	for _, e := range t.Events {
		evs = append(evs, db.TraceEvent{Row: models.TraceEventRow{Time: e.Time, Name: e.Name}, Fields: e.Fields})
	}
	return row, evs
}

func traceFromRow(r models.TraceRow) *Trace {
	return &Trace{ID: r.ID, Method: r.Method, Path: r.Path, Status: r.Status, UserAgent: r.UserAgent, RemoteIP: r.RemoteIP,
		ReqBytes: r.ReqBytes, RespBytes: r.RespBytes, Started: r.Started, Ended: r.Ended, Duration: time.Duration(r.DurationNs),
		Events: []TraceEvent{}}
}

// HTTP handlers for the trace API

func (tr *tracer) recent(c *gin.Context) {
	limit := 200
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(c, http.StatusBadRequest, "", "invalid limit")
			return
		}
		limit = n
	}
	if tr.store == nil {
		c.JSON(http.StatusOK, tr.ring.all(limit))
		return
	}
	rows, err := tr.store.RecentTraces(c.Request.Context(), limit)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "", err.Error())
		return
	}
	out := make([]*Trace, 0, len(rows))
	for _, r := range rows {
		out = append(out, traceFromRow(r))
	}
	c.JSON(http.StatusOK, out)
}

func (tr *tracer) get(c *gin.Context) {
	id := c.Param("id")
	if t := tr.ring.get(id); t != nil {
		c.JSON(http.StatusOK, t)
		return
	}
	if tr.store == nil {
		respondError(c, http.StatusNotFound, "", "not found")
		return
	}
	row, evs, err := tr.store.GetTrace(c.Request.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		respondError(c, http.StatusNotFound, "", "not found")
		return
	}
	if err != nil {
		respondError(c, http.StatusInternalServerError, "", err.Error())
		return
	}
	out := traceFromRow(row)
	for _, e := range evs {
		out.Events = append(out.Events, TraceEvent{Time: e.Row.Time, Name: e.Row.Name, Fields: e.Fields})
	}
	c.JSON(http.StatusOK, out)
}
