package models

import "time"

// Persistent observability models

type TraceRow struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	UserAgent  string    `json:"userAgent"`
	RemoteIP   string    `json:"remoteIp"`
	ReqBytes   int64     `json:"reqBytes"`
	RespBytes  int64     `json:"respBytes"`
	Started    time.Time `gorm:"index" json:"started"`
	Ended      time.Time `json:"ended"`
	DurationNs int64     `json:"durationNs"`
}

type TraceEventRow struct {
	ID      uint      `gorm:"primaryKey" json:"id"`
	TraceID string    `gorm:"index" json:"traceId"`
	Time    time.Time `json:"time"`
	Name    string    `json:"name"`
	Fields  string    `json:"fields"` // JSON string of fields
}
