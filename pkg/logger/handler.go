package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	componentAttrID = "component"
	requestAttrID   = "request_id"
	chatAttrID      = "chat_id"
	categoryAttrID  = "category"
)

// LogEntry is one line of JSON log output. Request, chat and category
// attributes are lifted to the top level so a single conversation can be
// followed with one filter.
type LogEntry struct {
	Level     string         `json:"level"`
	Timestamp string         `json:"timestamp"`
	Component string         `json:"component,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	ChatID    string         `json:"chat_id,omitempty"`
	Category  string         `json:"category,omitempty"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`
	Caller    string         `json:"caller,omitempty"`
}

// promote stores a top-level attribute on the entry. Only string values
// qualify.
func (e *LogEntry) promote(key string, value slog.Value) bool {
	if value.Kind() != slog.KindString {
		return false
	}

	var target *string
	switch key {
	case componentAttrID:
		target = &e.Component
	case requestAttrID:
		target = &e.RequestID
	case chatAttrID:
		target = &e.ChatID
	case categoryAttrID:
		target = &e.Category
	default:
		return false
	}

	*target = value.String()
	return true
}

// entryHandler writes one LogEntry per record.
type entryHandler struct {
	level     slog.Level
	addSource bool
	writer    io.Writer
	attrs     []slog.Attr
	groups    []string
	mu        *sync.Mutex
}

func (h *entryHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *entryHandler) Handle(_ context.Context, record slog.Record) error {
	line, err := json.Marshal(h.entry(record))
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(append(line, '\n'))
	return err
}

func (h *entryHandler) entry(record slog.Record) LogEntry {
	at := record.Time
	if at.IsZero() {
		at = time.Now()
	}

	entry := LogEntry{
		Level:     strings.ToLower(record.Level.String()),
		Timestamp: at.UTC().Format(time.RFC3339Nano),
		Message:   record.Message,
	}

	fields := make(map[string]any)
	add := func(attr slog.Attr) bool {
		h.addAttr(&entry, fields, attr)
		return true
	}
	for _, attr := range h.attrs {
		add(attr)
	}
	record.Attrs(add)

	if len(fields) > 0 {
		entry.Fields = fields
	}
	if h.addSource {
		entry.Caller = caller(record.PC)
	}

	return entry
}

func (h *entryHandler) addAttr(entry *LogEntry, fields map[string]any, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return
	}

	if len(h.groups) == 0 {
		if entry.promote(attr.Key, attr.Value) {
			return
		}
		fields[attr.Key] = attrValue(attr.Value)
		return
	}

	fields[strings.Join(append(slices.Clone(h.groups), attr.Key), ".")] = attrValue(attr.Value)
}

func (h *entryHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}

	next := *h
	next.attrs = append(slices.Clone(h.attrs), attrs...)
	return &next
}

func (h *entryHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	next := *h
	next.groups = append(slices.Clone(h.groups), name)
	return &next
}

func attrValue(value slog.Value) any {
	switch value.Kind() {
	case slog.KindDuration:
		return value.Duration().String()
	case slog.KindTime:
		return value.Time().UTC().Format(time.RFC3339Nano)
	case slog.KindGroup:
		group := value.Group()
		nested := make(map[string]any, len(group))
		for _, item := range group {
			nested[item.Key] = attrValue(item.Value.Resolve())
		}
		return nested
	default:
		return value.Any()
	}
}

func caller(pc uintptr) string {
	if pc == 0 {
		return ""
	}

	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.File == "" {
		return ""
	}

	return fmt.Sprintf("%s:%d", filepath.Base(frame.File), frame.Line)
}
