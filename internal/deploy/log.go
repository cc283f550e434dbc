package deploy

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Level classifies a run log entry.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one timestamped, leveled line captured during an orchestration run.
type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

// RunLog is the append-only log owned by one orchestration run. It is reset
// at run start and never persisted.
type RunLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewRunLog creates an empty run log.
func NewRunLog() *RunLog {
	return &RunLog{}
}

func (l *RunLog) append(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, Entry{
		Time:    time.Now(),
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	})
}

// Infof appends an info-level entry.
func (l *RunLog) Infof(format string, args ...interface{}) {
	l.append(LevelInfo, format, args...)
}

// Warnf appends a warn-level entry.
func (l *RunLog) Warnf(format string, args ...interface{}) {
	l.append(LevelWarn, format, args...)
}

// Errorf appends an error-level entry.
func (l *RunLog) Errorf(format string, args ...interface{}) {
	l.append(LevelError, format, args...)
}

// Reset discards all entries.
func (l *RunLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Entries returns a copy of the captured entries in order.
func (l *RunLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Transcript renders the log as plain text, de-duplicated by exact
// (level, message) pair. Entries with the same message but different levels
// render as separate lines.
func (l *RunLog) Transcript() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(l.entries))
	var sb strings.Builder
	for _, e := range l.entries {
		dedup := string(e.Level) + "\x00" + e.Message
		if seen[dedup] {
			continue
		}
		seen[dedup] = true
		sb.WriteString(fmt.Sprintf("[%s] %s %s\n", e.Level, e.Time.Format("15:04:05"), e.Message))
	}
	return strings.TrimRight(sb.String(), "\n")
}
