package contracts

import (
	"fmt"
	"sync"

	"github.com/wonny/shorttracker/pkg/logger"
)

// WarningKind classifies a non-fatal anomaly
type WarningKind string

const (
	WarnResolution WarningKind = "resolution" // ambiguous or missing isin -> ticker
	WarnDataGap    WarningKind = "data_gap"   // missing market data for a security
	WarnConflict   WarningKind = "conflict"   // duplicate disclosures with different values
	WarnInvalidRow WarningKind = "invalid_row"
)

// Warning is one degraded case recorded for audit
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Subject string      `json:"subject"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.Subject, w.Message)
}

// Warnings logs and collects non-fatal anomalies of a run
// ⭐ SSOT: 경고는 로그와 감사 목록에 동시에 기록
type Warnings struct {
	mu     sync.Mutex
	logger *logger.Logger
	items  []Warning
}

// NewWarnings creates a collector that also logs every entry
func NewWarnings(log *logger.Logger) *Warnings {
	if log == nil {
		log = logger.Nop()
	}
	return &Warnings{logger: log}
}

// Add records a warning. Safe on a nil receiver, which only discards.
func (w *Warnings) Add(kind WarningKind, subject, format string, args ...interface{}) {
	if w == nil {
		return
	}
	item := Warning{Kind: kind, Subject: subject, Message: fmt.Sprintf(format, args...)}

	w.mu.Lock()
	w.items = append(w.items, item)
	w.mu.Unlock()

	w.logger.WithFields(map[string]interface{}{
		"kind":    string(kind),
		"subject": subject,
	}).Warn(item.Message)
}

// List returns a copy of the recorded warnings in insertion order
func (w *Warnings) List() []Warning {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Warning, len(w.items))
	copy(out, w.items)
	return out
}

// Count returns the number of warnings of the given kind
func (w *Warnings) Count(kind WarningKind) int {
	n := 0
	for _, item := range w.List() {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// Len returns the total number of warnings
func (w *Warnings) Len() int {
	return len(w.List())
}
