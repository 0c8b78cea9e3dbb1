// Package health tracks coarse component status for the ops endpoint.
package health

import (
	"sync"
	"time"
)

type StatusCode int32

const (
	StatusDown    StatusCode = -1
	StatusUnknown StatusCode = 0
	StatusUp      StatusCode = 1
)

func (sc StatusCode) String() string {
	switch sc {
	case StatusDown:
		return "down"
	case StatusUp:
		return "up"
	default:
		return "unknown"
	}
}

type Summary struct {
	Name   string     `json:"name"`
	Code   StatusCode `json:"code"`
	Status string     `json:"status"`
	Detail string     `json:"detail,omitempty"`
	At     time.Time  `json:"at"`
}

// Reporter is one component's status slot.
type Reporter struct {
	rw     sync.RWMutex
	name   string
	code   StatusCode
	detail string
	at     time.Time
}

func NewReporter(name string) *Reporter {
	return &Reporter{name: name}
}

func (r *Reporter) ReportStatus(detail string, code StatusCode) {
	r.rw.Lock()
	r.code = code
	r.detail = detail
	r.at = time.Now()
	r.rw.Unlock()
}

func (r *Reporter) Summary() Summary {
	r.rw.RLock()
	defer r.rw.RUnlock()
	return Summary{
		Name:   r.name,
		Code:   r.code,
		Status: r.code.String(),
		Detail: r.detail,
		At:     r.at,
	}
}

// Board aggregates reporters for the ops endpoint.
type Board struct {
	rw        sync.RWMutex
	reporters []*Reporter
}

func NewBoard() *Board {
	return &Board{}
}

func (b *Board) Reporter(name string) *Reporter {
	r := NewReporter(name)
	b.rw.Lock()
	b.reporters = append(b.reporters, r)
	b.rw.Unlock()
	return r
}

func (b *Board) Summaries() []Summary {
	b.rw.RLock()
	defer b.rw.RUnlock()
	out := make([]Summary, 0, len(b.reporters))
	for _, r := range b.reporters {
		out = append(out, r.Summary())
	}
	return out
}

// Up reports whether every registered component is up.
func (b *Board) Up() bool {
	for _, s := range b.Summaries() {
		if s.Code < StatusUp {
			return false
		}
	}
	return true
}
