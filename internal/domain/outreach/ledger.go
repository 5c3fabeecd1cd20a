// internal/domain/outreach/ledger.go
package outreach

import (
	"sort"
	"time"
)

// LedgerEntry is one recorded message for a student's course.
type LedgerEntry struct {
	StudentID string
	CourseID  string
	Code      MessageCode
	SentOn    time.Time
}

// SentLedger is the set of codes already recorded for one student and course.
type SentLedger struct {
	codes map[MessageCode]struct{}
}

func NewSentLedger(codes ...MessageCode) SentLedger {
	l := SentLedger{codes: make(map[MessageCode]struct{}, len(codes))}
	for _, c := range codes {
		l.codes[c] = struct{}{}
	}
	return l
}

// LedgerFromEntries keeps only the codes of the given entries.
func LedgerFromEntries(entries []LedgerEntry) SentLedger {
	codes := make([]MessageCode, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, e.Code)
	}
	return NewSentLedger(codes...)
}

func (l SentLedger) Has(code MessageCode) bool {
	_, ok := l.codes[code]
	return ok
}

// HasNone is true when none of the given codes has been recorded.
func (l SentLedger) HasNone(codes ...MessageCode) bool {
	for _, c := range codes {
		if l.Has(c) {
			return false
		}
	}
	return true
}

func (l SentLedger) Len() int { return len(l.codes) }

// Codes returns the recorded codes in sorted order.
func (l SentLedger) Codes() []MessageCode {
	out := make([]MessageCode, 0, len(l.codes))
	for c := range l.codes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
