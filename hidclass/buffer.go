package hidclass

import "sync"

// ReportDecl declares one report an interface exchanges in a given
// direction: its report ID and its wire size in bytes. When an interface
// declares multiple reports for a direction, every payload carries the ID
// as a leading byte and the declared size includes it; an interface with a
// single undeclared-ID report uses ID 0 and omits the prefix.
type ReportDecl struct {
	ID   uint8
	Size int
}

type reportSlot struct {
	id   uint8
	size int
	full bool
	n    int
	data [MaxReportSize]byte
}

// ReportBuffer holds at most one pending report per declared report ID.
// A write replaces any unconsumed value for the same ID: this is an
// explicit at-most-one-pending, latest-value-wins cell, not a queue.
// Overwritten reports are unrecoverable, which is acceptable for HID
// reports describing current device state; consumers that care about edge
// events (a key pressed and released between polls) must poll at least as
// fast as the producer writes. See the package documentation.
//
// The mutex makes the single-producer/single-consumer split safe when the
// writer and the poll context are different goroutines; no method ever
// blocks beyond it.
type ReportBuffer struct {
	mu       sync.Mutex
	numbered bool
	slots    []reportSlot
}

// NewReportBuffer builds a buffer with one slot per declaration. The
// buffer is numbered (payloads carry a leading ID byte) when more than one
// report is declared or any declaration uses a non-zero ID.
func NewReportBuffer(decls []ReportDecl) *ReportBuffer {
	b := &ReportBuffer{}
	for _, d := range decls {
		if d.ID != 0 {
			b.numbered = true
		}
		b.slots = append(b.slots, reportSlot{id: d.ID, size: d.Size})
	}
	if len(b.slots) > 1 {
		b.numbered = true
	}
	return b
}

// Numbered reports whether payloads carry a leading report ID byte.
func (b *ReportBuffer) Numbered() bool { return b.numbered }

// Declares reports whether id names a declared report, along with its wire
// size.
func (b *ReportBuffer) Declares(id uint8) (int, bool) {
	for i := range b.slots {
		if b.slots[i].id == id {
			return b.slots[i].size, true
		}
	}
	return 0, false
}

func (b *ReportBuffer) slot(id uint8) *reportSlot {
	for i := range b.slots {
		if b.slots[i].id == id {
			return &b.slots[i]
		}
	}
	return nil
}

// payloadID extracts the report ID from a wire payload.
func (b *ReportBuffer) payloadID(report []byte) uint8 {
	if b.numbered && len(report) > 0 {
		return report[0]
	}
	return 0
}

// Write stores report, replacing any previously unconsumed value for the
// same report ID. It never blocks and never allocates. It fails only for
// undeclared IDs or payloads exceeding the declared size, both programmer
// errors in the concrete device layer.
func (b *ReportBuffer) Write(report []byte) error {
	if len(report) > MaxReportSize {
		return ErrReportTooLong
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.slot(b.payloadID(report))
	if s == nil {
		return ErrUnsupportedReportID
	}
	if s.size > 0 && len(report) > s.size {
		return ErrReportTooLong
	}
	s.n = copy(s.data[:], report)
	s.full = true
	return nil
}

// Read removes and returns the newest stored report into buf, scanning
// declared IDs in declaration order. It returns ErrWouldBlock when nothing
// is pending; it never returns a zeroed or default report.
func (b *ReportBuffer) Read(buf []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.slots {
		s := &b.slots[i]
		if s.full {
			s.full = false
			return copy(buf, s.data[:s.n]), nil
		}
	}
	return 0, ErrWouldBlock
}

// Get copies the pending report for id without consuming it. ok is false
// when the slot is empty.
func (b *ReportBuffer) Get(id uint8, buf []byte) (n int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.slot(id)
	if s == nil || !s.full {
		return 0, false
	}
	return copy(buf, s.data[:s.n]), true
}

// Holds reports whether a report for id is pending.
func (b *ReportBuffer) Holds(id uint8) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.slot(id)
	return s != nil && s.full
}

// Take removes and returns the pending report for id.
func (b *ReportBuffer) Take(id uint8, buf []byte) (n int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.slot(id)
	if s == nil || !s.full {
		return 0, false
	}
	s.full = false
	return copy(buf, s.data[:s.n]), true
}

// Pending returns the ID of the first slot holding an unconsumed report.
func (b *ReportBuffer) Pending() (uint8, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.slots {
		if b.slots[i].full {
			return b.slots[i].id, true
		}
	}
	return 0, false
}

// Clear discards all pending reports.
func (b *ReportBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.slots {
		b.slots[i].full = false
	}
}
