package frame

import "github.com/tinytelemetry/lookout/internal/model"

// ring keeps the most recent records up to its capacity.
type ring struct {
	buf  []*model.LogRecord
	next int
	full bool
}

func newRing(size int) *ring {
	if size <= 0 {
		size = model.DefaultViewBuffer
	}
	return &ring{buf: make([]*model.LogRecord, size)}
}

func (r *ring) push(rec *model.LogRecord) {
	r.buf[r.next] = rec
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
}

// items returns the records oldest first.
func (r *ring) items() []*model.LogRecord {
	if !r.full {
		return append([]*model.LogRecord(nil), r.buf[:r.next]...)
	}
	out := make([]*model.LogRecord, 0, len(r.buf))
	out = append(out, r.buf[r.next:]...)
	return append(out, r.buf[:r.next]...)
}
