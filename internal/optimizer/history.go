package optimizer

import (
	"sync"

	"github.com/signstream/vision-pipeline/pkg/types"
)

// history is a fixed-capacity ring of performance samples. Written only
// by the optimizer loop; readers get a snapshot copy so they never lock
// against the writer for more than the copy.
type history struct {
	mu   sync.Mutex
	buf  []types.PerformanceSample
	next int
	full bool
}

func newHistory(capacity int) *history {
	if capacity < 1 {
		capacity = 1
	}
	return &history{buf: make([]types.PerformanceSample, capacity)}
}

// append stores a sample, evicting the oldest once full
func (h *history) append(sample types.PerformanceSample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.next] = sample
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// snapshot returns the stored samples, oldest first
func (h *history) snapshot() []types.PerformanceSample {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.full {
		out := make([]types.PerformanceSample, h.next)
		copy(out, h.buf[:h.next])
		return out
	}
	out := make([]types.PerformanceSample, 0, len(h.buf))
	out = append(out, h.buf[h.next:]...)
	out = append(out, h.buf[:h.next]...)
	return out
}

// len returns the number of stored samples
func (h *history) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.buf)
	}
	return h.next
}
