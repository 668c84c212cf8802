package agent

import (
	"strings"
	"time"
)

const defaultFlushInterval = 180 * time.Millisecond

// textCoalescer buffers text_delta fragments so the item log mutates at most
// once per flush interval instead of once per fragment. Append arms a flush;
// arming again before the flush fires is a no-op. Drain is the synchronous
// variant used on terminal events: it disarms the pending flush first.
type textCoalescer struct {
	buf         strings.Builder
	armed       bool
	minInterval time.Duration
	lastFlush   time.Time
}

func newTextCoalescer(minInterval time.Duration) *textCoalescer {
	if minInterval < 0 {
		minInterval = 0
	}
	return &textCoalescer{minInterval: minInterval}
}

func (c *textCoalescer) Append(text string) {
	if c == nil || text == "" {
		return
	}
	c.buf.WriteString(text)
	c.armed = true
}

func (c *textCoalescer) Len() int {
	if c == nil {
		return 0
	}
	return c.buf.Len()
}

// FlushDue reports whether an armed flush may fire at now. At most one flush
// fires per minInterval; the interval, not the wall clock, is the contract.
func (c *textCoalescer) FlushDue(now time.Time) bool {
	if c == nil || !c.armed {
		return false
	}
	if c.minInterval <= 0 || c.lastFlush.IsZero() {
		return true
	}
	return now.Sub(c.lastFlush) >= c.minInterval
}

// Flush atomically empties the accumulator and returns the removed text.
func (c *textCoalescer) Flush(now time.Time) string {
	if c == nil {
		return ""
	}
	if now.IsZero() {
		now = time.Now()
	}
	c.armed = false
	c.lastFlush = now
	text := c.buf.String()
	c.buf.Reset()
	return text
}

// Drain cancels any armed flush and empties the accumulator.
func (c *textCoalescer) Drain() string {
	if c == nil {
		return ""
	}
	c.armed = false
	text := c.buf.String()
	c.buf.Reset()
	return text
}
