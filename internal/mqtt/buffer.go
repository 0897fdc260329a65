package mqtt

import "log"

// pendingMsg is a serialized message waiting for the broker to come back.
type pendingMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// backlog is a fixed-capacity FIFO that keeps the newest messages while
// disconnected. Not safe for concurrent use; caller must synchronize.
type backlog struct {
	buf     []pendingMsg
	head    int // next write position
	count   int
	dropped int // overwritten since last drain
}

func newBacklog(capacity int) *backlog {
	if capacity < 1 {
		capacity = 1
	}
	return &backlog{buf: make([]pendingMsg, capacity)}
}

func (b *backlog) push(msg pendingMsg) {
	if b.count == len(b.buf) {
		if b.dropped == 0 {
			log.Printf("mqtt: backlog full (%d messages), dropping oldest", len(b.buf))
		}
		b.dropped++
		// head already points at the oldest message
		b.buf[b.head] = msg
		b.head = (b.head + 1) % len(b.buf)
		return
	}
	b.buf[b.head] = msg
	b.head = (b.head + 1) % len(b.buf)
	b.count++
}

// drain returns queued messages oldest first and how many were dropped.
func (b *backlog) drain() ([]pendingMsg, int) {
	dropped := b.dropped
	b.dropped = 0
	if b.count == 0 {
		return nil, dropped
	}

	out := make([]pendingMsg, b.count)
	start := (b.head - b.count + len(b.buf)) % len(b.buf)
	for i := range out {
		out[i] = b.buf[(start+i)%len(b.buf)]
	}

	b.count = 0
	b.head = 0
	return out, dropped
}

func (b *backlog) len() int {
	return b.count
}
