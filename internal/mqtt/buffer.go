package mqtt

import log "github.com/sirupsen/logrus"

// bufferedMsg is a serialized message waiting for the broker to come back.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer keeps the most recent messages published while disconnected.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type ringBuffer struct {
	msgs    []bufferedMsg
	next    int // slot the next push writes to
	count   int
	dropped int // messages overwritten since the last drain
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{msgs: make([]bufferedMsg, capacity)}
}

func (r *ringBuffer) push(msg bufferedMsg) {
	size := len(r.msgs)
	if r.count == size {
		if r.dropped == 0 {
			log.Printf("mqtt: offline buffer full (%d messages), dropping oldest", size)
		}
		r.dropped++
	} else {
		r.count++
	}
	r.msgs[r.next] = msg
	r.next = (r.next + 1) % size
}

// drainAll returns the buffered messages oldest first and how many were
// dropped to make room for them, then empties the buffer.
func (r *ringBuffer) drainAll() ([]bufferedMsg, int) {
	dropped := r.dropped
	if r.count == 0 {
		r.dropped = 0
		return nil, dropped
	}

	size := len(r.msgs)
	oldest := (r.next - r.count + size) % size
	out := make([]bufferedMsg, r.count)
	for i := range out {
		out[i] = r.msgs[(oldest+i)%size]
		r.msgs[(oldest+i)%size] = bufferedMsg{}
	}

	r.next, r.count, r.dropped = 0, 0, 0
	return out, dropped
}

func (r *ringBuffer) len() int {
	return r.count
}
