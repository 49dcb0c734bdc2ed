package gpio

import (
	"fmt"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// decode classifies one raw record. No filtering is applied: one record is one event.
func decode(r record) (EdgeEvent, error) {
	var edge logic.Edge
	switch r.kind {
	case kindRising:
		edge = logic.EdgeRising
	case kindFalling:
		edge = logic.EdgeFalling
	default:
		return EdgeEvent{}, fmt.Errorf("%w: %d", ErrUnknownEvent, r.kind)
	}
	return EdgeEvent{
		Edge:      edge,
		Timestamp: r.timestamp,
		Offset:    r.offset,
		Seqno:     r.seqno,
	}, nil
}

// readEvent pops and decodes one record from q.
func readEvent(q *eventQueue) (EdgeEvent, error) {
	r, err := q.pop()
	if err != nil {
		return EdgeEvent{}, err
	}
	return decode(r)
}
