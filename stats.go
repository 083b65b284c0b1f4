package ipcwire

import "sync/atomic"

// Stats holds process-wide counters an application can expose (e.g. over
// the admin HTTP surface in cmd/ipcserver). Every field is safe for
// concurrent use from any number of Connections.
type Stats struct {
	connectionsAccepted int64
	connectionsActive   int64
	handshakeRejections int64
	executes            int64
	requests            int64
	pokes               int64
	advises             int64
	faults              int64
}

// RecordConnectionAccepted marks one more Connection reaching Open.
func (s *Stats) RecordConnectionAccepted() {
	atomic.AddInt64(&s.connectionsAccepted, 1)
	atomic.AddInt64(&s.connectionsActive, 1)
}

// RecordConnectionClosed marks one Connection leaving Open for good.
func (s *Stats) RecordConnectionClosed() { atomic.AddInt64(&s.connectionsActive, -1) }

// RecordHandshakeRejected marks a rejected Connect handshake.
func (s *Stats) RecordHandshakeRejected() { atomic.AddInt64(&s.handshakeRejections, 1) }

// RecordExecute, RecordRequest, RecordPoke and RecordAdvise count one
// occurrence each of the corresponding operation.
func (s *Stats) RecordExecute() { atomic.AddInt64(&s.executes, 1) }
func (s *Stats) RecordRequest() { atomic.AddInt64(&s.requests, 1) }
func (s *Stats) RecordPoke()    { atomic.AddInt64(&s.pokes, 1) }
func (s *Stats) RecordAdvise()  { atomic.AddInt64(&s.advises, 1) }

// RecordFault counts one Connection torn down by a WireError/Desync/ProtocolError.
func (s *Stats) RecordFault() { atomic.AddInt64(&s.faults, 1) }

// Snapshot is a point-in-time copy of Stats suitable for JSON encoding.
type Snapshot struct {
	ConnectionsAccepted int64 `json:"connections_accepted"`
	ConnectionsActive   int64 `json:"connections_active"`
	HandshakeRejections int64 `json:"handshake_rejections"`
	Executes            int64 `json:"executes"`
	Requests            int64 `json:"requests"`
	Pokes               int64 `json:"pokes"`
	Advises             int64 `json:"advises"`
	Faults              int64 `json:"faults"`
}

// Snapshot reads every counter consistently enough for reporting purposes
// (each field is read atomically; the set as a whole is not a single
// atomic transaction, which is acceptable for monitoring counters).
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ConnectionsAccepted: atomic.LoadInt64(&s.connectionsAccepted),
		ConnectionsActive:   atomic.LoadInt64(&s.connectionsActive),
		HandshakeRejections: atomic.LoadInt64(&s.handshakeRejections),
		Executes:            atomic.LoadInt64(&s.executes),
		Requests:            atomic.LoadInt64(&s.requests),
		Pokes:               atomic.LoadInt64(&s.pokes),
		Advises:             atomic.LoadInt64(&s.advises),
		Faults:              atomic.LoadInt64(&s.faults),
	}
}

// StatsHandler wraps a Handler, recording per-operation counts into stats
// before delegating OnExecute, OnRequest, OnPoke and OnAdvise; the other
// callbacks pass straight through uncounted. Connection-lifecycle counts
// (accepted/active/closed/rejected) are recorded by Server itself via
// WithServerStats, not here, so the two never double-count one event.
type StatsHandler struct {
	Handler
	stats *Stats
}

// NewStatsHandler wraps h so its OnExecute, OnRequest, OnPoke and OnAdvise
// callbacks are first counted into stats.
func NewStatsHandler(h Handler, stats *Stats) *StatsHandler {
	return &StatsHandler{Handler: h, stats: stats}
}

func (h *StatsHandler) OnExecute(topic string, data []byte, format Format) {
	h.stats.RecordExecute()
	h.Handler.OnExecute(topic, data, format)
}

func (h *StatsHandler) OnRequest(topic, item string, format Format) ([]byte, int) {
	h.stats.RecordRequest()
	return h.Handler.OnRequest(topic, item, format)
}

func (h *StatsHandler) OnPoke(topic, item string, data []byte, format Format) {
	h.stats.RecordPoke()
	h.Handler.OnPoke(topic, item, data, format)
}

func (h *StatsHandler) OnAdvise(topic, item string, data []byte, format Format) {
	h.stats.RecordAdvise()
	h.Handler.OnAdvise(topic, item, data, format)
}

