package observability

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// ProcessSnapshot holds the latest self-sampled process metrics.
type ProcessSnapshot struct {
	PID        int32   `json:"pid"`
	Status     string  `json:"status"`
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	SampledAt  string  `json:"sampled_at,omitempty"`
}

// ChannelUsage is the last sampled fill level of a queue.
type ChannelUsage struct {
	Capacity int `json:"capacity"`
	Length   int `json:"length"`
}

// Snapshot is the JSON view of Stats served on /stats.
type Snapshot struct {
	ActiveConnections int64                   `json:"active_connections"`
	TotalConnections  uint64                  `json:"total_connections"`
	ErroredCloses     uint64                  `json:"errored_closes"`
	GroupsCreated     uint64                  `json:"groups_created"`
	Joins             uint64                  `json:"joins"`
	Leaves            uint64                  `json:"leaves"`
	MessagesAccepted  uint64                  `json:"messages_accepted"`
	CensoredMessages  uint64                  `json:"censored_messages"`
	InternalFaults    uint64                  `json:"internal_faults"`
	WorkerRestarts    uint64                  `json:"worker_restarts"`
	Uptime            string                  `json:"uptime"`
	Process           ProcessSnapshot         `json:"process"`
	Channels          map[string]ChannelUsage `json:"channels"`
}

// ConnectionCounter reports the connections currently registered.
type ConnectionCounter interface {
	Count() int
}

// Stats aggregates relay counters. Counters are lock-free; the process sample is guarded by mu.
type Stats struct {
	activeConnections atomic.Int64
	totalConnections  atomic.Uint64
	erroredCloses     atomic.Uint64
	groupsCreated     atomic.Uint64
	joins             atomic.Uint64
	leaves            atomic.Uint64
	messagesAccepted  atomic.Uint64
	censoredMessages  atomic.Uint64
	internalFaults    atomic.Uint64
	workerRestarts    atomic.Uint64

	mu          sync.RWMutex
	connections ConnectionCounter
	process     ProcessSnapshot
	channels    map[string]ChannelUsage
	startTime   time.Time
}

func NewStats() *Stats {
	return &Stats{startTime: time.Now(), channels: map[string]ChannelUsage{}}
}

func (s *Stats) ConnectionOpened() {
	s.activeConnections.Add(1)
	s.totalConnections.Add(1)
}

func (s *Stats) ConnectionClosed(graceful bool) {
	s.activeConnections.Add(-1)
	if !graceful {
		s.erroredCloses.Add(1)
	}
}

func (s *Stats) GroupCreated()    { s.groupsCreated.Add(1) }
func (s *Stats) MemberJoined()    { s.joins.Add(1) }
func (s *Stats) MemberLeft()      { s.leaves.Add(1) }
func (s *Stats) MessageAccepted() { s.messagesAccepted.Add(1) }
func (s *Stats) MessageCensored() { s.censoredMessages.Add(1) }
func (s *Stats) InternalFault()   { s.internalFaults.Add(1) }
func (s *Stats) WorkerRestarted() { s.workerRestarts.Add(1) }

// CountConnectionsWith makes snapshots report active connections from counter
// rather than from telemetry events.
func (s *Stats) CountConnectionsWith(counter ConnectionCounter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = counter
}

func (s *Stats) UpdateProcess(p ProcessSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.process = p
}

func (s *Stats) UpdateChannel(name string, usage ChannelUsage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[name] = usage
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	counter := s.connections
	process := s.process
	channels := maps.Clone(s.channels)
	s.mu.RUnlock()

	active := s.activeConnections.Load()
	if counter != nil {
		active = int64(counter.Count())
	}
	return Snapshot{
		ActiveConnections: active,
		TotalConnections:  s.totalConnections.Load(),
		ErroredCloses:     s.erroredCloses.Load(),
		GroupsCreated:     s.groupsCreated.Load(),
		Joins:             s.joins.Load(),
		Leaves:            s.leaves.Load(),
		MessagesAccepted:  s.messagesAccepted.Load(),
		CensoredMessages:  s.censoredMessages.Load(),
		InternalFaults:    s.internalFaults.Load(),
		WorkerRestarts:    s.workerRestarts.Load(),
		Uptime:            time.Since(s.startTime).Round(time.Second).String(),
		Process:           process,
		Channels:          channels,
	}
}
