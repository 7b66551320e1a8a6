// Package ingest tracks live transport stream inputs. Each input gets a pipe
// that the network receiver writes into and a consumer reads packets from,
// plus connection counters and a per-PID header probe.
package ingest

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zsiec/tspacket/internal/probe"
)

// Stats captures connection-level counters for an input.
type Stats struct {
	BytesReceived int64  `json:"bytesReceived"`
	ReadCount     int64  `json:"readCount"`
	ConnectedAt   int64  `json:"connectedAt"`
	UptimeMs      int64  `json:"uptimeMs"`
	RemoteAddr    string `json:"remoteAddr"`
}

// Stream is one active input. Bytes written to the pipe by the receiver
// come out of Input.
type Stream struct {
	Key       string
	StartedAt time.Time
	Probe     *probe.Probe

	input     io.ReadCloser
	pw        io.WriteCloser
	done      chan struct{}
	closeOnce sync.Once

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	remoteAddr    atomic.Value
}

// Input returns the read side of the stream's pipe.
func (s *Stream) Input() io.Reader { return s.input }

// Done is closed when the stream is unregistered.
func (s *Stream) Done() <-chan struct{} { return s.done }

// RecordRead adds one socket read of n bytes to the counters.
func (s *Stream) RecordRead(n int) {
	s.bytesReceived.Add(int64(n))
	s.readCount.Add(1)
}

func (s *Stream) SetRemoteAddr(addr string) {
	s.remoteAddr.Store(addr)
}

// Stats returns a snapshot of the connection counters.
func (s *Stream) Stats() Stats {
	addr, _ := s.remoteAddr.Load().(string)
	return Stats{
		BytesReceived: s.bytesReceived.Load(),
		ReadCount:     s.readCount.Load(),
		ConnectedAt:   s.StartedAt.UnixMilli(),
		UptimeMs:      time.Since(s.StartedAt).Milliseconds(),
		RemoteAddr:    addr,
	}
}

// Registry maps stream keys to live streams. A key is held by at most one
// stream at a time; a second publisher under the same key is refused
// rather than replacing the first.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	onStream func(s *Stream)
	handlers sync.WaitGroup
}

// NewRegistry creates a Registry. onStream, if non-nil, runs in its own
// goroutine for every registered stream; Wait blocks until all of them
// have returned.
func NewRegistry(onStream func(s *Stream)) *Registry {
	return &Registry{
		streams:  make(map[string]*Stream),
		onStream: onStream,
	}
}

// Register claims key for a new stream and returns it with the writer the
// receiver copies socket data into. It returns ok == false, and no stream,
// when key is already taken.
func (r *Registry) Register(key string) (stream *Stream, w io.Writer, ok bool) {
	r.mu.Lock()
	if _, taken := r.streams[key]; taken {
		r.mu.Unlock()
		return nil, nil, false
	}
	pr, pw := io.Pipe()
	stream = &Stream{
		Key:       key,
		StartedAt: time.Now(),
		Probe:     probe.New(nil),
		input:     pr,
		pw:        pw,
		done:      make(chan struct{}),
	}
	r.streams[key] = stream
	if r.onStream != nil {
		r.handlers.Add(1)
	}
	r.mu.Unlock()

	if r.onStream != nil {
		go func() {
			defer r.handlers.Done()
			r.onStream(stream)
		}()
	}
	return stream, pw, true
}

// Unregister ends s: its pipe reports EOF to the consumer and Done is
// closed. The key is released only if it still belongs to s. Calling it
// more than once is harmless.
func (r *Registry) Unregister(s *Stream) {
	r.mu.Lock()
	if cur, ok := r.streams[s.Key]; ok && cur == s {
		delete(r.streams, s.Key)
	}
	r.mu.Unlock()

	s.closeOnce.Do(func() {
		s.pw.Close()
		close(s.done)
	})
}

// Wait blocks until every onStream callback has returned.
func (r *Registry) Wait() { r.handlers.Wait() }

// Get returns the stream for key.
func (r *Registry) Get(key string) (*Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[key]
	return s, ok
}

// Keys returns the keys of all active streams.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.streams))
	for k := range r.streams {
		keys = append(keys, k)
	}
	return keys
}
