package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// EventKind identifies a recognizer event.
type EventKind string

const (
	EventResult EventKind = "result" // a finalized transcript
	EventEnd    EventKind = "end"    // the recognition session ended on its own
	EventError  EventKind = "error"
)

// ErrorNotAllowed is the error kind reported when microphone access is denied.
const ErrorNotAllowed = "not-allowed"

// Event is one item of a recognizer's event stream.
type Event struct {
	Kind       EventKind `json:"kind"`
	Transcript string    `json:"transcript,omitempty"`
	Error      string    `json:"error,omitempty"`
}

var (
	// ErrPermissionDenied is returned by Start when the microphone may not be used.
	ErrPermissionDenied = errors.New("voice: permission denied")
	// ErrInputClosed is returned by Start once a recognizer has no more input.
	ErrInputClosed = errors.New("voice: input closed")
)

// Recognizer is a continuous speech-to-text session.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	Events() <-chan Event
}

// LineRecognizer treats every non-empty line of a reader as a finalized
// transcript. End of input ends the session for good.
type LineRecognizer struct {
	r        io.Reader
	events   chan Event
	done     chan struct{}
	readDone chan struct{}
	once     sync.Once

	mu      sync.Mutex
	running bool
	reading bool
	eof     bool
}

// NewLineRecognizer creates a recognizer reading from r.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{
		r:        r,
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
}

// Start begins delivering lines.
func (l *LineRecognizer) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.eof {
		return fmt.Errorf("Start: %w", ErrInputClosed)
	}
	l.running = true
	if !l.reading {
		l.reading = true
		go l.read()
	}
	return nil
}

// Stop pauses delivery. Lines read while stopped are discarded.
func (l *LineRecognizer) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false
	return nil
}

// Close ends the recognizer. Pending sends are abandoned, so the reading
// goroutine exits once its current read returns.
func (l *LineRecognizer) Close() error {
	l.mu.Lock()
	l.eof = true
	l.running = false
	l.mu.Unlock()
	l.once.Do(func() { close(l.done) })
	return nil
}

// Events returns the event stream.
func (l *LineRecognizer) Events() <-chan Event {
	return l.events
}

func (l *LineRecognizer) send(ev Event) bool {
	select {
	case l.events <- ev:
		return true
	case <-l.done:
		return false
	}
}

func (l *LineRecognizer) read() {
	defer close(l.readDone)

	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		l.mu.Lock()
		running := l.running
		l.mu.Unlock()
		if running && !l.send(Event{Kind: EventResult, Transcript: line}) {
			return
		}
	}

	l.mu.Lock()
	l.eof = true
	l.running = false
	l.mu.Unlock()
	l.send(Event{Kind: EventEnd})
}

// ChannelRecognizer relays events pushed by a remote speech client, such as
// a browser running its own recognition and posting the results.
type ChannelRecognizer struct {
	events chan Event

	mu      sync.Mutex
	running bool
}

// ErrBufferFull is returned by Push when events are not being consumed.
var ErrBufferFull = errors.New("voice: event buffer full")

// NewChannelRecognizer creates a recognizer buffering up to size events.
func NewChannelRecognizer(size int) *ChannelRecognizer {
	if size <= 0 {
		size = 32
	}
	return &ChannelRecognizer{events: make(chan Event, size)}
}

// Start accepts pushed transcripts.
func (c *ChannelRecognizer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	return nil
}

// Stop ignores pushed transcripts until the next Start.
func (c *ChannelRecognizer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// Events returns the event stream.
func (c *ChannelRecognizer) Events() <-chan Event {
	return c.events
}

// Push delivers ev. Transcripts pushed while stopped are dropped.
func (c *ChannelRecognizer) Push(ev Event) error {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if ev.Kind == EventResult && !running {
		return nil
	}

	select {
	case c.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

var (
	_ Recognizer = (*LineRecognizer)(nil)
	_ Recognizer = (*ChannelRecognizer)(nil)
)
