package audit

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Writer appends audit entries asynchronously. Record never blocks the
// business operation and never returns an error to it; sink failures and
// overflow are reported on the process error log instead of being swallowed.
type Writer struct {
	sink Sink
	feed *Feed

	ch     chan Entry
	wg     sync.WaitGroup
	closed chan struct{}
	once   sync.Once
}

// NewWriter starts the background drain goroutine.
func NewWriter(sink Sink, feed *Feed, buffer int) *Writer {
	if buffer <= 0 {
		buffer = 256
	}
	w := &Writer{
		sink:   sink,
		feed:   feed,
		ch:     make(chan Entry, buffer),
		closed: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Record queues one event. Fire-and-forget from the caller's perspective.
func (w *Writer) Record(ev Event) {
	entry := Entry{
		Action:    ev.Action,
		Module:    ev.Module,
		SubjectID: ev.SubjectID,
		Outcome:   ev.Outcome,
		Risk:      ev.Risk,
		Origin:    ev.Origin,
		CreatedAt: time.Now().UTC(),
	}
	if ev.Actor != "" {
		actor := ev.Actor
		entry.ActorID = &actor
	}
	if len(ev.Detail) > 0 {
		if b, err := json.Marshal(ev.Detail); err == nil {
			entry.Detail = b
		}
	}

	select {
	case <-w.closed:
		log.Printf("audit: writer closed, entry dropped: action=%s actor=%s", ev.Action, ev.Actor)
		return
	default:
	}

	select {
	case w.ch <- entry:
	default:
		// Buffer full. Do not block patient-care operations, but make the
		// loss visible on the error channel.
		log.Printf("audit: buffer full, entry dropped: action=%s actor=%s outcome=%s", ev.Action, ev.Actor, ev.Outcome)
	}
}

func (w *Writer) run() {
	defer w.wg.Done()
	for {
		select {
		case entry := <-w.ch:
			w.append(entry)
		case <-w.closed:
			// Drain what is already queued, then stop.
			for {
				select {
				case entry := <-w.ch:
					w.append(entry)
				default:
					return
				}
			}
		}
	}
}

func (w *Writer) append(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := w.sink.Append(ctx, &entry); err != nil {
		log.Printf("audit: append failed: action=%s err=%v", entry.Action, err)
		return
	}
	if w.feed != nil && entry.Risk == RiskHigh {
		w.feed.Broadcast(&entry)
	}
}

// Close drains queued entries and stops the writer.
func (w *Writer) Close() {
	w.once.Do(func() { close(w.closed) })
	w.wg.Wait()
}
