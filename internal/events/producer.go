package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultTopic  string = "dataforge.pipeline.jobs"
	defaultSource string = "dataforge.pipeline.scheduler"

	defaultBufferCapacity = 10000
)

// Writer is the interface to be implemented by the underlying writer.
type Writer interface {
	Write(ctx context.Context, topic string, e Envelope) error
	Close(ctx context.Context) error
}

// Notifier receives job lifecycle notifications from the scheduler.
type Notifier interface {
	JobProgress(ctx context.Context, e JobProgressEvent)
	JobStatus(ctx context.Context, e JobStatusEvent)
}

// NopNotifier drops every notification.
type NopNotifier struct{}

func (NopNotifier) JobProgress(context.Context, JobProgressEvent) {}
func (NopNotifier) JobStatus(context.Context, JobStatusEvent)     {}

// EventProducer is a wrapper around a Writer with the buffer.
// It has a buffer to store pending events to not block the caller if the writer takes time to write the event.
type EventProducer struct {
	buffer           *buffer
	startConsumingCh chan struct{}
	doneCh           chan struct{}
	finishedCh       chan struct{}
	closeOnce        sync.Once
	writer           Writer
	topic            string
	source           string
}

var _ Notifier = (*EventProducer)(nil)

func NewEventProducer(w Writer, opts ...ProducerOptions) *EventProducer {
	ep := &EventProducer{
		buffer:           newBuffer(defaultBufferCapacity),
		startConsumingCh: make(chan struct{}, 1),
		doneCh:           make(chan struct{}),
		finishedCh:       make(chan struct{}),
		writer:           w,
		topic:            defaultTopic,
		source:           defaultSource,
	}

	for _, o := range opts {
		o(ep)
	}

	go ep.run()
	return ep
}

func (ep *EventProducer) Write(ctx context.Context, kind string, key string, body io.Reader) error {
	d, err := io.ReadAll(body)
	if err != nil {
		return err
	}

	if prevSize := ep.buffer.PushBack(&message{Kind: kind, Key: key, Data: d}); prevSize == 0 {
		// unblock the consumer
		select {
		case ep.startConsumingCh <- struct{}{}:
		default:
		}
	}

	return nil
}

func (ep *EventProducer) JobProgress(ctx context.Context, e JobProgressEvent) {
	ep.publish(ctx, JobProgressKind, e.JobID, e)
}

func (ep *EventProducer) JobStatus(ctx context.Context, e JobStatusEvent) {
	ep.publish(ctx, JobStatusKind, e.JobID, e)
}

func (ep *EventProducer) publish(ctx context.Context, kind string, jobID int64, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		zap.S().Named("event_producer").Errorw("failed to marshal event", "kind", kind, "error", err)
		return
	}
	if err := ep.Write(ctx, kind, strconv.FormatInt(jobID, 10), bytes.NewReader(data)); err != nil {
		zap.S().Named("event_producer").Errorw("failed to queue event", "kind", kind, "error", err)
	}
}

// Close flushes the pending events and closes the writer.
func (ep *EventProducer) Close() error {
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	g, ctx := errgroup.WithContext(closeCtx)
	g.Go(func() error {
		ep.closeOnce.Do(func() { close(ep.doneCh) })
		select {
		case <-ep.finishedCh:
		case <-ctx.Done():
			return fmt.Errorf("flushing %d pending events: %w", ep.buffer.Size(), ctx.Err())
		}
		return ep.writer.Close(ctx)
	})
	if err := g.Wait(); err != nil {
		zap.S().Named("event_producer").Errorf("event producer closed with error: %s", err)
		return err
	}

	if dropped := ep.buffer.Dropped(); dropped > 0 {
		zap.S().Named("event_producer").Warnw("events dropped while the buffer was full", "count", dropped)
	}
	zap.S().Named("event_producer").Info("event producer closed")

	return nil
}

func (ep *EventProducer) run() {
	defer close(ep.finishedCh)
	for {
		msg := ep.buffer.Pop()
		if msg == nil {
			select {
			case <-ep.startConsumingCh:
				continue
			case <-ep.doneCh:
				if ep.buffer.Size() == 0 {
					return
				}
				continue
			}
		}

		e := Envelope{
			ID:     uuid.NewString(),
			Source: ep.source,
			Type:   msg.Kind,
			Key:    msg.Key,
			Time:   time.Now().UTC(),
			Data:   msg.Data,
		}
		if err := ep.writer.Write(context.TODO(), ep.topic, e); err != nil {
			zap.S().Named("event_producer").Errorw("failed to send message", "error", err, "type", e.Type, "id", e.ID)
		}
	}
}
