package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/logging"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/mqtt"
	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// Default capacity of the inbound queue. The controller produces at most a
// few events per second; a burst beyond this means the database is stuck,
// and dropping is preferable to blocking the broker callback.
const defaultQueueSize = 256

// Notification kinds delivered to listeners.
const (
	KindEntry  = "entry"
	KindExit   = "exit"
	KindScan   = "scan"
	KindSystem = "system"
)

// Subscriber is the broker surface the ingestor consumes.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// EventRecorder applies validated gate events to the database.
// Implemented by parking.Recorder. Scans are not part of the surface:
// they are display-only and never reach the store.
type EventRecorder interface {
	RecordEntry(ctx context.Context, ev parking.GateEvent) (*parking.EntryResult, error)
	RecordExit(ctx context.Context, ev parking.GateEvent) (*parking.ExitResult, error)
}

// Notification is delivered to listeners after a message has been applied.
// Exit notifications carry the measured duration and fee; system
// notifications carry the controller's reported state instead of card data.
type Notification struct {
	Kind            string    `json:"kind"`
	CardUID         string    `json:"card_uid,omitempty"`
	SlotID          int       `json:"slot_id,omitempty"`
	Gate            string    `json:"gate,omitempty"`
	Status          string    `json:"status,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	Fee             float64   `json:"fee_amount,omitempty"`
	AvailableSlots  int       `json:"available_slots,omitempty"`
	Emergency       bool      `json:"emergency,omitempty"`
}

// Listener receives notifications for applied messages. Listeners run on
// the worker goroutine and must not block.
type Listener func(n Notification)

// inbound is one raw message waiting on the queue.
type inbound struct {
	topic   string
	payload []byte
}

// Ingestor subscribes to the controller's event topics and applies each
// message through the recorder, one transaction per message.
//
// Thread Safety:
//   - Listener registration and removal are safe from any goroutine.
//   - Message application is serialised on a single worker goroutine.
type Ingestor struct {
	client   Subscriber
	recorder EventRecorder
	logger   *logging.Logger
	qos      byte

	queue chan inbound

	listeners map[string]Listener
	mu        sync.RWMutex

	wg sync.WaitGroup
}

// NewIngestor creates an ingestor. Start must be called to begin consuming.
func NewIngestor(client Subscriber, recorder EventRecorder, qos byte, logger *logging.Logger) *Ingestor {
	return &Ingestor{
		client:    client,
		recorder:  recorder,
		logger:    logger,
		qos:       qos,
		queue:     make(chan inbound, defaultQueueSize),
		listeners: make(map[string]Listener),
	}
}

// Start subscribes to the controller's topics and launches the worker.
// The worker stops when ctx is cancelled; call Wait to block until it has
// drained.
func (i *Ingestor) Start(ctx context.Context) error {
	topics := mqtt.Topics{}
	for _, topic := range []string{
		topics.EntryEvents(),
		topics.ExitEvents(),
		topics.ScanEvents(),
		topics.System(),
	} {
		if err := i.client.Subscribe(topic, i.qos, i.enqueue); err != nil {
			return fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	i.wg.Add(1)
	go i.run(ctx)

	return nil
}

// Wait blocks until the worker goroutine has exited.
func (i *Ingestor) Wait() {
	i.wg.Wait()
}

// AddListener registers a handler for applied-message notifications.
// A second registration under the same id replaces the first.
func (i *Ingestor) AddListener(id string, fn Listener) {
	i.mu.Lock()
	i.listeners[id] = fn
	i.mu.Unlock()
}

// RemoveListener unregisters a handler.
func (i *Ingestor) RemoveListener(id string) {
	i.mu.Lock()
	delete(i.listeners, id)
	i.mu.Unlock()
}

// enqueue is the MQTT message handler. It never blocks: a full queue drops
// the message with a warning.
func (i *Ingestor) enqueue(topic string, payload []byte) error {
	msg := inbound{topic: topic, payload: append([]byte(nil), payload...)}
	select {
	case i.queue <- msg:
		return nil
	default:
		i.logger.Warn("event queue full, dropping message",
			"topic", topic,
			"queue_size", cap(i.queue),
		)
		return ErrQueueFull
	}
}

// run is the worker loop. Handler errors are logged and never terminate
// the loop; each message's transaction stands or falls alone.
func (i *Ingestor) run(ctx context.Context) {
	defer i.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-i.queue:
			if err := i.process(ctx, msg); err != nil {
				i.logger.Warn("event not applied",
					"topic", msg.topic,
					"error", err,
				)
			}
		}
	}
}

// process decodes and applies one message, then notifies listeners.
func (i *Ingestor) process(ctx context.Context, msg inbound) error {
	topics := mqtt.Topics{}

	switch msg.topic {
	case topics.EntryEvents():
		return i.processEntry(ctx, msg.payload)
	case topics.ExitEvents():
		return i.processExit(ctx, msg.payload)
	case topics.ScanEvents():
		return i.processScan(ctx, msg.payload)
	case topics.System():
		return i.processSystem(msg.payload)
	default:
		i.logger.Debug("ignoring message on unexpected topic", "topic", msg.topic)
		return nil
	}
}

func (i *Ingestor) processEntry(ctx context.Context, payload []byte) error {
	ev, err := ParseGateEvent(payload, time.Now())
	if err != nil {
		return err
	}

	result, err := i.recorder.RecordEntry(ctx, ev)
	if err != nil {
		return fmt.Errorf("recording entry: %w", err)
	}

	i.logger.Info("entry recorded",
		"card_uid", ev.CardUID,
		"slot_id", ev.SlotID,
		"status", ev.Status,
		"log_id", result.LogID,
	)

	i.notify(Notification{
		Kind:      KindEntry,
		CardUID:   ev.CardUID,
		SlotID:    ev.SlotID,
		Gate:      ev.Gate,
		Status:    ev.Status,
		Timestamp: ev.Timestamp,
	})
	return nil
}

func (i *Ingestor) processExit(ctx context.Context, payload []byte) error {
	ev, err := ParseGateEvent(payload, time.Now())
	if err != nil {
		return err
	}

	result, err := i.recorder.RecordExit(ctx, ev)
	if err != nil {
		return fmt.Errorf("recording exit: %w", err)
	}

	i.logger.Info("exit recorded",
		"card_uid", ev.CardUID,
		"slot_id", ev.SlotID,
		"status", ev.Status,
		"duration_minutes", result.DurationMinutes,
		"fee", result.Fee,
		"log_id", result.LogID,
	)

	i.notify(Notification{
		Kind:            KindExit,
		CardUID:         ev.CardUID,
		SlotID:          ev.SlotID,
		Gate:            ev.Gate,
		Status:          ev.Status,
		Timestamp:       ev.Timestamp,
		DurationMinutes: result.DurationMinutes,
		Fee:             result.Fee,
	})
	return nil
}

// processScan forwards a scan-mode detection to listeners. Nothing is
// stored: the scan exists so the dashboard's registration form can pick up
// a card held at the reader.
func (i *Ingestor) processScan(_ context.Context, payload []byte) error {
	ev, err := ParseScanEvent(payload, time.Now())
	if err != nil {
		return err
	}

	i.logger.Info("card scanned",
		"card_uid", ev.CardUID,
		"gate", ev.Gate,
	)

	i.notify(Notification{
		Kind:      KindScan,
		CardUID:   ev.CardUID,
		Gate:      ev.Gate,
		Timestamp: ev.Timestamp,
	})
	return nil
}

// processSystem handles the controller heartbeat. Slot state is never
// reconciled from it; the per-event stream is authoritative.
func (i *Ingestor) processSystem(payload []byte) error {
	status, err := ParseSystemStatus(payload)
	if err != nil {
		return err
	}

	i.logger.Info("controller status",
		"status", status.Status,
		"available_slots", status.AvailableSlots,
		"emergency", status.Emergency,
	)

	i.notify(Notification{
		Kind:           KindSystem,
		Status:         status.Status,
		AvailableSlots: status.AvailableSlots,
		Emergency:      status.Emergency,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}

// notify fans the notification out to all registered listeners.
func (i *Ingestor) notify(n Notification) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, fn := range i.listeners {
		fn(n)
	}
}
