package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"konnekt/internal/mirror"
	"konnekt/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second

	// DefaultMaxAttempts is how many replays an op gets before it is dead-lettered
	DefaultMaxAttempts = 10

	// DefaultRetryDelay pauses a worker after a batch with failed replays
	DefaultRetryDelay = time.Second
)

// Manager orchestrates worker goroutines that consume from Redis Streams.
type Manager struct {
	consumer    queue.Consumer
	publisher   queue.Publisher
	handler     *Handler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	maxAttempts int
	retryDelay  time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	WorkerCount  int           // Number of worker goroutines
	BatchSize    int64         // Messages per read
	BlockTimeout time.Duration // Block time for XREADGROUP
	MaxAttempts  int           // Replays before dead-lettering
	RetryDelay   time.Duration // Pause after failed replays
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
		MaxAttempts:  DefaultMaxAttempts,
		RetryDelay:   DefaultRetryDelay,
	}
}

// NewManager creates a new worker manager. publisher re-queues failed replays.
func NewManager(consumer queue.Consumer, publisher queue.Publisher, handler *Handler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	return &Manager{
		consumer:    consumer,
		publisher:   publisher,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
	}
}

// Start begins the worker goroutines.
// Call Stop() to gracefully shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, queue.StreamMirror, queue.ConsumerGroupMirror); err != nil {
		m.cancel()
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.workerCount, queue.StreamMirror, queue.ConsumerGroupMirror)

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1
		consumerName := consumerNameForWorker(workerID)

		m.wg.Add(1)
		go m.runWorker(workerID, consumerName)
	}

	log.Printf("[Manager] All %d workers started", m.workerCount)
	return nil
}

// Stop gracefully shuts down all workers.
// Blocks until all workers have finished.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// runWorker is the main loop for a single worker goroutine.
func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// First, process any pending messages from previous runs (crash recovery)
	m.processPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
			m.processMessages(workerID, consumerName)
		}
	}
}

// processPending handles messages that were delivered but not acknowledged.
func (m *Manager) processPending(workerID int, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, queue.StreamMirror, queue.ConsumerGroupMirror, consumerName, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}
		if len(messages) == 0 {
			return
		}

		log.Printf("[Worker-%d] Processing %d pending messages", workerID, len(messages))
		if acked := m.handleMessages(workerID, messages); acked == 0 {
			// Nothing could be acknowledged; leave the rest for the next start.
			return
		}
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages(workerID int, consumerName string) {
	messages, err := m.consumer.Read(
		m.ctx,
		queue.StreamMirror,
		queue.ConsumerGroupMirror,
		consumerName,
		m.batchSize,
		m.blockTime,
	)

	if err != nil {
		if m.ctx.Err() == nil {
			log.Printf("[Worker-%d] Error reading: %v", workerID, err)
			m.sleep(time.Second)
		}
		return
	}

	if len(messages) == 0 {
		return
	}

	log.Printf("[Worker-%d] Received %d messages", workerID, len(messages))
	m.handleMessages(workerID, messages)
}

// handleMessages replays a batch and acknowledges what was settled. A failed replay
// is re-queued with one more attempt, or dead-lettered when it cannot succeed.
// Returns the number of acknowledged messages.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) int {
	var acked, failed int

	for _, msg := range messages {
		err := m.handler.HandleEvent(m.ctx, msg.Event)
		if err != nil {
			failed++
			if settleErr := m.settleFailure(msg.Event, err); settleErr != nil {
				// Leave it pending; it is retried on the next start.
				log.Printf("[Worker-%d] Requeue FAILED msgID=%s: %v", workerID, msg.ID, settleErr)
				continue
			}
		}

		if err := m.consumer.Ack(m.ctx, queue.StreamMirror, queue.ConsumerGroupMirror, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
			continue
		}
		acked++
	}

	if failed > 0 {
		m.sleep(m.retryDelay)
	}
	return acked
}

func (m *Manager) settleFailure(event queue.MirrorEvent, cause error) error {
	next := event.Retry()
	stream := queue.StreamMirror
	if mirror.IsPermanent(cause) || next.Attempts >= m.maxAttempts {
		stream = queue.StreamMirrorDead
		log.Printf("[Manager] Dead-lettering event=%s op=%s attempts=%d err=%v", event.ID, event.Op, next.Attempts, cause)
	}
	if _, err := m.publisher.Publish(m.ctx, stream, next); err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}
	return nil
}

func (m *Manager) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-m.ctx.Done():
	case <-time.After(d):
	}
}

func consumerNameForWorker(workerID int) string {
	return fmt.Sprintf("mirror-worker-%d", workerID)
}
