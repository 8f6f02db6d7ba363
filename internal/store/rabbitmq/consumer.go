package rabbitmq

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const attemptHeader = "x-attempt"

// Handler runs one job. last is set when a failure will not be retried.
// A non-nil error dead-letters the delivery unless it is a *RetryError and attempts remain.
type Handler func(ctx context.Context, jobID string, last bool) error

var ErrDeliveriesClosed = errors.New("rabbitmq: delivery channel closed")

// RetryError asks the consumer to redeliver the job through <queue>.retry.
type RetryError struct {
	Err error
}

func (e *RetryError) Error() string { return e.Err.Error() }
func (e *RetryError) Unwrap() error { return e.Err }

func Retry(err error) error { return &RetryError{Err: err} }

// RetryPolicy bounds redelivery. MaxAttempts counts the first delivery.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

type Consumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	queue       string
	concurrency int
	retry       RetryPolicy
	log         *zap.Logger

	mu sync.Mutex // guards publishing on ch
}

func NewConsumer(url, queue string, concurrency int, retry RetryPolicy, log *zap.Logger) (*Consumer, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 1
	}
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	// at most `concurrency` unacked deliveries in flight
	if err := ch.Qos(concurrency, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	return &Consumer{conn: conn, ch: ch, queue: queue, concurrency: concurrency, retry: retry, log: log}, nil
}

func (c *Consumer) Close() error {
	_ = c.ch.Close()
	return c.conn.Close()
}

// Run consumes until ctx is done or the broker closes the channel. In-flight
// jobs finish before Run returns.
func (c *Consumer) Run(ctx context.Context, handle Handler) error {
	msgs, err := c.ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	c.log.Info("worker started",
		zap.String("queue", c.queue),
		zap.Int("concurrency", c.concurrency),
		zap.Int("max_attempts", c.retry.MaxAttempts),
	)
	d := &dispatcher{handle: handle, maxAttempts: c.retry.MaxAttempts, republish: c.republish, log: c.log}
	return serve(ctx, msgs, c.concurrency, d)
}

// republish parks the delivery in <queue>.retry; it dead-letters back to the main queue once
// the per-message TTL expires.
func (c *Consumer) republish(ctx context.Context, d amqp.Delivery, attempt int) error {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ch.PublishWithContext(cctx, "", c.queue+".retry", false, false, amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Body:         d.Body,
		Headers:      amqp.Table{attemptHeader: int32(attempt)},
		Expiration:   strconv.FormatInt(c.retry.Delay.Milliseconds(), 10),
		Timestamp:    time.Now(),
	})
}

type dispatcher struct {
	handle      Handler
	maxAttempts int
	republish   func(ctx context.Context, d amqp.Delivery, attempt int) error
	log         *zap.Logger
}

func serve(ctx context.Context, msgs <-chan amqp.Delivery, concurrency int, disp *dispatcher) error {
	jobs := make(chan amqp.Delivery, concurrency*2)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				disp.process(ctx, workerID, d)
			}
		}(i)
	}

	defer func() {
		close(jobs)
		wg.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			disp.log.Info("worker shutting down")
			return nil
		case d, ok := <-msgs:
			if !ok {
				return ErrDeliveriesClosed
			}
			jobs <- d
		}
	}
}

func attemptOf(d amqp.Delivery) int {
	switch v := d.Headers[attemptHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 1
}

func (disp *dispatcher) process(ctx context.Context, workerID int, d amqp.Delivery) {
	log := disp.log.With(zap.Int("worker", workerID))
	jobID, err := decodeJob(d.Body)
	if err != nil {
		log.Warn("bad job message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	attempt := attemptOf(d)
	last := attempt >= disp.maxAttempts
	log = log.With(zap.String("job_id", jobID), zap.Int("attempt", attempt))

	start := time.Now()
	err = disp.handle(ctx, jobID, last)
	if err == nil {
		if err := d.Ack(false); err != nil {
			log.Warn("ack failed", zap.Error(err))
		}
		if cost := time.Since(start); cost > 2*time.Second {
			log.Info("slow job", zap.Duration("cost", cost))
		}
		return
	}

	var re *RetryError
	if !last && errors.As(err, &re) {
		perr := disp.republish(ctx, d, attempt+1)
		if perr == nil {
			log.Warn("job retry scheduled", zap.Error(err))
			_ = d.Ack(false)
			return
		}
		log.Error("schedule retry failed", zap.Error(perr))
	}
	log.Error("job failed", zap.Duration("cost", time.Since(start)), zap.Error(err))
	_ = d.Nack(false, false)
}
