package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// State is the caller-visible polling state.
type State string

const (
	StateIdle    State = "idle"
	StateLive    State = "live"
	StateStopped State = "stopped"
)

const (
	// DefaultAttempts bounds one polling cycle.
	DefaultAttempts = 5
	// DefaultInterval is the poll cadence and the per-attempt timeout.
	DefaultInterval = 5 * time.Second

	backoffBase  = 100 * time.Millisecond
	acceptHeader = `text/plain;version=0.0.4;q=1,*/*;q=0.1`
)

// Options configures a Controller. OnText receives the raw exposition body
// together with the wall-clock fetch time in milliseconds.
type Options struct {
	URL      string
	Interval time.Duration
	Attempts int
	Client   *http.Client
	Logger   *slog.Logger
	OnText   func(timestamp int64, text string)
}

// Controller polls one exposition endpoint. Per cycle it makes a bounded
// number of attempts with exponential backoff between them; exhausting the
// attempts surfaces the last classified failure and halts the loop. Exactly
// one cycle is ever in flight.
type Controller struct {
	url      string
	interval time.Duration
	attempts int
	client   *http.Client
	log      *slog.Logger
	onText   func(int64, string)

	breaker *gobreaker.CircuitBreaker[string]
	tracer  trace.Tracer

	mu    sync.Mutex
	state State
	last  *Failure
}

func New(opts Options) *Controller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.OnText == nil {
		opts.OnText = func(int64, string) {}
	}

	return &Controller{
		url:      opts.URL,
		interval: opts.Interval,
		attempts: opts.Attempts,
		client:   opts.Client,
		log:      opts.Logger,
		onText:   opts.OnText,
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "scrape",
			MaxRequests: 1,
			// Trip inside a cycle: the remaining attempts fail fast
			// instead of hammering a dead endpoint.
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		tracer: otel.Tracer("fetch"),
		state:  StateIdle,
	}
}

// Run polls until the context is cancelled or a cycle exhausts its attempts.
// A cancelled attempt contributes nothing: the body is only handed to OnText
// when the context is still live.
func (c *Controller) Run(ctx context.Context) error {
	c.setState(StateLive, nil)

	for {
		text, failure := c.cycle(ctx)
		if failure != nil {
			c.setState(StateStopped, failure)
			c.log.Error("polling halted", "kind", failure.Kind, "err", failure.Err)
			return failure
		}
		if ctx.Err() != nil {
			c.setState(StateStopped, nil)
			return nil
		}

		c.onText(time.Now().UnixMilli(), text)

		select {
		case <-ctx.Done():
			c.setState(StateStopped, nil)
			return nil
		case <-time.After(c.interval):
		}
	}
}

// Status reports the polling state and, when stopped on error, the failure
// that halted it.
func (c *Controller) Status() (State, *Failure) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.last
}

func (c *Controller) setState(s State, f *Failure) {
	c.mu.Lock()
	c.state = s
	c.last = f
	c.mu.Unlock()
}

// cycle runs one poll: up to attempts fetches with 100ms×2^(n−1) backoff
// between them. A cancelled context ends the cycle without a failure.
func (c *Controller) cycle(ctx context.Context) (string, *Failure) {
	ctx, span := c.tracer.Start(ctx, "poll.cycle")
	defer span.End()

	var last *Failure
	for attempt := 1; attempt <= c.attempts; attempt++ {
		if ctx.Err() != nil {
			return "", nil
		}

		text, failure := c.attempt(ctx, attempt)
		if failure == nil {
			return text, nil
		}
		// An open breaker fails the attempt without reaching upstream;
		// keep the last real classification in that case.
		if last == nil || !errors.Is(failure.Err, gobreaker.ErrOpenState) {
			last = failure
		}
		c.log.Warn("scrape attempt failed",
			"attempt", attempt, "kind", failure.Kind, "err", failure.Err)

		if attempt < c.attempts {
			select {
			case <-ctx.Done():
				return "", nil
			case <-time.After(backoffBase << (attempt - 1)):
			}
		}
	}

	span.RecordError(last)
	return "", last
}

// attempt is one bounded fetch behind the circuit breaker. Each attempt gets
// the poll interval as its timeout.
func (c *Controller) attempt(ctx context.Context, n int) (string, *Failure) {
	ctx, span := c.tracer.Start(ctx, "poll.attempt",
		trace.WithAttributes(attribute.Int("attempt", n)))
	defer span.End()

	actx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	text, err := c.breaker.Execute(func() (string, error) {
		return c.fetchOnce(actx)
	})
	if err != nil {
		var f *Failure
		if !errors.As(err, &f) {
			// Breaker-open and similar internal errors.
			f = &Failure{Kind: KindNetwork, Err: err}
		}
		span.RecordError(f)
		return "", f
	}
	return text, nil
}

func (c *Controller) fetchOnce(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return "", &Failure{Kind: KindNetwork, Err: err}
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return "", &Failure{Kind: KindTimeout, Err: err}
		}
		return "", &Failure{Kind: KindCORS, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", &Failure{Kind: KindHTTP, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Failure{Kind: KindNetwork, Err: err}
	}
	return string(body), nil
}
