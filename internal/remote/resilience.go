package remote

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// breakerOpenTimeout is how long a tripped host breaker stays open before
// letting a probe command through.
const breakerOpenTimeout = 30 * time.Second

// errHostFailure marks a transport command outcome that should count
// against the host's breaker: spawn failures, hangs, and exit codes
// outside the transient set. A plain "file not there yet" listing (exit
// 23/24) is a normal poll outcome and never trips the breaker.
var errHostFailure = errors.New("remote transport failure")

// breakerRegistry manages per-host circuit breakers around the transport
// commands. A host that keeps failing is skipped quickly for a while
// instead of paying the full connect timeout on every poll.
type breakerRegistry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// hostBreakers guards all remote transport invocations in this package.
var hostBreakers = newBreakerRegistry()

func newBreakerRegistry() *breakerRegistry {
	return &breakerRegistry{breakers: make(map[string]*gobreaker.CircuitBreaker)}
}

type cmdResult struct {
	out  []byte
	code int
	err  error
}

// get returns the circuit breaker for the given host, creating it on first
// use.
func (r *breakerRegistry) get(host string) *gobreaker.CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[host]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        host,
		MaxRequests: 1, // one probe command in half-open state
		Interval:    0,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("remote host %q breaker: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// Only deliberate host-failure outcomes count; caller
			// cancellation in particular does not.
			return !errors.Is(err, errHostFailure)
		},
	})
	r.breakers[host] = cb
	return cb
}

// run executes a transport command through the host's breaker. An open
// breaker short-circuits to SpawnExitCode without spawning anything, which
// downstream classification treats like any other command failure.
func (r *breakerRegistry) run(ctx context.Context, host string, fn func() ([]byte, int, error)) ([]byte, int, error) {
	cb := r.get(host)
	v, err := cb.Execute(func() (interface{}, error) {
		out, code, err := fn()
		res := cmdResult{out: out, code: code, err: err}
		if code != 0 && !RetryableExit(code) && ctx.Err() == nil {
			return res, errHostFailure
		}
		return res, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, SpawnExitCode, err
		}
	}
	res := v.(cmdResult)
	return res.out, res.code, res.err
}

// reset drops all breaker state, for tests.
func (r *breakerRegistry) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers = make(map[string]*gobreaker.CircuitBreaker)
}
