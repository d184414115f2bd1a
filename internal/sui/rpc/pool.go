// internal/sui/rpc/pool.go

// Package rpc talks JSON-RPC 2.0 to a set of Sui full nodes with round-robin
// failover, client-side rate limiting and exponential backoff.
package rpc

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Основные константы
const (
	DefaultTimeout  = 10 * time.Second
	DefaultRetries  = 3
	DefaultCooldown = 5 * time.Second
	retryDelay      = 300 * time.Millisecond
	maxRetryDelay   = 3 * time.Second
)

// Observer receives one callback per RPC attempt.
type Observer interface {
	ObserveRPC(method, node string, duration time.Duration, err error)
}

// Options настраивает пул
type Options struct {
	RateLimit float64 // запросов в секунду, 0 = без лимита
	Timeout   time.Duration
	Retries   int
	Cooldown  time.Duration
	Logger    *zap.Logger
	Observer  Observer
}

// Pool распределяет вызовы между узлами
type Pool struct {
	nodes    []*Node
	current  int
	mu       sync.Mutex
	limiter  *rate.Limiter
	timeout  time.Duration
	retries  int
	cooldown time.Duration
	logger   *zap.Logger
	observer Observer
}

// NewPool создает пул для списка URL
func NewPool(urls []string, opts Options) (*Pool, error) {
	if len(urls) == 0 {
		return nil, ErrNoRPCNodes
	}

	nodes := make([]*Node, len(urls))
	for i, url := range urls {
		nodes[i] = NewNode(url)
	}

	p := &Pool{
		nodes:    nodes,
		timeout:  opts.Timeout,
		retries:  opts.Retries,
		cooldown: opts.Cooldown,
		logger:   opts.Logger,
		observer: opts.Observer,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultTimeout
	}
	if p.retries < 0 {
		p.retries = 0
	}
	if p.cooldown <= 0 {
		p.cooldown = DefaultCooldown
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	p.logger = p.logger.Named("sui-rpc")
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return p, nil
}

// Nodes returns the pool members.
func (p *Pool) Nodes() []*Node {
	return p.nodes
}

// nextNode возвращает следующий доступный узел; если все на cooldown,
// берется тот, чей cooldown закончится раньше
func (p *Pool) nextNode() *Node {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for i := 0; i < len(p.nodes); i++ {
		node := p.nodes[p.current]
		p.current = (p.current + 1) % len(p.nodes)
		if node.Available(now) {
			return node
		}
	}

	best := p.nodes[0]
	for _, node := range p.nodes[1:] {
		if node.cooldownEnds().Before(best.cooldownEnds()) {
			best = node
		}
	}
	return best
}

// Call выполняет метод и декодирует result в out. Транспортные ошибки
// повторяются на следующем узле с экспоненциальной задержкой, ошибки
// JSON-RPC от узла возвращаются сразу.
func (p *Pool) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	if params == nil {
		params = []interface{}{}
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = retryDelay
	expBackoff.MaxInterval = maxRetryDelay

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		node := p.nextNode()

		if p.limiter != nil {
			if err := p.limiter.Wait(ctx); err != nil {
				return struct{}{}, backoff.Permanent(NewError(err, node.URL, method))
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.timeout)
		start := time.Now()
		err := node.client.CallForInto(callCtx, out, method, params)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		duration := time.Since(start)
		node.updateMetrics(err == nil, duration)
		if p.observer != nil {
			p.observer.ObserveRPC(method, node.URL, duration, err)
		}
		if err == nil {
			return struct{}{}, nil
		}

		if IsNodeError(err) {
			return struct{}{}, backoff.Permanent(NewError(err, node.URL, method))
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(NewError(ctx.Err(), node.URL, method))
		}
		if timedOut {
			err = ErrTimeout
		}

		node.markFailed(p.cooldown)
		p.logger.Debug("RPC request failed, trying next node",
			zap.String("method", method),
			zap.String("url", node.URL),
			zap.Int("attempt", attempt),
			zap.Error(err))
		return struct{}{}, NewError(err, node.URL, method)
	},
		backoff.WithBackOff(expBackoff),
		backoff.WithMaxTries(uint(p.retries+1)),
	)
	return err
}
