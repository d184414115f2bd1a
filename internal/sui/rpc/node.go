// internal/sui/rpc/node.go
package rpc

import (
	"sync"
	"time"

	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
)

// Node is a single JSON-RPC endpoint with health bookkeeping.
type Node struct {
	URL    string
	client jsonrpc.RPCClient

	mu            sync.RWMutex
	cooldownUntil time.Time
	successCount  uint64
	errorCount    uint64
	latency       time.Duration
}

// NewNode создает узел для заданного URL
func NewNode(url string) *Node {
	return &Node{URL: url, client: jsonrpc.NewClient(url)}
}

// Available reports whether the node is outside its failure cooldown.
func (n *Node) Available(now time.Time) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return !now.Before(n.cooldownUntil)
}

// markFailed снимает узел с ротации на cooldown
func (n *Node) markFailed(cooldown time.Duration) {
	n.mu.Lock()
	n.cooldownUntil = time.Now().Add(cooldown)
	n.mu.Unlock()
}

func (n *Node) updateMetrics(success bool, latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if success {
		n.successCount++
		n.cooldownUntil = time.Time{}
	} else {
		n.errorCount++
	}
	if n.latency == 0 {
		n.latency = latency
	} else {
		n.latency = (n.latency + latency) / 2
	}
}

// Metrics возвращает число успешных и неудачных вызовов и среднюю задержку
func (n *Node) Metrics() (success, failed uint64, latency time.Duration) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.successCount, n.errorCount, n.latency
}

func (n *Node) cooldownEnds() time.Time {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.cooldownUntil
}
