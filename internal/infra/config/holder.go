package config

import (
	"sync"
	"sync/atomic"

	"github.com/caolicaoli/nacos-mcp-discovery-for-dify/internal/domain"
)

// Holder publishes the live configuration to readers and subscribers.
type Holder struct {
	current     atomic.Pointer[domain.GatewayConfig]
	mu          sync.Mutex
	subscribers []func(domain.GatewayConfig)
}

func NewHolder(cfg domain.GatewayConfig) *Holder {
	h := &Holder{}
	h.current.Store(&cfg)
	return h
}

func (h *Holder) Current() domain.GatewayConfig {
	return *h.current.Load()
}

// Subscribe registers fn to run after every successful update.
func (h *Holder) Subscribe(fn func(domain.GatewayConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subscribers = append(h.subscribers, fn)
}

// Update swaps in cfg and notifies subscribers in registration order.
func (h *Holder) Update(cfg domain.GatewayConfig) {
	h.current.Store(&cfg)
	h.mu.Lock()
	subscribers := make([]func(domain.GatewayConfig), len(h.subscribers))
	copy(subscribers, h.subscribers)
	h.mu.Unlock()
	for _, fn := range subscribers {
		fn(cfg)
	}
}
