// Package metrics holds in-process counters for the automation API. Kept
// simple/thread-safe for use from services, middlewares and exposition.
package metrics

import (
	"sync"
	"sync/atomic"
)

type counters struct {
	sendTotal      uint64
	ruleRejections uint64
	rateLimitTotal uint64

	mu           sync.Mutex
	sendByStatus map[string]uint64
	dropsByScope map[string]uint64
}

var c counters

// IncSend increments send-log counters for the given status.
func IncSend(status string) {
	if status == "" {
		status = "pending"
	}
	atomic.AddUint64(&c.sendTotal, 1)
	c.mu.Lock()
	if c.sendByStatus == nil {
		c.sendByStatus = make(map[string]uint64)
	}
	c.sendByStatus[status]++
	c.mu.Unlock()
}

// IncRuleRejection counts attempts to attach a disallowed action type.
func IncRuleRejection() {
	atomic.AddUint64(&c.ruleRejections, 1)
}

// IncRateLimitDrop increments drop counters for the given scope. Use scope
// "global" for global limiter rejections.
func IncRateLimitDrop(scope string) {
	if scope == "" {
		scope = "global"
	}
	atomic.AddUint64(&c.rateLimitTotal, 1)
	c.mu.Lock()
	if c.dropsByScope == nil {
		c.dropsByScope = make(map[string]uint64)
	}
	c.dropsByScope[scope]++
	c.mu.Unlock()
}

// Snapshot is a copy of the current counters.
type Snapshot struct {
	SendTotal      uint64            `json:"send_total"`
	SendByStatus   map[string]uint64 `json:"send_by_status"`
	RuleRejections uint64            `json:"rule_rejections"`
	RateLimitTotal uint64            `json:"rate_limit_total"`
	DropsByScope   map[string]uint64 `json:"drops_by_scope"`
}

// Collect returns a copy of the current counters.
func Collect() Snapshot {
	snap := Snapshot{
		SendTotal:      atomic.LoadUint64(&c.sendTotal),
		RuleRejections: atomic.LoadUint64(&c.ruleRejections),
		RateLimitTotal: atomic.LoadUint64(&c.rateLimitTotal),
		SendByStatus:   make(map[string]uint64),
		DropsByScope:   make(map[string]uint64),
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.sendByStatus {
		snap.SendByStatus[k] = v
	}
	for k, v := range c.dropsByScope {
		snap.DropsByScope[k] = v
	}
	return snap
}
