package alerting

import (
	"sync"

	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

// Registry is the in-memory set of active alert rules.
// Registration is append-only and always succeeds; rules live for the process
// lifetime. Duplicate rules coexist and all fire independently.
type Registry struct {
	mu    sync.RWMutex
	rules []v1.AlertRule
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a rule to the active set.
func (r *Registry) Register(rule v1.AlertRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule)
}

// RulesFor returns all rules for a device in registration order.
// The returned slice is a copy and safe to use while registration continues.
func (r *Registry) RulesFor(deviceID string) []v1.AlertRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []v1.AlertRule
	for _, rule := range r.rules {
		if rule.DeviceID == deviceID {
			out = append(out, rule)
		}
	}
	return out
}

// Len reports the total number of registered rules.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rules)
}
