package alerting

import (
	v1 "github.com/telematch-lab/telematch/internal/api/v1"
)

// Comparison operators accepted by alert rules.
const (
	OpGT = "gt"
	OpLT = "lt"
	OpGE = "ge"
	OpLE = "le"
	OpEQ = "eq" // exact float equality; callers relying on it accept its fragility
)

// comparators is the registry of threshold comparison operators.
// To add an operator: add an entry here — the evaluation hot path is a single
// map lookup, no switch.
var comparators = map[string]func(value, threshold float64) bool{
	OpGT: func(v, t float64) bool { return v > t },
	OpLT: func(v, t float64) bool { return v < t },
	OpGE: func(v, t float64) bool { return v >= t },
	OpLE: func(v, t float64) bool { return v <= t },
	OpEQ: func(v, t float64) bool { return v == t },
}

// ValidOperator reports whether op is a registered comparison operator.
func ValidOperator(op string) bool {
	_, ok := comparators[op]
	return ok
}

// Evaluator matches ingested events against the rule registry.
type Evaluator struct {
	registry *Registry
}

func NewEvaluator(reg *Registry) *Evaluator {
	return &Evaluator{registry: reg}
}

// Evaluate returns one notification per matching rule, in rule registration
// order. A rule whose metric is absent on the event is skipped (not an error),
// and an unrecognized operator never matches rather than failing the whole
// evaluation. There is no dedup across rules: two identical rules fire twice.
func (e *Evaluator) Evaluate(evt *v1.Event) []v1.NotificationPayload {
	var out []v1.NotificationPayload

	for _, rule := range e.registry.RulesFor(evt.DeviceID) {
		value, ok := evt.Metrics[rule.Metric]
		if !ok {
			continue
		}

		compare, ok := comparators[rule.Operator]
		if !ok {
			continue
		}

		if compare(value, rule.Threshold) {
			out = append(out, v1.NotificationPayload{
				DeviceID: evt.DeviceID,
				Metrics:  evt.Metrics,
				Time:     evt.OccurredAt,
			})
		}
	}

	return out
}
