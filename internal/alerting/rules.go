package alerting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	v1 "github.com/telematch-lab/telematch/internal/api/v1"
	"gopkg.in/yaml.v3"
)

// LoadRulesDir loads alert rules from *.yaml files in dir, one rule per file.
// Rules are loaded once at startup — no hot reload. A missing directory means
// zero preloaded rules and is not an error; a malformed rule file is, since a
// rule with a bad operator would silently never fire.
func LoadRulesDir(dir string) ([]v1.AlertRule, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, nil // no rules directory — valid (zero rules configured)
	}
	if err != nil {
		return nil, fmt.Errorf("alert rule dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("alert rule path %q is not a directory", dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading alert rule dir: %w", err)
	}

	var rules []v1.AlertRule
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading rule file %s: %w", path, err)
		}

		var rule v1.AlertRule
		if err := yaml.Unmarshal(data, &rule); err != nil {
			return nil, fmt.Errorf("parsing rule file %s: %w", path, err)
		}
		if rule.DeviceID == "" && rule.Metric == "" {
			continue // skip empty / comment-only files
		}

		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("rule file %s: %w", path, err)
		}
		if !ValidOperator(rule.Operator) {
			return nil, fmt.Errorf("rule file %s: unsupported operator %q", path, rule.Operator)
		}

		rules = append(rules, rule)
	}
	return rules, nil
}
