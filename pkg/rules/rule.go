package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	patcher "github.com/goliatone/go-patcher"
)

// ErrDuplicateType indicates two rules for the same action type in one set.
var ErrDuplicateType = errors.New("rules: duplicate action type")

// Rule declares a payload patcher for one action type.
//
//	rules:
//	  - type: increment
//	    engine: cel
//	    when: has(payload.amount)
//	    payload: '{"amount": payload.amount + state.extra + state.amount}'
type Rule struct {
	Type        string `yaml:"type" json:"type"`
	Engine      string `yaml:"engine,omitempty" json:"engine,omitempty"`
	Payload     string `yaml:"payload" json:"payload"`
	When        string `yaml:"when,omitempty" json:"when,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Set is a rule file. Engine is the default for rules that do not name one.
type Set struct {
	Engine string `yaml:"engine,omitempty" json:"engine,omitempty"`
	Rules  []Rule `yaml:"rules" json:"rules"`
}

// Load decodes and validates a YAML rule set.
func Load(r io.Reader) (Set, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return Set{}, fmt.Errorf("rules: read: %w", err)
	}
	var set Set
	if err := yaml.Unmarshal(buf.Bytes(), &set); err != nil {
		return Set{}, fmt.Errorf("rules: decode: %w", err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// LoadFile loads the rule set stored at path.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return Set{}, fmt.Errorf("rules: %w", err)
	}
	defer f.Close()
	set, err := Load(f)
	if err != nil {
		return Set{}, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Validate reports every structural problem in the set. It does not compile
// expressions.
func (s Set) Validate() error {
	var errs []error
	if !knownEngine(s.Engine) {
		errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownEngine, s.Engine))
	}
	seen := make(map[string]int, len(s.Rules))
	for i, rule := range s.Rules {
		typ := strings.TrimSpace(rule.Type)
		if typ == "" {
			errs = append(errs, fmt.Errorf("rules: rule %d: %w", i, patcher.ErrTypeRequired))
			continue
		}
		if strings.TrimSpace(rule.Payload) == "" {
			errs = append(errs, fmt.Errorf("rules: rule %d (%s): %w", i, typ, ErrEmptyExpression))
		}
		if rule.Engine != "" && !knownEngine(rule.Engine) {
			errs = append(errs, fmt.Errorf("rules: rule %d (%s): %w: %q", i, typ, ErrUnknownEngine, rule.Engine))
		}
		if prev, ok := seen[typ]; ok {
			errs = append(errs, fmt.Errorf("rules: rule %d (%s): %w, first declared by rule %d", i, typ, ErrDuplicateType, prev))
			continue
		}
		seen[typ] = i
	}
	return errors.Join(errs...)
}

// Types returns the action types declared by the set, in file order.
func (s Set) Types() []string {
	types := make([]string, 0, len(s.Rules))
	for _, rule := range s.Rules {
		types = append(types, strings.TrimSpace(rule.Type))
	}
	return types
}

// EngineFor resolves the engine a rule runs on.
func (s Set) EngineFor(rule Rule) string {
	if rule.Engine != "" {
		return normalizeEngine(rule.Engine)
	}
	return normalizeEngine(s.Engine)
}
