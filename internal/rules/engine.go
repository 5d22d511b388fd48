// Package rules provides the CEL-Go based watch rule engine. Watch rules
// are boolean expressions over a normalized transaction; a matching rule
// annotates the transaction at informational severity without competing
// with the detection signals.
package rules

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/opensource-finance/kestrel/internal/domain"
)

// Engine compiles and evaluates watch rules.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]*CompiledRule
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.WatchRuleConfig
	Program cel.Program
}

// NewEngine creates a watch rule engine with the transaction variable set.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("merchant", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("currency", cel.StringType),
		cel.Variable("is_refund", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:           env,
		compiledRules: make(map[string]*CompiledRule),
	}, nil
}

// ValidateRule compiles a rule without mutating the loaded set.
func (e *Engine) ValidateRule(cfg *domain.WatchRuleConfig) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule into the engine.
func (e *Engine) LoadRule(cfg *domain.WatchRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}

	e.compiledRules[cfg.ID] = compiled

	return nil
}

// LoadRules compiles and loads the enabled rules from a config set.
func (e *Engine) LoadRules(configs []*domain.WatchRuleConfig) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReloadRules atomically replaces the loaded set with the enabled rules
// from configs. A compile error leaves the previous set untouched.
func (e *Engine) ReloadRules(configs []*domain.WatchRuleConfig) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	newRules := make(map[string]*CompiledRule)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		newRules[cfg.ID] = compiled
	}

	e.compiledRules = newRules

	return nil
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiledRules)
}

// LoadedRules returns the loaded rule configurations ordered by rule ID.
func (e *Engine) LoadedRules() []*domain.WatchRuleConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]*domain.WatchRuleConfig, 0, len(e.compiledRules))
	for _, compiled := range e.compiledRules {
		rules = append(rules, compiled.Config)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].ID < rules[j].ID })
	return rules
}

// Evaluate runs every loaded rule against one transaction and returns the
// per-rule results ordered by rule ID. Evaluation never mutates the
// transaction.
func (e *Engine) Evaluate(tx *domain.Transaction) []domain.WatchRuleResult {
	e.mu.RLock()
	ordered := make([]*CompiledRule, 0, len(e.compiledRules))
	for _, rule := range e.compiledRules {
		ordered = append(ordered, rule)
	}
	e.mu.RUnlock()

	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Config.ID < ordered[j].Config.ID })

	activation := map[string]any{
		"amount":    tx.Amount.InexactFloat64(),
		"merchant":  tx.Merchant,
		"category":  tx.Category,
		"currency":  tx.Currency,
		"is_refund": tx.IsRefund,
	}

	results := make([]domain.WatchRuleResult, 0, len(ordered))
	for _, rule := range ordered {
		result := domain.WatchRuleResult{
			RuleID: rule.Config.ID,
			Reason: rule.Config.Reason,
		}

		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			result.Err = fmt.Sprintf("evaluation error: %v", err)
		} else if b, ok := out.(types.Bool); ok && bool(b) {
			result.Matched = true
		}

		results = append(results, result)
	}

	return results
}

// Annotate evaluates the loaded rules against every transaction in the
// batch and annotates matches at informational severity. Transactions
// already flagged by a detection signal keep their annotation. Returns
// the number of transactions annotated.
func (e *Engine) Annotate(batch []*domain.Transaction, tally *domain.AnomalyTally) int {
	if e.RulesCount() == 0 {
		return 0
	}

	annotated := 0
	for _, tx := range batch {
		for _, result := range e.Evaluate(tx) {
			if !result.Matched {
				continue
			}
			reason := result.Reason
			if reason == "" {
				reason = fmt.Sprintf("watch rule %s matched", result.RuleID)
			}
			if tx.Flag(domain.SeverityInfo, reason) {
				tally.Record(domain.SignalWatchRule, domain.SeverityInfo)
				annotated++
			}
			break
		}
	}
	return annotated
}

// Close clears the loaded rules.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.compiledRules = make(map[string]*CompiledRule)
	return nil
}

func (e *Engine) compileRule(cfg *domain.WatchRuleConfig) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", cfg.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{
		Config:  cfg,
		Program: program,
	}, nil
}
