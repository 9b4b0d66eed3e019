package gate

import (
	"log/slog"
	"regexp"
	"sync"
)

// Engine evaluates command strings against an ordered rule set. Evaluation
// is a pure function of (command text, rule list, balance); side effects
// belong to the caller.
//
// Compiled patterns are cached across evaluations. Rules are immutable
// after creation, so a pattern compiles the same way forever; a pattern
// that fails to compile is cached as nil and skipped on every evaluation
// rather than aborting it.
type Engine struct {
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*regexp.Regexp
}

// NewEngine creates a new decision engine.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With("component", "gate.engine"),
		cache:  make(map[string]*regexp.Regexp),
	}
}

// Evaluate scans rules in order and stops at the first whose pattern
// matches commandText. The outcome is:
//
//   - no rule matches: REJECTED / no matching rule found (allowlist-safe
//     default)
//   - AUTO_REJECT matches: REJECTED / blocked by security rule, credits
//     untouched regardless of balance
//   - AUTO_ACCEPT matches: EXECUTED with a credit consumed when balance
//     is positive, otherwise REJECTED / insufficient credits
//
// The credit check is scoped to AUTO_ACCEPT: a zero-credit account still
// receives the rule-derived reason for blocked or unmatched commands.
func (e *Engine) Evaluate(commandText string, rules []Rule, balance int) Decision {
	for _, rule := range rules {
		re := e.compiled(rule.Pattern)
		if re == nil {
			continue
		}
		if !re.MatchString(commandText) {
			continue
		}

		e.logger.Debug("rule matched",
			"rule_id", rule.ID,
			"action", rule.Action,
		)

		if rule.Action == ActionAutoReject {
			return Decision{Status: StatusRejected, Reason: ReasonBlocked}
		}

		if balance > 0 {
			return Decision{Status: StatusExecuted, Reason: ReasonAllowed, ConsumeCredit: true}
		}
		return Decision{Status: StatusRejected, Reason: ReasonNoCredits}
	}

	return Decision{Status: StatusRejected, Reason: ReasonNoMatch}
}

// compiled returns the cached compiled pattern, compiling on first use.
// Returns nil for patterns that do not compile; such rules are treated as
// never matching.
func (e *Engine) compiled(pattern string) *regexp.Regexp {
	e.mu.RLock()
	re, ok := e.cache[pattern]
	e.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		e.logger.Warn("skipping rule with malformed pattern",
			"pattern", pattern,
			"error", err,
		)
		re = nil
	}

	e.mu.Lock()
	e.cache[pattern] = re
	e.mu.Unlock()

	return re
}
