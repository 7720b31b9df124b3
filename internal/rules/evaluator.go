package rules

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/khanglvm/hybrid-rank/internal/catalog"
	"github.com/khanglvm/hybrid-rank/internal/expr"
	"github.com/khanglvm/hybrid-rank/internal/metrics"
	"github.com/khanglvm/hybrid-rank/internal/prefs"
	"github.com/khanglvm/hybrid-rank/internal/query"
)

// maxCachedPrograms bounds the compiled-condition cache. The cache is
// dropped wholesale when it fills up.
const maxCachedPrograms = 1024

// Outcome is the result of applying a rule set to one item.
type Outcome struct {
	// Fired holds the explanation of every firing rule, in rule order.
	Fired []string

	// Weight is the sum of the firing rules' weights.
	Weight float64

	// Failures counts rules whose condition failed to parse or evaluate.
	Failures int
}

type compiled struct {
	prog *expr.Program
	err  error
}

// Evaluator applies rule sets. Compiled conditions are cached by source
// text, parse failures included. Safe for concurrent use.
type Evaluator struct {
	mu    sync.RWMutex
	cache map[string]compiled
}

// NewEvaluator returns an evaluator with an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{cache: make(map[string]compiled)}
}

// Apply evaluates every rule against it. A rule whose condition fails to
// parse or evaluate does not fire; the failure is counted, never returned.
func (e *Evaluator) Apply(it *catalog.Item, user query.UserContext, rec prefs.Record, rules []Rule) Outcome {
	return e.ApplyEnv(Bindings(it, user, rec), it, rules)
}

// ApplyEnv is Apply with a prebuilt environment. The item aliases in env
// are rebound to it.
func (e *Evaluator) ApplyEnv(env expr.Env, it *catalog.Item, rules []Rule) Outcome {
	bindItem(env, it)

	out := Outcome{Fired: []string{}}
	for _, r := range rules {
		ok, stage, err := e.eval(r.Condition, env)
		if err != nil {
			out.Failures++
			metrics.RuleFailures.WithLabelValues(stage).Inc()
			log.Debug().Err(err).Str("rule", r.Name).Int64("item", itemID(it)).Msg("rule condition failed")
			continue
		}
		if ok {
			out.Fired = append(out.Fired, r.Explanation())
			out.Weight += r.EffectiveWeight()
		}
	}
	return out
}

// PassEnv returns an environment for a ranking pass: everything bound
// except the item. Pass it to ApplyEnv for each item.
func PassEnv(user query.UserContext, rec prefs.Record) expr.Env {
	return expr.Merge(baseEnv, Context(user, rec))
}

// eval reports the failing stage along with any error.
func (e *Evaluator) eval(cond string, env expr.Env) (bool, string, error) {
	prog, err := e.compile(cond)
	if err != nil {
		return false, metrics.RuleParse, err
	}
	ok, err := prog.EvalBool(env)
	return ok, metrics.RuleEval, err
}

func (e *Evaluator) compile(cond string) (*expr.Program, error) {
	e.mu.RLock()
	c, ok := e.cache[cond]
	e.mu.RUnlock()
	if ok {
		return c.prog, c.err
	}

	prog, err := expr.Compile(cond)

	e.mu.Lock()
	if len(e.cache) >= maxCachedPrograms {
		e.cache = make(map[string]compiled)
	}
	e.cache[cond] = compiled{prog: prog, err: err}
	e.mu.Unlock()

	return prog, err
}

// Issue is a problem found by Check.
type Issue struct {
	Index int    `json:"index"`
	Rule  string `json:"rule"`
	Err   error  `json:"-"`
	Msg   string `json:"message"`
}

func (i Issue) Error() string {
	return fmt.Sprintf("rule %d (%s): %s", i.Index, i.Rule, i.Msg)
}

// Check compiles every rule and reports syntax errors and references to
// names outside the evaluation vocabulary. It does not evaluate anything.
func Check(rules []Rule) []Issue {
	vocab := Vocabulary()

	var issues []Issue
	add := func(i int, r Rule, err error) {
		issues = append(issues, Issue{Index: i, Rule: r.Name, Err: err, Msg: err.Error()})
	}

	for i, r := range rules {
		if err := validate.Struct(&r); err != nil {
			add(i, r, err)
		}
		prog, err := expr.Compile(r.Condition)
		if err != nil {
			add(i, r, err)
			continue
		}
		for _, name := range expr.Identifiers(prog.Root()) {
			if _, found := slices.BinarySearch(vocab, name); !found {
				add(i, r, fmt.Errorf("%w: %s", expr.ErrUnknownIdentifier, name))
			}
		}
	}
	return issues
}

// JoinIssues folds issues into a single error, nil when there are none.
func JoinIssues(issues []Issue) error {
	errs := make([]error, len(issues))
	for i, is := range issues {
		errs[i] = is
	}
	return errors.Join(errs...)
}

func itemID(it *catalog.Item) int64 {
	if it == nil {
		return 0
	}
	return it.ID
}
