package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahrav/go-judicatura/internal/domain"
)

// Budget limits the total consumption of every client sharing a tracker.
// Zero means unlimited.
type Budget struct {
	MaxTokens int64
	MaxCalls  int64
}

// Validate rejects negative limits.
func (b Budget) Validate() error {
	if b.MaxTokens < 0 {
		return fmt.Errorf("budget: max_tokens cannot be negative, got %d", b.MaxTokens)
	}
	if b.MaxCalls < 0 {
		return fmt.Errorf("budget: max_calls cannot be negative, got %d", b.MaxCalls)
	}
	return nil
}

// Unlimited reports whether neither limit is set.
func (b Budget) Unlimited() bool { return b.MaxTokens == 0 && b.MaxCalls == 0 }

// Usage is the consumption recorded by a BudgetTracker.
type Usage struct {
	Tokens int64
	Calls  int64
}

// BudgetObserver receives budget usage around each request.
type BudgetObserver interface {
	// PreCheck is called with the usage before a request is admitted.
	PreCheck(ctx context.Context, usage Usage, budget Budget)

	// PostCheck is called after the request with the updated usage.
	PostCheck(ctx context.Context, usage Usage, budget Budget, elapsed time.Duration, err error)
}

// BudgetTracker accumulates usage across requests and rejects new ones
// once a limit is reached. It is safe for concurrent use.
type BudgetTracker struct {
	budget   Budget
	observer BudgetObserver

	mu    sync.Mutex
	usage Usage
}

// NewBudgetTracker creates a tracker for budget. observer may be nil.
func NewBudgetTracker(budget Budget, observer BudgetObserver) (*BudgetTracker, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}
	return &BudgetTracker{budget: budget, observer: observer}, nil
}

// Usage returns the consumption recorded so far.
func (t *BudgetTracker) Usage() Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// admit reserves one call, or returns a BudgetExceededError when the
// budget is already spent.
func (t *BudgetTracker) admit() (Usage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.check(t.usage); err != nil {
		return t.usage, err
	}
	t.usage.Calls++
	return t.usage, nil
}

func (t *BudgetTracker) record(tokens int) Usage {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage.Tokens += int64(tokens)
	return t.usage
}

// check reports whether one more call would cross a limit.
func (t *BudgetTracker) check(u Usage) error {
	if t.budget.MaxTokens > 0 && u.Tokens >= t.budget.MaxTokens {
		return domain.NewBudgetExceededError("tokens", t.budget.MaxTokens, u.Tokens)
	}
	if t.budget.MaxCalls > 0 && u.Calls >= t.budget.MaxCalls {
		return domain.NewBudgetExceededError("calls", t.budget.MaxCalls, u.Calls)
	}
	return nil
}

type budgetLLM struct {
	next    CoreLLM
	tracker *BudgetTracker
}

// BudgetMiddleware enforces tracker's limits. Clients built from the same
// Middleware share the tracker. A request already in flight when a limit
// is crossed completes; the next one is rejected.
func BudgetMiddleware(tracker *BudgetTracker) Middleware {
	return func(next CoreLLM) CoreLLM {
		if tracker == nil || tracker.budget.Unlimited() {
			return next
		}
		return &budgetLLM{next: next, tracker: tracker}
	}
}

func (b *budgetLLM) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	obs := b.tracker.observer
	if obs != nil {
		obs.PreCheck(ctx, b.tracker.Usage(), b.tracker.budget)
	}

	usage, err := b.tracker.admit()
	if err != nil {
		if obs != nil {
			obs.PostCheck(ctx, usage, b.tracker.budget, 0, err)
		}
		return "", 0, 0, err
	}

	start := time.Now()
	response, tokensIn, tokensOut, err := b.next.DoRequest(ctx, prompt, opts)
	usage = b.tracker.record(tokensIn + tokensOut)
	if obs != nil {
		obs.PostCheck(ctx, usage, b.tracker.budget, time.Since(start), err)
	}
	return response, tokensIn, tokensOut, err
}

func (b *budgetLLM) GetModel() string      { return b.next.GetModel() }
func (b *budgetLLM) SetModel(model string) { b.next.SetModel(model) }
