// monitor/monitor.go
package monitor

import (
	"context"
	"sync"
	"time"

	"riskguard/cache"
	"riskguard/config"
	"riskguard/enforce"
	"riskguard/engine"
	"riskguard/logs"
	"riskguard/notify"
	"riskguard/platform"
	"riskguard/recorder"
	"riskguard/rules"
	"riskguard/state"
)

// Monitor drives the evaluation loop: every tick it walks the cached
// account set, evaluates each live snapshot and settles terminal verdicts
// exactly once. Enforcement, webhook delivery and journaling run off the
// loop goroutine so one slow account never delays the rest.
type Monitor struct {
	client      platform.Client
	cache       *cache.Cache
	evaluator   *engine.Evaluator
	executor    *enforce.Executor
	webhook     *notify.Webhook
	hub         *notify.Hub
	settlements state.SettlementStore
	rec         recorder.Recorder
	cfg         *config.Config

	wg sync.WaitGroup
}

// New creates a monitor over fully constructed components.
func New(
	client platform.Client,
	ruleCache *cache.Cache,
	evaluator *engine.Evaluator,
	executor *enforce.Executor,
	webhook *notify.Webhook,
	hub *notify.Hub,
	settlements state.SettlementStore,
	rec recorder.Recorder,
	cfg *config.Config,
) *Monitor {
	return &Monitor{
		client:      client,
		cache:       ruleCache,
		evaluator:   evaluator,
		executor:    executor,
		webhook:     webhook,
		hub:         hub,
		settlements: settlements,
		rec:         rec,
		cfg:         cfg,
	}
}

// Run blocks until ctx is cancelled, evaluating every cached account on
// each tick. All outstanding enforcement goroutines are awaited before
// returning so shutdown never abandons a half-settled account.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(m.cfg.Normal.MonitorIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	cacheMaxAge := time.Duration(m.cfg.Normal.CacheRefreshSeconds) * time.Second
	heartbeatInterval := time.Duration(m.cfg.Normal.HeartbeatIntervalMinutes) * time.Minute
	lastHeartbeat := time.Now()

	// First refresh before the loop so the first tick has accounts to walk.
	if err := m.cache.Refresh(ctx); err != nil {
		logs.Errorf("[Monitor] Initial cache refresh failed: %v", err)
	}

	for {
		select {
		case <-ctx.Done():
			logs.Info("Monitor received stop signal, exiting.")
			m.wg.Wait()
			return
		case <-ticker.C:
			if m.cache.Stale(cacheMaxAge) {
				if err := m.cache.Refresh(ctx); err != nil {
					logs.Errorf("[Monitor] Cache refresh failed, using previous snapshot: %v", err)
				}
			}

			for _, login := range m.cache.Logins() {
				m.checkAccount(ctx, login)
			}

			if time.Since(lastHeartbeat) >= heartbeatInterval {
				logs.Infof("[Heartbeat] Monitor running, %d accounts under watch, %d settled",
					m.cache.AccountCount(), len(m.settlements.Logins()))
				lastHeartbeat = time.Now()
			}
		}
	}
}

// checkAccount evaluates one login. A panic while handling one account is
// recovered and logged so the loop survives malformed data.
func (m *Monitor) checkAccount(ctx context.Context, login int64) {
	defer func() {
		if r := recover(); r != nil {
			logs.Errorf("[Monitor] Panic while checking %d: %v", login, r)
		}
	}()

	snap, err := m.client.GetAccount(ctx, login)
	if err != nil {
		// Transient fetch errors skip the cycle; the next tick retries.
		logs.Warnf("[Monitor] Failed to fetch snapshot for %d: %v", login, err)
		return
	}

	m.hub.Publish(notify.Snapshot{
		Login:      snap.Login,
		Equity:     snap.Equity,
		Balance:    snap.Balance,
		FloatingPL: snap.Equity - snap.Balance,
		At:         time.Now().UTC(),
	})

	// Settled accounts stay visible on the hub but are never re-judged.
	if m.settlements.IsSettled(login) {
		return
	}

	meta, ok := m.cache.MetadataFor(login)
	if !ok {
		return
	}
	var rule *rules.Rule
	if r, ok := m.cache.RuleFor(snap.Group); ok {
		rule = &r
	}

	verdict := m.evaluator.Evaluate(snap, meta, rule)
	if verdict.Kind == engine.VerdictSafe {
		return
	}

	// Settle before firing side effects: a slow enforcement goroutine must
	// not let the next tick re-fire the same account.
	if err := m.settlements.MarkSettled(login, string(verdict.Kind), time.Now().UTC()); err != nil {
		logs.Errorf("[Monitor] Failed to persist settlement for %d, deferring enforcement: %v", login, err)
		return
	}

	equity, balance := snap.Equity, snap.Balance
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				logs.Errorf("[Monitor] Panic while settling %d: %v", login, r)
			}
		}()
		m.settle(ctx, login, verdict, equity, balance)
	}()
}

// settle runs the full terminal-verdict sequence for one login.
func (m *Monitor) settle(ctx context.Context, login int64, verdict engine.Verdict, equity, balance float64) {
	var eventID string

	if verdict.Kind.Breached() {
		logs.Warnf("[Monitor] Login %d breached %s: equity %.2f vs limit %.2f", login, verdict.Kind, equity, verdict.Limit)

		if err := m.executor.DisableAccount(ctx, login); err != nil {
			logs.Errorf("[Monitor] Failed to disable %d: %v", login, err)
		}

		closedPos, totalPos, posAttempts := m.executor.ClosePositions(ctx, login)
		closedOrd, totalOrd, ordAttempts := m.executor.CloseOrders(ctx, login)
		logs.Infof("[Monitor] Login %d: closed %d/%d positions, %d/%d orders", login, closedPos, totalPos, closedOrd, totalOrd)

		attempts := append(posAttempts, ordAttempts...)
		if err := m.rec.RecordEnforcement(ctx, login, attempts); err != nil {
			logs.Errorf("[Monitor] Failed to journal enforcement for %d: %v", login, err)
		}

		eventID = m.webhook.PublishBreach(login, string(verdict.Kind), equity, balance, verdict.Limit, verdict.Reference)
	} else {
		logs.Infof("[Monitor] Login %d passed: equity %.2f reached target %.2f", login, equity, verdict.Target)
		eventID = m.webhook.PublishPass(login, equity, balance, verdict.Target)
	}

	if err := m.rec.RecordViolation(ctx, recorder.Violation{
		Login:     login,
		Kind:      string(verdict.Kind),
		Equity:    equity,
		Balance:   balance,
		Limit:     verdict.Limit,
		Reference: verdict.Reference,
		EventID:   eventID,
		At:        time.Now().UTC(),
	}); err != nil {
		logs.Errorf("[Monitor] Failed to journal violation for %d: %v", login, err)
	}
}
