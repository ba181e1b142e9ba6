// orchestrator.go
package main

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"riskguard/cache"
	"riskguard/config"
	"riskguard/enforce"
	"riskguard/engine"
	"riskguard/logs"
	"riskguard/monitor"
	"riskguard/notify"
	"riskguard/platform"
	"riskguard/recorder"
	"riskguard/state"
	"riskguard/store"
)

// Orchestrator owns every long-lived component and their lifecycle: the
// platform client, the rule/metadata cache, the evaluator with its daily
// anchors, the enforcement executor, notification fan-out, persistence and
// the monitor loop plus the daily-reset cron job.
type Orchestrator struct {
	client      platform.Client
	cache       *cache.Cache
	evaluator   *engine.Evaluator
	executor    *enforce.Executor
	webhook     *notify.Webhook
	hub         *notify.Hub
	settlements state.SettlementStore
	rec         recorder.Recorder
	monitor     *monitor.Monitor
	scheduler   *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	cfg    *config.Config
}

func NewOrchestrator(cfg *config.Config, envCfg *config.EnvConfig) (*Orchestrator, error) {
	var client platform.Client
	var accountStore store.AccountStore

	if cfg.UseSimulation {
		mockClient := platform.NewMockClient()
		staticStore := &store.StaticStore{}
		seedSimulation(mockClient, staticStore)
		client = mockClient
		accountStore = staticStore
		logs.Warnf("<<<<<<<<<< WARNING: Running in simulation mode >>>>>>>>>>")
	} else {
		bridge := platform.NewBridgeClient(cfg.Bridge.BaseURL, envCfg.BridgeToken, cfg.Bridge.TimeoutSeconds)
		// Fail fast on a dead bridge rather than ticking against it.
		pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := bridge.Ping(pingCtx); err != nil {
			return nil, fmt.Errorf("bridge unreachable at startup: %w", err)
		}
		client = bridge
		accountStore = store.NewHTTPStore(cfg.Store.BaseURL, envCfg.StoreKey, cfg.Store.TimeoutSeconds)
	}

	settlementPath := filepath.Join(cfg.Normal.StateDirectory, "settlements.json")
	settlements, err := state.NewFileStore(settlementPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize settlement store: %w", err)
	}
	logs.Infof("Settlement store initialized, state will be persisted to: %s", settlementPath)

	var rec recorder.Recorder = recorder.Noop{}
	if cfg.Recorder.SQLitePath != "" {
		sqliteRec, err := recorder.NewSQLiteRecorder(cfg.Recorder.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize violation journal: %w", err)
		}
		rec = sqliteRec
		logs.Infof("Violation journal initialized at: %s", cfg.Recorder.SQLitePath)
	}

	ruleCache := cache.New(accountStore, cfg.Risk.RulesFile)
	evaluator := engine.NewEvaluator(cfg.Risk.DefaultMaxDrawdownPercent, cfg.Risk.DefaultDailyDrawdownPercent)
	executor := enforce.NewExecutor(client, cfg.CloseTool)
	webhook := notify.NewWebhook(cfg.Webhook.URL, envCfg.WebhookSecret, cfg.Webhook.TimeoutSeconds)
	hub := notify.NewHub()

	mon := monitor.New(client, ruleCache, evaluator, executor, webhook, hub, settlements, rec, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	o := &Orchestrator{
		client:      client,
		cache:       ruleCache,
		evaluator:   evaluator,
		executor:    executor,
		webhook:     webhook,
		hub:         hub,
		settlements: settlements,
		rec:         rec,
		monitor:     mon,
		scheduler:   cron.New(cron.WithLocation(time.UTC)),
		ctx:         ctx,
		cancel:      cancel,
		cfg:         cfg,
	}

	if _, err := o.scheduler.AddFunc("0 0 * * *", o.resetDailyAnchors); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to schedule daily reset job: %w", err)
	}

	return o, nil
}

// resetDailyAnchors re-anchors every watched account to its live equity at
// the GMT day boundary, so the first evaluation of the new day measures
// daily drawdown from the right baseline.
func (o *Orchestrator) resetDailyAnchors() {
	ctx, cancel := context.WithTimeout(o.ctx, 2*time.Minute)
	defer cancel()

	equities := make(map[int64]float64)
	for _, login := range o.cache.Logins() {
		snap, err := o.client.GetAccount(ctx, login)
		if err != nil {
			logs.Warnf("[DailyReset] Failed to fetch equity for %d: %v", login, err)
			continue
		}
		equities[login] = snap.Equity
	}
	o.evaluator.ResetAnchors(equities)
}

func (o *Orchestrator) Start() {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.monitor.Run(o.ctx)
	}()
	o.scheduler.Start()
	logs.Info("Risk enforcement engine started, press Ctrl+C to exit.")
}

func (o *Orchestrator) Stop() {
	logs.Info("Received close signal, starting graceful shutdown...")

	schedCtx := o.scheduler.Stop()
	<-schedCtx.Done()

	o.cancel()
	o.wg.Wait()

	if err := o.rec.Close(); err != nil {
		logs.Errorf("Failed to close violation journal: %v", err)
	}

	o.printFinalSummary()
	logs.Info("All services stopped successfully.")
}

func (o *Orchestrator) printFinalSummary() {
	settled := o.settlements.Logins()
	logs.Info("--- Final Summary ---")
	logs.Infof("Accounts under watch: %d", o.cache.AccountCount())
	logs.Infof("Settled accounts: %d", len(settled))
	for _, login := range settled {
		logs.Infof("  settled: %d", login)
	}
	logs.Info("---------------------")
}

// seedSimulation installs a small deterministic book so simulation mode has
// accounts to evaluate: one healthy, one near its daily limit, one funded.
func seedSimulation(client *platform.MockClient, accountStore *store.StaticStore) {
	client.SeedAccount(platform.Account{Login: 1001, Group: "demo\\phase_1", Equity: 99500, Balance: 99500, Enabled: true, Rights: 1})
	client.SeedAccount(platform.Account{Login: 1002, Group: "demo\\phase_1", Equity: 95200, Balance: 96100, Enabled: true, Rights: 1})
	client.SeedAccount(platform.Account{Login: 1003, Group: "demo\\funded", Equity: 203000, Balance: 201000, Enabled: true, Rights: 1})
	client.SeedPositions(1002, []platform.Position{
		{Ticket: 50001, Symbol: "EURUSD", Volume: 1.5, Profit: -900, Swap: -12.5, Commission: -7},
	})

	accountStore.Accounts = []store.AccountMetadata{
		{Login: 1001, InitialBalance: 100000, Type: "phase_1", Status: "active"},
		{Login: 1002, InitialBalance: 100000, Type: "phase_1", Status: "active", StartOfDayEquity: 99800},
		{Login: 1003, InitialBalance: 200000, Type: "funded", Status: "active"},
	}
}
