package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskscheduler/internal/admin"
	"taskscheduler/internal/config"
	"taskscheduler/internal/eventbus"
	"taskscheduler/internal/handler"
	"taskscheduler/internal/pool"
	"taskscheduler/internal/recovery"
	"taskscheduler/internal/registration"
	"taskscheduler/internal/runtime/supervisor"
	"taskscheduler/internal/scheduler"
	"taskscheduler/internal/store"
	logx "taskscheduler/pkg/logx"
)

func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "./config.json", "path to config json")
	flag.StringVar(&addr, "addr", ":8089", "admin HTTP listen address")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, addr); err != nil {
		fmt.Println("fatal:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, addr string) error {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	defer func() { _ = logSvc.Close() }()
	log = log.With(logx.String("comp", "schedulerd"))

	st, err := store.Open(store.Config{
		Enabled:       cfg.Storage.Enabled,
		Type:          cfg.Storage.Type,
		URL:           cfg.Storage.Source.URL,
		BusyTimeoutMS: 5000,
	}, log.With(logx.String("comp", "store")))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	registry := handler.New()
	registerHandlers(registry)
	registry.Seal()

	poolSize := cfg.Pool.Size
	p := pool.New(poolSize)

	sup := supervisor.NewSupervisor(ctx, supervisor.WithLogger(log), supervisor.WithCancelOnError(false))

	awaitTermination := time.Duration(cfg.AwaitTerminationSeconds) * time.Second
	if awaitTermination <= 0 {
		awaitTermination = 60 * time.Second
	}

	bus := eventbus.New()
	sup.Go0("events.log", func(c context.Context) {
		ch, unsubscribe := bus.Subscribe(32)
		defer unsubscribe()
		for {
			select {
			case <-c.Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				log.Debug("lifecycle event", logx.String("type", ev.Type), logx.Any("data", ev.Data))
			}
		}
	})

	sched := scheduler.New(st, registry, p, sup, log.With(logx.String("comp", "scheduler")), 0, scheduler.WithEventBus(bus))

	if _, err := registration.Run(ctx, st, declaredTasks(), log.With(logx.String("comp", "registration"))); err != nil {
		return fmt.Errorf("registration: %w", err)
	}

	if err := recovery.Run(ctx, st, sched, log.With(logx.String("comp", "recovery"))); err != nil {
		return fmt.Errorf("recovery: %w", err)
	}

	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, newCfg *config.Config) error {
		if newCfg.Pool.Size < 0 {
			return fmt.Errorf("pool.size must be >= 0")
		}
		return nil
	})
	cfgm.Commit(cfg)

	sub := cfgm.Subscribe(8)
	sup.Go0("config.reload", func(c context.Context) {
		defer cfgm.Unsubscribe(sub)
		lastApplied := cfgm.Get()
		for {
			select {
			case <-c.Done():
				return
			case newCfg, ok := <-sub:
				if !ok {
					return
				}
				sections, attrs := config.SummarizeConfigChange(lastApplied, newCfg)
				if len(sections) > 0 {
					log.Info("config change applied", append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)...)
					logSvc.Apply(logx.Config{
						Level:   newCfg.Logging.Level,
						Console: newCfg.Logging.Console,
						File: logx.FileConfig{
							Enabled: newCfg.Logging.File.Enabled,
							Path:    newCfg.Logging.File.Path,
						},
					})
				}
				lastApplied = newCfg
			}
		}
	})
	sup.Go("config.watch", cfgm.Watch)

	sup.GoRestart0("scheduler.sweep_invalid", func(c context.Context) {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-c.Done():
				return
			case <-ticker.C:
				if err := sched.SweepInvalidTasks(c); err != nil {
					log.Warn("sweep failed", logx.Err(err))
				}
			}
		}
	})

	adminSvc := admin.New(sched, st)
	httpSrv := &http.Server{Addr: addr, Handler: admin.NewHandler(adminSvc, 50)}
	sup.Go("admin.http", func(c context.Context) error {
		errCh := make(chan error, 1)
		go func() { errCh <- httpSrv.ListenAndServe() }()
		select {
		case <-c.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		}
	})

	log.Info("schedulerd started", logx.String("addr", addr), logx.Int("pool_size", p.Size()))

	<-ctx.Done()
	log.Info("shutting down")

	return sched.Shutdown(context.Background(), awaitTermination)
}

// registerHandlers binds persisted (beanClassName, beanName) identifiers to
// live callables. The host owns this list; the core never scans for it.
func registerHandlers(reg *handler.Registry) {
	reg.RegisterType("housekeeping.LogRotation", func(ctx context.Context) error {
		return nil
	})
}

// declaredTasks is the host's static job declaration, ingested once at
// startup by registration.Run.
func declaredTasks() []registration.Declaration {
	return []registration.Declaration{
		{
			Handler: registration.HandlerDescriptor{
				BeanClassName: "housekeeping.LogRotation",
				MethodName:    "Run",
			},
			Specs: []registration.ExecutionSpec{
				{CronExpr: "@every 1h", Desc: "rotate logs hourly"},
			},
		},
	}
}
