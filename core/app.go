package core

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arctic1879/file-vault/api"
	"github.com/Arctic1879/file-vault/config"
	"github.com/Arctic1879/file-vault/envelope"
	"github.com/Arctic1879/file-vault/export"
	"github.com/Arctic1879/file-vault/monitoring"
	"github.com/Arctic1879/file-vault/namespace"
	"github.com/Arctic1879/file-vault/policy"
	"github.com/Arctic1879/file-vault/reconcile"
	"github.com/Arctic1879/file-vault/utils"
)

type App struct {
	api        *api.API
	store      *namespace.Store
	guard      *policy.Guard
	codec      *envelope.Codec
	exporter   *export.Exporter
	reconciler *reconcile.Reconciler
	monitor    *monitoring.Monitor
	pprof      *monitoring.PProf
	home       string
}

// NewApp initializes and returns a new App instance using the provided home
// directory. It sets up configuration, the database, the envelope codec, and
// the API server. Returns the initialized App or an error if any component
// fails to initialize.
func NewApp(home string) (*App, error) {
	cfg, err := config.Init(home)
	if err != nil {
		return nil, err
	}

	db, err := utils.OpenBadger(os.ExpandEnv(cfg.DataDirectory))
	if err != nil {
		return nil, err
	}

	store := namespace.NewStore(db, cfg.DefaultQuotaBytes)
	guard := policy.NewGuard(store)
	codec := envelope.NewCodec(cfg.FallbackSecret)
	exporter := export.NewExporter(store, codec)
	reconciler := reconcile.NewReconciler(store, guard)
	monitor := monitoring.NewMonitor(store)

	apiServer := api.NewAPI(cfg.APICfg.Port)

	app := &App{
		api:        apiServer,
		store:      store,
		guard:      guard,
		codec:      codec,
		exporter:   exporter,
		reconciler: reconciler,
		monitor:    monitor,
		home:       home,
	}

	if cfg.ProfilingListen != "" {
		app.pprof = monitoring.NewPProf(cfg.ProfilingListen)
	}

	return app, nil
}

func (a *App) Start() error {
	cfg, err := config.Init(a.home)
	if err != nil {
		return err
	}

	go a.api.Serve(a.store, a.guard, a.codec, a.exporter)
	go a.reconciler.Start(cfg.ReconcileInterval)
	go a.monitor.Start()

	if a.pprof != nil {
		a.pprof.Start()
	}

	done := make(chan os.Signal, 1)
	defer signal.Stop(done) // undo signal.Notify effect

	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)
	<-done // Will block here until user hits ctrl+c

	fmt.Println("Shutting File Vault down safely...")

	_ = a.api.Close()
	a.reconciler.Stop()
	a.monitor.Stop()
	if a.pprof != nil {
		_ = a.pprof.Stop()
	}

	time.Sleep(time.Second * 2) // give in-flight requests some time to drain

	if err := a.store.DB().Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
		return err
	}

	return nil
}
