package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	_ "wholesale/docs"
	"wholesale/internal/config"
	"wholesale/internal/events"
	httpapi "wholesale/internal/http"
	"wholesale/internal/media"
	"wholesale/internal/metrics"
	"wholesale/internal/notify"
	"wholesale/internal/repository"
	"wholesale/internal/seed"
	"wholesale/internal/service"
)

// @title Wholesale API
// @version 1.0
// @description Wholesale ordering: catalog, order lifecycle with stock reconciliation, rider alerts.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	log.SetFormatter(&log.JSONFormatter{})

	app := &cli.App{
		Name:  "wholesale",
		Usage: "wholesale ordering service",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "run the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Usage: "listen address, overrides WHOLESALE_HTTP_ADDR"},
					&cli.StringFlag{Name: "seed", Usage: "YAML catalog to import on start"},
				},
				Action: serve,
			},
			{
				Name:   "migrate",
				Usage:  "apply database migrations",
				Action: migrate,
			},
			{
				Name:  "seed",
				Usage: "import products and an admin account from YAML",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Value: "catalog.yaml", Usage: "seed file"},
				},
				Action: seedCatalog,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Fatal("wholesale failed")
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Level())
	return cfg, nil
}

type app struct {
	store    repository.Store
	bus      events.Bus
	metrics  *metrics.Metrics
	auth     *service.AuthService
	profiles *service.ProfileService
	products *service.ProductService
	orders   *service.OrderService
	closers  []func() error
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{metrics: metrics.New()}

	switch cfg.StoreDriver {
	case config.StoreMySQL:
		db, err := repository.OpenMySQL(ctx, cfg.MySQLDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.store = repository.NewMySQL(db)
	default:
		log.Warn("using in-memory store, data is lost on restart")
		a.store = repository.NewMemory()
	}

	if cfg.NATSURL != "" {
		nb, err := events.ConnectNATS(cfg.NATSURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.bus = nb
	} else {
		a.bus = events.NewMemoryBus()
	}
	a.closers = append(a.closers, a.bus.Close)

	a.auth = service.NewAuthService(a.store, cfg.SessionTTL, cfg.PendingTrial)
	a.profiles = service.NewProfileService(a.store)
	a.products = service.NewProductService(a.store, a.metrics)
	a.orders = service.NewOrderService(a.store, a.bus, a.metrics)

	if cfg.AdminEmail != "" {
		if _, err := a.auth.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, "Administrator"); err != nil {
			a.close()
			return nil, errors.Wrap(err, "bootstrap admin")
		}
	}
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.WithError(err).Warn("close resource")
		}
	}
}

func applySeed(ctx context.Context, a *app, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open seed file")
	}
	defer f.Close()
	data, err := seed.Parse(f)
	if err != nil {
		return err
	}
	_, err = seed.Apply(ctx, data, a.products, a.auth)
	return err
}

func serve(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addr := c.String("addr"); addr != "" {
		cfg.HTTPAddr = addr
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if path := c.String("seed"); path != "" {
		if err := applySeed(ctx, a, path); err != nil {
			return err
		}
	}

	files, err := media.NewStore(cfg.MediaDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}
	srv := httpapi.NewServer(httpapi.Deps{
		Auth:     a.auth,
		Profiles: a.profiles,
		Products: a.products,
		Orders:   a.orders,
		Riders:   notify.NewRiderChannel(a.bus, a.orders, a.metrics),
		Media:    files,
		Metrics:  a.metrics,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(log.Fields{"addr": httpServer.Addr, "store": cfg.StoreDriver}).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server error")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return errors.Wrap(httpServer.Shutdown(shutdownCtx), "shutdown error")
	})
	return g.Wait()
}

func openMySQL(ctx context.Context) (*sqlx.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.StoreDriver != config.StoreMySQL {
		return nil, errors.New("migrate and seed need WHOLESALE_STORE_DRIVER=mysql")
	}
	return repository.OpenMySQL(ctx, cfg.MySQLDSN)
}

func migrate(c *cli.Context) error {
	db, err := openMySQL(c.Context)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := repository.Migrate(db); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func seedCatalog(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.StoreMySQL {
		return errors.New("seed needs a persistent store, use serve --seed with the memory store")
	}
	a, err := build(c.Context, cfg)
	if err != nil {
		return err
	}
	defer a.close()
	return applySeed(c.Context, a, c.String("file"))
}
