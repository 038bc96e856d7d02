// Package app wires configuration, storage, the account service and both
// network listeners into a runnable daemon.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/celerix-dev/celerix-accounts/internal/accounts"
	"github.com/celerix-dev/celerix-accounts/internal/api"
	"github.com/celerix-dev/celerix-accounts/internal/config"
	"github.com/celerix-dev/celerix-accounts/internal/engine"
	"github.com/celerix-dev/celerix-accounts/internal/logging"
	"github.com/celerix-dev/celerix-accounts/internal/server"
	"github.com/celerix-dev/celerix-accounts/internal/vault"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type App struct {
	cfg    config.Config
	log    logging.Logger
	svc    *accounts.Service
	router *gin.Engine
	tcp    *server.Router
}

func New(cfg config.Config, log logging.Logger) (*App, error) {
	store, err := engine.NewFileStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}

	hasher, err := vault.NewHasher(cfg.Auth.PasswordScheme, cfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Auth.PasswordScheme, vault.SchemePlain) {
		log.Warn(context.Background(), "passwords will be stored in plaintext", "scheme", vault.SchemePlain)
	}

	a := &App{
		cfg: cfg,
		log: log,
		svc: accounts.NewService(store, hasher, log, cfg.Store.IOTimeout),
	}
	a.router = newRouter(cfg, a.svc, log.With("listener", "http"))

	if cfg.TCP.Port != "" {
		a.tcp = server.NewRouter(a.svc, log.With("listener", "tcp"))
		if !cfg.TCP.DisableTLS {
			cert, err := vault.GenerateSelfSignedCert()
			if err != nil {
				return nil, fmt.Errorf("generate TLS certificate: %w", err)
			}
			a.tcp.SetCertificate(cert)
		}
	}
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func newRouter(cfg config.Config, svc api.AccountService, log logging.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))
	r.Use(cors.New(corsConfig(cfg.HTTP.AllowOrigins)))

	h := &api.Handler{Accounts: svc}
	h.Register(r)

	if dir := cfg.Static.Dir; dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			files := http.FileServer(http.Dir(dir))
			r.NoRoute(func(c *gin.Context) {
				if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
					c.String(http.StatusNotFound, "Not Found")
					return
				}
				files.ServeHTTP(c.Writer, c.Request)
			})
		}
	}
	return r
}

// requestLogger writes one access line per request through the service logger.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.String())
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn(c.Request.Context(), "http request", args...)
			return
		}
		log.Info(c.Request.Context(), "http request", args...)
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Length", "Accept-Encoding"},
		MaxAge:       12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

// Run serves HTTP (and TCP when enabled) until ctx is cancelled, then shuts
// both listeners down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.cfg.HTTP.Port,
		Handler:      a.router,
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 2)
	go func() {
		a.log.Info(ctx, "http listening", "addr", srv.Addr, "store", a.cfg.Store.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.tcp != nil {
		go func() {
			a.log.Info(ctx, "tcp listening", "port", a.cfg.TCP.Port, "tls", !a.cfg.TCP.DisableTLS)
			if err := a.tcp.Listen(a.cfg.TCP.Port); err != nil {
				errCh <- fmt.Errorf("tcp server: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	a.log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.tcp != nil {
		_ = a.tcp.Stop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("http shutdown: %w", err)
	}
	return runErr
}
