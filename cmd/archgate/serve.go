package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"archgate/internal/access/handler"
	jwttoken "archgate/internal/jwt_token"
	"archgate/internal/platform/httpserver"
	"archgate/pkg/platform/middleware/admin"
	"archgate/pkg/platform/middleware/auth"
	"archgate/pkg/platform/middleware/request"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the access HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), newRuntimeEnv(cfg))
		},
	}
}

func serve(ctx context.Context, env runtimeEnv) error {
	cfg, log := env.cfg, env.logger

	rt, err := buildRuntime(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		rt.close(closeCtx)
	}()

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	accessHandler := handler.New(rt.service, rt.reloadMapping, log, handler.WithUserInvalidator(rt.resolver.Invalidate))

	r := chi.NewRouter()
	r.Use(request.Context)
	httpserver.RegisterOps(r, rt.registry, rt.healthChecks())
	r.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(jwttoken.NewJWTServiceAdapter(jwtService), log))
		accessHandler.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.Server.AdminToken, log))
		accessHandler.RegisterAdmin(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := rt.recorder.Run(gctx, cfg.Audit.RetryInterval); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.InfoContext(gctx, "archgate listening", "addr", cfg.Server.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.InfoContext(gctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.ErrorContext(ctx, "server stopped with error", "error", err)
		return err
	}
	log.InfoContext(ctx, "server stopped")
	return nil
}
