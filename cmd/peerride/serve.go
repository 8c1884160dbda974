package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/Peer-Ride/peer-ride-functions/internal/http"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/captcha"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/notify"
	"github.com/Peer-Ride/peer-ride-functions/internal/modules/signup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run the cleanup schedule and notification watcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	gin.SetMode(gin.ReleaseMode)
	trips, err := a.tripService()
	if err != nil {
		return err
	}
	sched, err := a.scheduler()
	if err != nil {
		return err
	}

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Trips:       trips,
		Captcha:     captcha.NewVerifier(a.cfg.Recaptcha),
		Signup:      signup.NewChecker(signup.NewDomainCache(signup.NewFirestoreSource(a.fb.Firestore), a.cfg.Signup.CacheTTL)),
		Verifier:    a.fb.Verifier(),
		Log:         a.log,
		CORSOrigins: a.cfg.HTTP.CORSOrigins,
	})
	server := httptransport.NewServer(a.cfg.HTTP.Addr, handler, a.log)

	runners := []runner{server, sched}
	if a.cfg.Notify.Watch {
		var w *notify.Watcher
		if w, err = a.watcher(); err != nil {
			return err
		}
		runners = append(runners, w)
	}
	return runAll(ctx, runners...)
}

// runner is a long-running part of serve.
type runner interface {
	Run(ctx context.Context) error
}

// runAll starts every runner and waits for all of them. The first error
// cancels the rest.
func runAll(ctx context.Context, rs ...runner) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, r := range rs {
		g.Go(func() error { return r.Run(ctx) })
	}
	return g.Wait()
}
