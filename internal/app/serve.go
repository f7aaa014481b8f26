package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/daramaccoille/crashalert/internal/metrics"
	"github.com/daramaccoille/crashalert/internal/server"
)

// Serve runs only the HTTP trigger endpoint, without the scheduled cycle
// loop. Useful when another replica owns the schedule.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database.dsn is required to serve the trigger endpoint")
	}
	defer closeStore()

	meters := metrics.New()
	svc := a.newService(store, meters, false)
	srv := server.New(a.Config.Server.Addr, svc, meters, a.Logger)

	err = srv.ListenAndServe(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
