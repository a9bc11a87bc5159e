package cli

import (
	"context"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/tilewarp/pkg/errors"
	"github.com/matzehuels/tilewarp/pkg/renderws"
	"github.com/matzehuels/tilewarp/pkg/store"
)

// serveCommand creates the serve command for running a local spec
// server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		backend string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve specs over the render web service API",
		Long: `Run a local render-ws-compatible spec server.

The mem store starts empty and keeps specs for the lifetime of the
process; mongo persists them in the configured database.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, backend)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&backend, "store", "mem", "spec store: mem or mongo")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr, backend string) error {
	var st store.Store
	var err error
	switch backend {
	case "mem":
		st = store.NewMemStore()
	case "mongo":
		cfg := c.config()
		st, err = store.NewMongoStore(ctx, store.MongoOptions{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrCodeConfig, "unknown store %q (use mem or mongo)", backend)
	}
	defer st.Close()

	logger := loggerFromContext(ctx)
	srv := &http.Server{
		Addr:    addr,
		Handler: renderws.NewServer(st, logger),
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("Serving specs", "addr", addr, "store", backend)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("Server stopped")
	return ctx.Err()
}
