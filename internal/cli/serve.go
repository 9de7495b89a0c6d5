package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/chirag6451/idiom-master/internal/logging"
	"github.com/chirag6451/idiom-master/internal/server"
	"github.com/chirag6451/idiom-master/internal/storage"
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the favorites-sync backend",
	Long: `Run the HTTP backend that clients mirror their favorites to. State is a
SQLite file under the state directory. Set server.username and
server.password in the config to require basic auth; leave them empty
for open access on a trusted network.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := stateDir()
		if err != nil {
			return err
		}

		// Unlike the TUI, the server owns no terminal; logs stay on stderr.
		db, err := storage.Open(filepath.Join(dir, "server.db"))
		if err != nil {
			return err
		}
		defer db.Close()

		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = viper.GetString("server.listen")
		}
		srv := server.New(db, server.Config{
			Username:     viper.GetString("server.username"),
			Password:     viper.GetString("server.password"),
			PerClientRPS: viper.GetFloat64("server.rps"),
			Log:          logging.Log,
		})
		httpServer := &http.Server{
			Addr:    listen,
			Handler: srv.Handler(),
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logging.Log.WithField("addr", listen).Info("favorites backend listening")
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logging.Log.Info("favorites backend stopping")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "HTTP listen address (overrides server.listen)")
}
