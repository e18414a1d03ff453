package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"campsync/internal/logging"
	"campsync/internal/mockwf"
)

func newMockCommand() *cobra.Command {
	var addr string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "mock",
		Short: "Run a scripted stand-in for the workflow backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.New(logging.Config{Level: logLevel})
			logging.SetDefault(logger)

			server := mockwf.NewServer(logging.WithComponent(logger, "mockwf"))
			if err := server.Start(addr); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Close(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8090", "listen address")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}
