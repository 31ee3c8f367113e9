package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/retendo/account/internal/app"
	"github.com/retendo/account/internal/tools/common"
)

func main() {
	var envFile string

	root := &cobra.Command{Use: "account", Short: "Console network account service"}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file loaded before configuration")

	root.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := common.LoadEnvFile(envFile); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.InitializeApp(ctx)
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}
			return a.Run(ctx)
		},
	})

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
