// Package main boots the Order Admission Simulator.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/order-admission-simulator/internal/app"
	"github.com/fairyhunter13/order-admission-simulator/internal/config"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/obs"
	"github.com/fairyhunter13/order-admission-simulator/internal/pricing"
	"github.com/fairyhunter13/order-admission-simulator/internal/scenario"
	"github.com/fairyhunter13/order-admission-simulator/internal/store/postgres"
)

func main() {
	obs.InitLogger()
	defer obs.Sync()

	rootCmd := &cobra.Command{
		Use:           "order-admission-simulator",
		Short:         "admit orders against an inventory and track backorders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		simulateCommand(),
		quoteCommand(),
		migrateCommand(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		obs.Logger.Errorw("command_failed", "error", err)
		obs.Sync()
		os.Exit(1)
	}
}

func simulateCommand() *cobra.Command {
	var scenarioPath string
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "run a scenario file through the admission engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()
			obs.Logger.Infow("service_starting", "store_backend", cfg.StoreBackend, "worker_count", cfg.InitialWorkerCount)

			sc, err := scenario.Load(scenarioPath)
			if err != nil {
				return err
			}
			backend, err := app.OpenBackend(ctx, cfg)
			if err != nil {
				return err
			}
			a := app.New(ctx, cfg, backend)
			defer func() {
				if err := a.Close(); err != nil {
					obs.Logger.Errorw("shutdown_error", "error", err)
				}
				obs.Logger.Infow("service_stopped")
			}()

			rep, err := a.Run(ctx, sc)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
	cmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "", "path to a scenario YAML file")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func quoteCommand() *cobra.Command {
	var (
		price, quantity int64
		count           string
		available       string
	)
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "price one order with tiered discounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := model.Product{ID: 1, Price: price}
			switch available {
			case "true":
				p.Available = model.Bool(true)
			case "false":
				p.Available = model.Bool(false)
			case "unknown", "":
			default:
				return fmt.Errorf("--available must be true, false or unknown, got %q", available)
			}
			if count != "" {
				n, err := strconv.ParseInt(count, 10, 64)
				if err != nil {
					return fmt.Errorf("--count: %w", err)
				}
				p.Count = &n
			}
			c := model.Customer{Order: model.Order{ProductID: p.ID, Quantity: quantity}}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), pricing.QuoteFor(&p, c).Message())
			return err
		},
	}
	cmd.Flags().Int64Var(&price, "price", 0, "unit price")
	cmd.Flags().Int64Var(&quantity, "quantity", 1, "ordered quantity")
	cmd.Flags().StringVar(&count, "count", "", "stock count (empty means unknown)")
	cmd.Flags().StringVar(&available, "available", "true", "availability: true, false or unknown")
	return cmd
}

func migrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "create the postgres tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			ctx := cmd.Context()
			pg, err := postgres.New(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.Migrate(ctx); err != nil {
				return err
			}
			obs.Logger.Infow("migration_complete")
			return nil
		},
	}
}
