// Package main provides the scrambler binary entry point.
// Scrambler profiles delimited text files and generates synthetic
// look-alike data that keeps the shape of the original without any of
// its values.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"scrambler/internal/config"
	"scrambler/internal/logging"
	"scrambler/internal/metrics"
	"scrambler/internal/metrics/datadog"
	"scrambler/internal/metrics/promexp"
	"scrambler/internal/profile"
	"scrambler/internal/store"
	"scrambler/internal/synth"
	"scrambler/internal/web"
)

const version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrambler",
		Short: "Profile CSV files and generate synthetic look-alike data",
		Long: `Scrambler infers a per-column schema (types, bounds, lengths,
null rates, low-cardinality value sets) from a delimited text file, then
synthesizes fake rows that respect those constraints. With a fixed seed
the output is fully reproducible.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(profileCmd(), generateCmd(), serveCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scrambler version %s\n", version)
		},
	})
	return cmd
}

func profileCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "profile <input.csv>",
		Short: "Profile a CSV file and print the inferred schema as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := profileFile(args[0], mode)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Parse mode: fast or strict (default fast)")
	return cmd
}

func generateCmd() *cobra.Command {
	var (
		mode       string
		rows       int
		output     string
		seed       int64
		decimalSep string
	)

	cmd := &cobra.Command{
		Use:   "generate <input.csv>",
		Short: "Profile a CSV file and write a synthetic look-alike",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := profileFile(args[0], mode)
			if err != nil {
				return err
			}

			var seedPtr *int64
			if cmd.Flags().Changed("seed") {
				seedPtr = &seed
			}

			out, err := synth.NewEngine().ToCSV(res, rows, seedPtr, decimalSep)
			if err != nil {
				return err
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d synthetic rows to %s (encoding %s, delimiter %q)\n",
				rows, output, res.Encoding, res.Delimiter)
			return nil
		},
		Args: cobra.ExactArgs(1),
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Parse mode: fast or strict (default fast)")
	cmd.Flags().IntVar(&rows, "rows", 1000, "Number of synthetic rows to generate")
	cmd.Flags().StringVarP(&output, "output", "o", "synthetic.csv", "Output file path")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for reproducible output")
	cmd.Flags().StringVar(&decimalSep, "decimal-separator", "", "Decimal separator override: '.' or ','")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(os.LookupEnv)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.ListenAddr = addr
			}
			logging.Setup(cfg.LogLevel, cfg.LogFormat)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			webCfg := web.Config{
				Addr:        cfg.ListenAddr,
				CORSOrigins: cfg.CORSOrigins,
				DefaultMode: cfg.DefaultParseMode,
			}

			switch cfg.MetricsBackend {
			case "prometheus":
				prom, err := promexp.NewBackend()
				if err != nil {
					return err
				}
				metrics.SetBackend(prom)
				webCfg.Gatherer = prom.Gatherer()
			case "datadog":
				dd, err := datadog.NewBackend(datadog.Config{
					Addr:      cfg.DogstatsdAddr,
					Namespace: "scrambler.",
				})
				if err != nil {
					return err
				}
				metrics.SetBackend(dd)
				defer func() { _ = metrics.Flush() }()
			}

			if cfg.StorePath != "" {
				st, err := store.Open(ctx, cfg.StorePath)
				if err != nil {
					return err
				}
				defer st.Close()
				webCfg.Store = st
			}

			return web.NewServer(webCfg).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides SCRAMBLER_ADDR)")
	return cmd
}

func profileFile(path, mode string) (*profile.Result, error) {
	m, err := profile.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return profile.NewEngine(nil).FromBytes(content, m)
}
