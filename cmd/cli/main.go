// Package main implements the citypop CLI for interacting with the API from the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/dsjohal14/citypop/internal/smoke"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var baseURL string

	root := &cobra.Command{
		Use:          "citypop",
		Short:        "citypop CLI",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:8000", "API base URL")

	client := func() *smoke.Client { return smoke.NewClient(baseURL, nil) }

	root.AddCommand(
		&cobra.Command{
			Use:   "health",
			Short: "Show API and store health",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				resp, err := client().Health(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			},
		},
		&cobra.Command{
			Use:   "put CITY POPULATION",
			Short: "Create or replace a city's population",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				population, err := strconv.ParseInt(args[1], 10, 64)
				if err != nil {
					return fmt.Errorf("invalid population %q: %w", args[1], err)
				}
				resp, err := client().Upsert(cmd.Context(), args[0], population)
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			},
		},
		&cobra.Command{
			Use:   "get CITY",
			Short: "Look up a city's population",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				resp, err := client().Lookup(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd, resp)
			},
		},
		newSmokeCmd(client),
	)

	return root
}

func newSmokeCmd(client func() *smoke.Client) *cobra.Command {
	var (
		retries  int
		interval time.Duration
		city     string
	)

	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run the end-to-end smoke test against a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r := smoke.NewRunner(client(), cmd.OutOrStdout())
			r.Retries = retries
			r.Interval = interval
			r.City = city
			return r.Run(cmd.Context())
		},
	}
	cmd.Flags().IntVar(&retries, "retries", smoke.DefaultRetries, "health check attempts before giving up")
	cmd.Flags().DurationVar(&interval, "interval", smoke.DefaultInterval, "sleep between health check attempts")
	cmd.Flags().StringVar(&city, "city", "Metropolis", "city used for the upsert/lookup steps")

	return cmd
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
