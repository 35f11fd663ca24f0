package main

import (
	"context"
	"encoding/json"
	"net/url"
	"os"
	"time"

	"github.com/form3tech-oss/pact-orders/internal/app/configuration"
	"github.com/form3tech-oss/pact-orders/pkg/provider"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type options struct {
	provider     string
	baseURL      string
	stateURL     string
	readyTimeout time.Duration
	logLevel     string
	jsonReport   bool
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "contract-verifier [flags] PACT_FILE...",
		Short: "Replay HTTP contracts against a running provider",
		Args:  cobra.MinimumNArgs(1),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configuration.ConfigureLogging(opts.logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, args)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.provider, "provider", "", "provider name the contracts must be for")
	flags.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "provider base URL")
	flags.StringVar(&opts.stateURL, "state-url", "", "provider states URL, defaults to <base-url>/provider-states")
	flags.DurationVar(&opts.readyTimeout, "ready-timeout", 10*time.Second, "how long to wait for the provider to accept connections")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")
	flags.BoolVar(&opts.jsonReport, "json", false, "print the verification reports as JSON")
	_ = cmd.MarkFlagRequired("provider")

	return cmd
}

func run(ctx context.Context, opts *options, files []string) error {
	baseURL, err := url.Parse(opts.baseURL)
	if err != nil {
		return errors.Wrap(err, "invalid base URL")
	}
	stateURL := baseURL.JoinPath("provider-states")
	if opts.stateURL != "" {
		if stateURL, err = url.Parse(opts.stateURL); err != nil {
			return errors.Wrap(err, "invalid state URL")
		}
	}

	verifier := &provider.Verifier{
		Provider:     opts.provider,
		BaseURL:      baseURL,
		StateURL:     stateURL,
		ReadyTimeout: opts.readyTimeout,
	}

	var reports []*provider.Report
	var failed error
	for _, file := range files {
		report, err := verifier.VerifyFile(ctx, file)
		if err != nil {
			return errors.Wrapf(err, "verify %s", file)
		}
		reports = append(reports, report)

		if err := report.Err(); err != nil {
			log.Error(err)
			var cerr *provider.ConnectivityError
			if errors.As(err, &cerr) {
				failed = errors.Errorf("%s could not be fully verified", file)
				continue
			}
			failed = errors.Errorf("%s failed verification", file)
			continue
		}
		log.Infof("%s: %d interaction(s) verified", file, len(report.Results))
	}

	if opts.jsonReport {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return errors.Wrap(err, "write report")
		}
	}
	return failed
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
