package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/term"

	"github.com/avelinec/hubsync/internal/logger"
	"github.com/avelinec/hubsync/internal/manifest"
	"github.com/avelinec/hubsync/internal/source"
	"github.com/avelinec/hubsync/internal/state"
	"github.com/avelinec/hubsync/internal/stepper"
	"github.com/avelinec/hubsync/internal/stepper/httpadapter"
)

func newLogger(flags *rootFlags) (*logger.Logger, error) {
	level := "info"
	if flags.verbose {
		level = "debug"
	}

	return logger.New(logger.Options{
		Level:   level,
		Pretty:  term.IsTerminal(int(os.Stderr.Fd())),
		NoColor: flags.noColor,
	})
}

func loadManifest(ctx context.Context, flags *rootFlags) (*manifest.Manifest, error) {
	path, cleanup, err := source.Fetch(ctx, flags.manifest)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return manifest.Parse(path)
}

func resolveStatePath(flags *rootFlags, m *manifest.Manifest) (string, error) {
	if flags.statePath != "" {
		return flags.statePath, nil
	}
	if m != nil && m.Settings.StatePath != "" {
		return m.Settings.StatePath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".hubsync", "state.db"), nil
}

func openStore(flags *rootFlags, m *manifest.Manifest) (state.Store, error) {
	path, err := resolveStatePath(flags, m)
	if err != nil {
		return nil, err
	}
	return state.NewBoltStore(path)
}

func resolveConcurrency(flags *rootFlags, m *manifest.Manifest) int {
	if flags.concurrency > 0 {
		return flags.concurrency
	}
	if m != nil && m.Settings.Concurrency > 0 {
		return m.Settings.Concurrency
	}
	return 0
}

func buildStepper(flags *rootFlags, m *manifest.Manifest) (stepper.Stepper, error) {
	endpoint := flags.endpoint
	if endpoint == "" && m != nil {
		endpoint = m.Settings.Endpoint
	}
	if endpoint == "" {
		return nil, errors.New("no flow API endpoint configured: set --endpoint or settings.endpoint")
	}

	var opts []httpadapter.Option
	if flags.token != "" {
		opts = append(opts, httpadapter.WithToken(flags.token))
	}

	client := httpadapter.New(endpoint, opts...)
	return stepper.WithRetry(client, stepper.DefaultRetryPolicy()), nil
}
