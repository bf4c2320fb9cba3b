package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/antflydb/apiprowl/authn"
	"github.com/antflydb/apiprowl/engine"
	"github.com/antflydb/apiprowl/logging"
	"github.com/antflydb/apiprowl/metrics"
	"github.com/antflydb/apiprowl/openapi"
	"github.com/antflydb/apiprowl/reportsink"
	"github.com/antflydb/apiprowl/runconfig"
	"github.com/antflydb/apiprowl/transport"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultRunTime = 120 * time.Second

var (
	specPath   string
	baseURL    string
	runTime    time.Duration
	configPath string
	logStyle   string
	logLevel   string
	healthPort int
)

// inferScheme picks the security scheme authn.Authenticate should use
// from which credential fields the config file actually sets: an
// apiKey pair takes precedence over a username/password login, since a
// config carrying key_name/key_value has no use for a login handshake.
func inferScheme(cfg runconfig.Config) authn.SecurityScheme {
	if cfg.KeyName != "" && cfg.KeyValue != "" {
		return authn.SchemeAPIKey
	}
	return authn.SchemeBearer
}

func runFuzzer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	logger := logging.NewLogger(&logging.Config{Style: logging.Style(logStyle), Level: logLevel})
	defer logger.Sync() //nolint:errcheck

	raw, err := os.ReadFile(specPath)
	if err != nil {
		return fmt.Errorf("reading spec file %s: %w", specPath, err)
	}

	if err := openapi.Validate(raw); err != nil {
		logger.Warn("spec failed structural validation, continuing anyway", zap.Error(err))
	}

	doc, err := openapi.LoadDocument(raw)
	if err != nil {
		return fmt.Errorf("loading spec: %w", err)
	}

	endpoints, err := openapi.Parse(doc)
	if err != nil {
		return fmt.Errorf("parsing spec: %w", err)
	}
	if len(endpoints) == 0 {
		logger.Warn("spec declared no endpoints, nothing to fuzz")
		return nil
	}
	info := openapi.BuildSpecInfo(endpoints)

	cfg, err := runconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}

	authClient := &http.Client{Timeout: 5 * time.Second}
	authCfg := &authn.Config{
		AuthPath: cfg.AuthPath,
		Username: cfg.Username,
		Password: cfg.Password,
		KeyName:  cfg.KeyName,
		KeyValue: cfg.KeyValue,
		Token:    cfg.Token,
	}
	authProvider, err := authn.Authenticate(ctx, authClient, baseURL, inferScheme(cfg), authCfg)
	if err != nil {
		logger.Warn("authentication failed, proceeding without auth header", zap.Error(err))
		authProvider = authn.NoAuth
	}

	timestamp := time.Now().Format("20060102_150405")
	bugSink, err := reportsink.NewBugSink(".", timestamp, info)
	if err != nil {
		return fmt.Errorf("creating bug sink: %w", err)
	}
	iterSink, err := reportsink.NewIterationSink(".", timestamp)
	if err != nil {
		return fmt.Errorf("creating iteration log sink: %w", err)
	}

	collectors := metrics.NewCollectors()
	if healthPort > 0 {
		metrics.Start(logger, healthPort, func() bool { return true })
	}

	sender := transport.NewDefaultSender()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	eng := engine.New(endpoints, info, baseURL, sender, authProvider, bugSink, iterSink, collectors, logger, rng)

	logger.Info("seeding corpus", zap.Int("endpoints", len(endpoints)))
	if err := eng.Initialize(ctx); err != nil {
		return fmt.Errorf("seeding corpus: %w", err)
	}

	logger.Info("starting fuzzing loop",
		zap.String("base_url", baseURL),
		zap.Duration("budget", runTime),
		zap.Int("seed_entries", len(eng.Corpus())),
	)

	if err := eng.Run(ctx, runTime); err != nil {
		logger.Error("fuzzing loop exited with error", zap.Error(err))
	}

	if err := bugSink.Flush(); err != nil {
		logger.Error("failed to flush bug log", zap.Error(err))
	}

	logger.Info("fuzzing run complete",
		zap.Int("iterations", eng.Iteration()),
		zap.Int("corpus_size", len(eng.Corpus())),
		zap.String("mode", eng.Mode().String()),
	)

	return nil
}
