package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "apiprowl",
	Short: "apiprowl - stateful, feedback-driven black-box API fuzzer",
	Long: `apiprowl drives a target HTTP service from its OpenAPI/Swagger
specification: it builds request sequences, tracks which paths,
operations, parameters, status codes, response fields, and content
types get exercised, harvests resource identifiers out of live
responses to chain dependent calls, and falls back to deep mutation
once exploration stalls.`,
	Version: version,
	RunE:    runFuzzer,
}

func init() {
	rootCmd.Flags().StringVar(&specPath, "spec", "examples/target-ncs.json", "Path to the OpenAPI/Swagger specification file")
	rootCmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:8080", "Base URL of the target service")
	rootCmd.Flags().DurationVar(&runTime, "time", defaultRunTime, "Wall-clock fuzzing budget")
	rootCmd.Flags().StringVar(&configPath, "config", "config.json", "Path to the auth/override configuration file")
	rootCmd.Flags().StringVar(&logStyle, "log-style", "terminal", "Log encoding: terminal, json, logfmt, noop")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Minimum log level")
	rootCmd.Flags().IntVar(&healthPort, "health-port", 0, "Port for /healthz, /readyz, /metrics (0 disables)")
}
