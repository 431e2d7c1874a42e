// Package config builds the engine's one immutable Config value from
// command-line flags and an optional .env dotfile (spec.md §6), the way the
// teacher module's main.go builds its own run parameters from flag.*Var
// calls. Config is built once, at process startup, and never mutated after.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/vocdoni/evote-verifier/types"
)

// Config is the fully-resolved set of parameters a run needs: which
// dataset to read, which phase to verify, how much concurrency to spend,
// which verifications to skip, and where the trust store and scratch
// directory live.
type Config struct {
	DatasetRoot    string
	Phase          types.Phase
	MaxConcurrency int
	Excluded       []string
	TrustStorePath string
	DatasetTempDir string
	RunStorePath   string
	ListenAddr     string
	LogLevel       string
}

// Load reads a .env file at dotenvPath, if present, into the process
// environment (godotenv.Load silently succeeds with no file present is not
// assumed here: a missing file is fine, any other error is reported), then
// parses args against flagSet. getenv defaults to os.Getenv; tests pass a
// fake to avoid touching the real environment.
func Load(flagSet *flag.FlagSet, args []string, dotenvPath string, getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}

	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config: loading %s: %w", dotenvPath, err)
		}
	}

	var (
		root           string
		phase          string
		maxConcurrency int
		excluded       string
		trustStore     string
		tempDir        string
		runStore       string
		listenAddr     string
		logLevel       string
	)

	flagSet.StringVar(&root, "root", getenv("VERIFIER_DATASET_ROOT"), "path to the dataset root directory (contains context/ and setup/ or tally/)")
	flagSet.StringVar(&phase, "phase", defaultString(getenv("VERIFIER_PHASE"), "Setup"), "dataset phase to verify: Setup or Tally")
	flagSet.IntVar(&maxConcurrency, "max-concurrency", defaultInt(getenv("VERIFIER_MAX_CONCURRENCY"), 4), "maximum number of verifications (and intra-verification chunks) running concurrently")
	flagSet.StringVar(&excluded, "exclude", getenv("VERIFIER_EXCLUDE"), "comma-separated list of verification ids to skip")
	flagSet.StringVar(&trustStore, "trust-store", getenv("VERIFIER_TRUST_STORE"), "path to the trust store directory of trusted authority certificates")
	flagSet.StringVar(&tempDir, "temp-dir", defaultString(getenv("VERIFIER_TEMP_DIR"), os.TempDir()), "scratch directory for extracted dataset artifacts")
	flagSet.StringVar(&runStore, "run-store", getenv("VERIFIER_RUN_STORE"), "path to the run information store (enables runinfo/store persistence when set)")
	flagSet.StringVar(&listenAddr, "listen", getenv("VERIFIER_LISTEN_ADDR"), "address the status API listens on (empty disables it)")
	flagSet.StringVar(&logLevel, "log-level", defaultString(getenv("VERIFIER_LOG_LEVEL"), "info"), "log level: debug, info, warn, error, fatal")

	if err := flagSet.Parse(args); err != nil {
		return Config{}, fmt.Errorf("config: parsing flags: %w", err)
	}

	if root == "" {
		return Config{}, fmt.Errorf("config: -root is required")
	}

	var p types.Phase
	switch strings.ToLower(phase) {
	case "setup":
		p = types.PhaseSetup
	case "tally":
		p = types.PhaseTally
	default:
		return Config{}, fmt.Errorf("config: -phase must be Setup or Tally, got %q", phase)
	}

	if maxConcurrency < 1 {
		return Config{}, fmt.Errorf("config: -max-concurrency must be >= 1, got %d", maxConcurrency)
	}

	var excludedIDs []string
	for _, id := range strings.Split(excluded, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			excludedIDs = append(excludedIDs, id)
		}
	}

	return Config{
		DatasetRoot:    root,
		Phase:          p,
		MaxConcurrency: maxConcurrency,
		Excluded:       excludedIDs,
		TrustStorePath: trustStore,
		DatasetTempDir: tempDir,
		RunStorePath:   runStore,
		ListenAddr:     listenAddr,
		LogLevel:       logLevel,
	}, nil
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func defaultInt(v string, fallback int) int {
	if v == "" {
		return fallback
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return fallback
	}
	return n
}
