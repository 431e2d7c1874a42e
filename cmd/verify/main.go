// Command verify is the CLI driver for the verification engine (spec.md
// §6's "console frontend", minus any console/GUI rendering beyond a plain
// text or JSON summary, which spec.md §1 excludes). It wires together
// config, dataset, trust, the catalog (via the setup/tally phase package
// imports below, which register their descriptors through blank-imported
// init() functions) and the scheduler, then prints the resulting run.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/config"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/log"
	"github.com/vocdoni/evote-verifier/report"
	"github.com/vocdoni/evote-verifier/runinfo"
	"github.com/vocdoni/evote-verifier/runinfo/store"
	"github.com/vocdoni/evote-verifier/scheduler"
	"github.com/vocdoni/evote-verifier/statusapi"
	"github.com/vocdoni/evote-verifier/trust"

	_ "github.com/vocdoni/evote-verifier/verification/setup"
	_ "github.com/vocdoni/evote-verifier/verification/tally"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	catalog.MustValidate()

	format := ""
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.StringVar(&format, "format", "text", "output format: text or json")
	cfg, err := config.Load(fs, args, ".env", nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	log.Init(cfg.LogLevel, "stderr", nil)

	ds, err := dataset.Open(cfg.DatasetRoot)
	if err != nil {
		log.Errorf("opening dataset: %v", err)
		return 2
	}
	if ds.Phase() != cfg.Phase {
		log.Errorf("dataset at %q is a %s dataset, but -phase=%s was requested", cfg.DatasetRoot, ds.Phase(), cfg.Phase)
		return 2
	}

	var trustVerifier trust.Verifier
	if cfg.TrustStorePath != "" {
		trustVerifier = trust.NewFileStore(cfg.TrustStorePath)
	} else {
		log.Warnf("no -trust-store configured, every Authentication verification will report unknown-authority")
		trustVerifier = trust.NullVerifier{}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.ListenAddr != "" {
		return serveStatusAPI(ctx, cfg, trustVerifier)
	}

	sinks := []report.Sink{report.NewConsoleSink()}
	sink := report.NewMultiSink(sinks...)

	info, err := scheduler.Run(ctx, ds, trustVerifier, cfg.Phase, runinfo.Parameters{
		MaxConcurrency: cfg.MaxConcurrency,
		Excluded:       cfg.Excluded,
	}, sink)
	if err != nil {
		log.Errorf("scheduler: %v", err)
		return 2
	}

	snapshot := info.Snapshot()

	if cfg.RunStorePath != "" {
		if persistErr := persistRun(cfg.RunStorePath, cfg.DatasetRoot, snapshot); persistErr != nil {
			log.Warnf("could not persist run information: %v", persistErr)
		}
	}

	if err := printSnapshot(os.Stdout, format, snapshot); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	switch snapshot.OverallStatus() {
	case catalog.StatusFinishedWithErrors, catalog.StatusFinishedWithFailures:
		return 1
	default:
		return 0
	}
}

func serveStatusAPI(ctx context.Context, cfg config.Config, trustVerifier trust.Verifier) int {
	host, portStr, err := net.SplitHostPort(cfg.ListenAddr)
	if err != nil {
		log.Errorf("invalid -listen address %q: %v", cfg.ListenAddr, err)
		return 2
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		log.Errorf("invalid -listen port %q: %v", portStr, err)
		return 2
	}

	var runStore *store.Store
	if cfg.RunStorePath != "" {
		runStore, err = store.Open(cfg.RunStorePath)
		if err != nil {
			log.Errorf("opening run store: %v", err)
			return 2
		}
		defer runStore.Close()
	}

	if _, err := statusapi.New(&statusapi.Config{
		Host:           host,
		Port:           port,
		Trust:          trustVerifier,
		MaxConcurrency: cfg.MaxConcurrency,
		Store:          runStore,
	}); err != nil {
		log.Errorf("starting status API: %v", err)
		return 2
	}

	<-ctx.Done()
	return 0
}

func persistRun(dir, runID string, snapshot runinfo.Snapshot) error {
	s, err := store.Open(dir)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Put(runID, snapshot)
}

func printSnapshot(w *os.File, format string, snapshot runinfo.Snapshot) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snapshot)
	default:
		return printText(w, snapshot)
	}
}

func printText(w *os.File, snapshot runinfo.Snapshot) error {
	fmt.Fprintf(w, "dataset: %s (%s)\n", snapshot.Root, snapshot.Phase)
	fmt.Fprintf(w, "overall status: %s\n\n", snapshot.OverallStatus())

	ids := make([]string, 0, len(snapshot.Statuses))
	for id := range snapshot.Statuses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(w, "  %-8s %s\n", id, snapshot.Statuses[id])
	}

	if len(snapshot.Anomalies) > 0 {
		fmt.Fprintln(w, "\nanomalies:")
		for _, a := range snapshot.Anomalies {
			fmt.Fprintf(w, "  [%s] %s\n", a.Kind, a.Error())
		}
	}
	return nil
}
