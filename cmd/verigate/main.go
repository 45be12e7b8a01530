// Command verigate is the verification-gate CLI: it serves the Monitor
// API, drives a single task through the Orchestrator, or runs the Gate and
// offline verifier directly against an already-sealed task directory.
//
// Usage:
//
//	verigate serve   [-addr :8090]
//	verigate run     -commitment commitment.json [-claim claim.json]
//	verigate gate    -task-dir <dir> [-profiles profiles.json]
//	verigate verify  -task-dir <dir> [-profiles profiles.json]
//
// The artifact root, Evidence DB driver and path, and adapter directory are
// not flags; they come from the environment (see pkg/config).
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"

	"github.com/Mindburn-Labs/verigate/pkg/api"
	"github.com/Mindburn-Labs/verigate/pkg/config"
	"github.com/Mindburn-Labs/verigate/pkg/gate"
	"github.com/Mindburn-Labs/verigate/pkg/monitor"
	"github.com/Mindburn-Labs/verigate/pkg/orchestrator"
	"github.com/Mindburn-Labs/verigate/pkg/runtime"
	"github.com/Mindburn-Labs/verigate/pkg/store/artifacts"
	"github.com/Mindburn-Labs/verigate/pkg/store/evidence"
	"github.com/Mindburn-Labs/verigate/pkg/task"
	"github.com/Mindburn-Labs/verigate/pkg/verifier"
)

// Exit codes per the gate/orchestrator contract: 0 pass, 1 fail,
// 2 partial, 3 internal error.
const (
	exitPass     = 0
	exitFail     = 1
	exitPartial  = 2
	exitInternal = 3
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(exitInternal)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "run":
		err = runTask(os.Args[2:])
	case "gate":
		err = runGate(os.Args[2:])
	case "verify":
		err = runVerify(os.Args[2:])
	default:
		usage()
		os.Exit(exitInternal)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "verigate:", err)
		os.Exit(exitInternal)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: verigate <serve|run|gate|verify> [flags]")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "monitor bind address (default from VERIGATE_MONITOR_ADDR)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := config.Load()
	if *addr != "" {
		cfg.MonitorAddr = *addr
	}

	store, err := openEvidenceStore(cfg)
	if err != nil {
		return err
	}
	if err := store.Init(context.Background()); err != nil {
		return fmt.Errorf("init evidence db: %w", err)
	}

	handler := monitor.NewHandler(store)
	if cfg.DBDriver == "postgres" {
		// A durable idempotency backend so a retried POST /api/verdict is
		// deduplicated the same way across Monitor instances behind a
		// load balancer, not just within one process's memory.
		idbDB, err := sql.Open("postgres", cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open postgres for idempotency store: %w", err)
		}
		handler = monitor.NewHandlerWithIdempotency(store, api.NewPostgresIdempotencyStore(idbDB, 10*time.Minute))
	}

	slog.Info("monitor listening", "addr", cfg.MonitorAddr)
	return http.ListenAndServe(cfg.MonitorAddr, handler)
}

func runTask(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	commitmentPath := fs.String("commitment", "", "path to commitment.json (required)")
	claimPath := fs.String("claim", "", "path to claim.json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *commitmentPath == "" {
		return fmt.Errorf("run: -commitment is required")
	}

	commitmentData, err := os.ReadFile(*commitmentPath)
	if err != nil {
		return fmt.Errorf("read commitment: %w", err)
	}
	var commitment task.Commitment
	if err := json.Unmarshal(commitmentData, &commitment); err != nil {
		return fmt.Errorf("parse commitment: %w", err)
	}

	var claimData []byte
	if *claimPath != "" {
		claimData, err = os.ReadFile(*claimPath)
		if err != nil {
			return fmt.Errorf("read claim: %w", err)
		}
	}

	cfg := config.Load()

	artifactStore, err := artifacts.NewStore(cfg.ArtifactRoot)
	if err != nil {
		return fmt.Errorf("open artifact store: %w", err)
	}

	idx, err := runtime.BuildIndex(cfg.AdapterDir)
	if err != nil {
		return fmt.Errorf("build adapter index: %w", err)
	}

	evidenceStore, err := openEvidenceStore(cfg)
	if err != nil {
		return err
	}
	if err := evidenceStore.Init(context.Background()); err != nil {
		return fmt.Errorf("init evidence db: %w", err)
	}

	registry, err := gate.LoadRegistry(filepath.Join(cfg.AdapterDir, "profiles.json"))
	if err != nil {
		return fmt.Errorf("load profile registry: %w", err)
	}

	o := &orchestrator.Orchestrator{
		Artifacts: artifactStore,
		Runtime:   idx,
		Evidence:  evidenceStore,
		Profiles:  registry,
	}

	verdict, err := o.Run(context.Background(), commitment, claimData)
	if err != nil {
		return err
	}

	printVerdict(verdict)
	os.Exit(exitCodeFor(verdict.Status))
	return nil
}

func runGate(args []string) error {
	fs := flag.NewFlagSet("gate", flag.ExitOnError)
	taskDir := fs.String("task-dir", "", "sealed task directory (required)")
	profilesPath := fs.String("profiles", "", "path to profiles.json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskDir == "" {
		return fmt.Errorf("gate: -task-dir is required")
	}

	commitment, err := readCommitment(filepath.Join(*taskDir, "commitment.json"))
	if err != nil {
		return err
	}

	claimData, _ := os.ReadFile(filepath.Join(*taskDir, "claim.json"))
	claim, claimErr := task.ParseClaim(claimData, commitment.TaskID)

	registry, err := gate.LoadRegistry(*profilesPath)
	if err != nil {
		return fmt.Errorf("load profile registry: %w", err)
	}

	verdict, err := gate.Evaluate(gate.Input{
		TaskDir:    *taskDir,
		Commitment: commitment,
		Claim:      claim,
		ClaimErr:   claimErr,
		Profile:    registry.Get(commitment.Profile),
	})
	if err != nil {
		return err
	}

	printVerdict(verdict)
	os.Exit(exitCodeFor(verdict.Status))
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	taskDir := fs.String("task-dir", "", "sealed task directory (required)")
	profilesPath := fs.String("profiles", "", "path to profiles.json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *taskDir == "" {
		return fmt.Errorf("verify: -task-dir is required")
	}

	registry, err := gate.LoadRegistry(*profilesPath)
	if err != nil {
		return fmt.Errorf("load profile registry: %w", err)
	}

	report, err := verifier.VerifyBundle(*taskDir, registry)
	if err != nil {
		return err
	}

	data, _ := json.MarshalIndent(report, "", "  ")
	fmt.Println(string(data))
	if !report.Verified {
		os.Exit(exitFail)
	}
	return nil
}

func openEvidenceStore(cfg *config.Config) (evidence.Store, error) {
	if cfg.DBDriver == "postgres" {
		return evidence.NewPostgres(cfg.DBPath)
	}
	return evidence.NewSQLite(cfg.DBPath)
}

func readCommitment(path string) (task.Commitment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return task.Commitment{}, fmt.Errorf("read commitment: %w", err)
	}
	var c task.Commitment
	if err := json.Unmarshal(data, &c); err != nil {
		return task.Commitment{}, fmt.Errorf("parse commitment: %w", err)
	}
	return c, nil
}

func printVerdict(v *task.Verdict) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func exitCodeFor(status task.Status) int {
	switch status {
	case task.StatusPass:
		return exitPass
	case task.StatusPartial:
		return exitPartial
	default:
		return exitFail
	}
}
