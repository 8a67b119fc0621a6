package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/hmiyata/cascade/internal/docstore"
	"github.com/hmiyata/cascade/internal/events"
	"github.com/hmiyata/cascade/internal/httpapi"
	"github.com/hmiyata/cascade/internal/logging"
	"github.com/hmiyata/cascade/internal/model"
	"github.com/hmiyata/cascade/internal/orchestrator"
	"github.com/hmiyata/cascade/internal/planner"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "plan":
		runPlan(os.Args[2:])
	case "run":
		runRun(os.Args[2:])
	case "version":
		fmt.Printf("cascade %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cascade - AI task orchestration engine

Usage:
  cascade serve [-config path] [-addr host:port] [-log-level level] [-audit-log path]
      Start the HTTP server (dashboard, /plan, /upload, /run SSE, /ws).

  cascade plan -intent "..." [-sources n] [-yaml]
      Decompose an intent into a plan and print it.

  cascade run -intent "..." [-file doc.txt] [-json]
      Plan and execute locally, streaming progress to stdout.

  cascade version
      Print the version.`)
}

func loadConfig(path string) model.Config {
	if path == "" {
		return model.DefaultConfig()
	}
	cfg, err := model.LoadConfig(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config YAML")
	addr := fs.String("addr", "", "listen address (overrides config)")
	logLevel := fs.String("log-level", "", "debug|info|warn|error (overrides config)")
	auditLog := fs.String("audit-log", "", "append progress events to this JSONL file")
	_ = fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := logging.New(cfg.Logging)
	defer logger.Close()

	store := docstore.New()
	bus := events.NewBus(100)
	defer bus.Close()

	orch := orchestrator.New(cfg.Orchestrator, logger)
	orch.SetEventBus(bus)
	orch.SetAssemblerThreshold(cfg.Assembler.ConfidenceThreshold)
	if *auditLog != "" {
		audit, err := events.NewAuditLogger(*auditLog, 0)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer audit.Close()
		orch.SetAuditLogger(audit)
	}

	pl := planner.NewWithPolicy(cfg.Orchestrator.MaxRetries, cfg.Orchestrator.ConfidenceThreshold)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Sources.Watch {
		watcher, err := docstore.NewWatcher(cfg.Sources.Dir, store, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		defer watcher.Close()
	}

	server := httpapi.NewServer(cfg.Server.Addr, pl, orch, store, bus, logger)
	if err := server.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runPlan(args []string) {
	fs := flag.NewFlagSet("plan", flag.ExitOnError)
	intent := fs.String("intent", "", "user intent to decompose")
	numSources := fs.Int("sources", 0, "number of staged sources")
	asYAML := fs.Bool("yaml", false, "print the plan as YAML instead of JSON")
	_ = fs.Parse(args)

	if strings.TrimSpace(*intent) == "" {
		fmt.Fprintln(os.Stderr, "usage: cascade plan -intent \"...\" [-sources n] [-yaml]")
		os.Exit(1)
	}

	plan, err := planner.New().CreatePlan(*intent, *numSources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *asYAML {
		data, err := yamlv3.Marshal(plan)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(data))
		return
	}

	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	intent := fs.String("intent", "", "user intent to plan and execute")
	file := fs.String("file", "", "document file to run against (default: sample content)")
	asJSON := fs.Bool("json", false, "print raw JSON events instead of progress lines")
	logLevel := fs.String("log-level", "error", "debug|info|warn|error")
	_ = fs.Parse(args)

	if strings.TrimSpace(*intent) == "" {
		fmt.Fprintln(os.Stderr, "usage: cascade run -intent \"...\" [-file doc.txt] [-json]")
		os.Exit(1)
	}

	documentText := model.SampleDocument
	numSources := 0
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: read document: %v\n", err)
			os.Exit(1)
		}
		documentText = string(data)
		numSources = 1
	}

	plan, err := planner.New().CreatePlan(*intent, numSources)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg := model.DefaultConfig()
	cfg.Logging.Level = *logLevel
	logger := logging.New(cfg.Logging)
	defer logger.Close()

	orch := orchestrator.New(cfg.Orchestrator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ch, err := orch.Run(ctx, plan, documentText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	sawResult := false
	for event := range ch {
		if *asJSON {
			data, err := json.Marshal(event)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			fmt.Println(string(data))
			if event.EventType() == events.TypeResult {
				sawResult = true
			}
			continue
		}

		switch ev := event.(type) {
		case events.WorkerUpdate:
			fmt.Printf("[worker %d] %-8s %d/%d %3d%%  %s (confidence %d%%)\n",
				ev.WorkerID, ev.Status, ev.CurrentTask, ev.TotalTasks, ev.Progress,
				ev.TaskDescription, ev.Confidence)
		case events.Result:
			sawResult = true
			printResult(ev)
		}
	}

	if !sawResult {
		fmt.Fprintln(os.Stderr, "run interrupted before completion")
		os.Exit(1)
	}
}

func printResult(result events.Result) {
	fmt.Println()
	fmt.Printf("Overall confidence: %d%%\n", result.OverallConfidence)
	fmt.Printf("Completed %d/%d task(s)", result.CompletedTasks, result.TotalTasks)
	if result.Warnings > 0 {
		fmt.Printf(", %d warning(s)", result.Warnings)
	}
	fmt.Println()
	for _, taskID := range sortedKeys(result.Assembled.AssembledOutput) {
		marker := "ok "
		for _, failed := range result.Assembled.FailedTasks {
			if failed == taskID {
				marker = "LOW"
				break
			}
		}
		fmt.Printf("  [%s] %s: %s\n", marker, taskID, result.Assembled.AssembledOutput[taskID])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
