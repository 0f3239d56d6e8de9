package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"maru/internal/config"
	"maru/internal/domain"
	"maru/internal/engine"
	"maru/internal/panel"
	"maru/internal/report"
	"maru/internal/rl"
	"maru/internal/store"
	"maru/internal/util"
)

const version = "0.1.0"

func main() {
	_ = godotenv.Load()

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: maru-cli <command> [options]\n\n")
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  version    Print the CLI version\n")
		fmt.Fprintf(os.Stderr, "  train      Pick a selection interactively and train on it\n")
		fmt.Fprintf(os.Stderr, "  runs       List recent training runs\n")
		fmt.Fprintf(os.Stderr, "\n")
	}

	if len(os.Args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("maru-cli %s\n", version)

	case "train":
		if err := runTrain(); err != nil {
			log.Fatalf("train: %v", err)
		}

	case "runs":
		if err := listRuns(); err != nil {
			log.Fatalf("runs: %v", err)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		flag.Usage()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfgPath := "config/maru.yaml"
	if p := os.Getenv("MARU_CONFIG"); p != "" {
		cfgPath = p
	}
	return config.Load(cfgPath)
}

func runTrain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The CLI logs quietly; the report is the output.
	logger := util.NewLogger("warn", "text")

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite store: %w", err)
	}
	defer sqlite.Close()
	parquet := store.NewParquetStore(cfg.Storage.DataDir)

	ctx := context.Background()
	in := bufio.NewScanner(os.Stdin)

	sel, err := pickSelection(ctx, in, sqlite)
	if err != nil {
		return err
	}
	fmt.Printf("\nselected: %s / %s / %.1f㎡\n", sel.Region, sel.Complex, sel.Area)

	txs, err := sqlite.ReadTransactions(ctx, sel)
	if err != nil {
		return fmt.Errorf("reading transactions: %w", err)
	}
	rates, err := sqlite.ReadRates(ctx)
	if err != nil {
		return fmt.Errorf("reading rates: %w", err)
	}
	pops, err := sqlite.ReadPopulation(ctx, sel.Region)
	if err != nil {
		return fmt.Errorf("reading population: %w", err)
	}

	table, err := panel.Build(txs, rates, pops, panel.Params{
		DirectionThreshold: cfg.Features.DirectionThreshold,
		RateCutLow:         cfg.Features.RateCutLow,
		RateCutHigh:        cfg.Features.RateCutHigh,
	})
	if err != nil {
		return fmt.Errorf("building feature table: %w", err)
	}
	fmt.Printf("feature table: %d months (%s .. %s)\n",
		table.Len(), table.Row(0).Period, table.Last().Period)

	trainer := engine.NewTrainer(parquet, sqlite, parquet, logger)
	training := rl.TrainConfig{
		Episodes:     cfg.Training.Episodes,
		Alpha:        cfg.Training.Alpha,
		Gamma:        cfg.Training.Gamma,
		EpsilonStart: cfg.Training.EpsilonStart,
		EpsilonEnd:   cfg.Training.EpsilonEnd,
		EpsilonDecay: cfg.Training.EpsilonDecay,
		Seed:         cfg.Training.Seed,
	}

	res, err := trainer.RunTable(ctx, sel, table, training, cfg.Training.Horizon)
	if err != nil {
		return err
	}

	fmt.Println()
	report.WriteSummary(os.Stdout, res.Run)
	fmt.Println("\nlearning curve:")
	report.WriteCurve(os.Stdout, res.Rewards, 25)
	fmt.Println("\nevaluation trace:")
	report.WriteTrace(os.Stdout, res.Trace)
	fmt.Println("\nprice scenario:")
	report.WriteScenario(os.Stdout, res.Scenario)
	return nil
}

func listRuns() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sqlite, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("opening sqlite store: %w", err)
	}
	defer sqlite.Close()

	runs, err := sqlite.ListRuns(context.Background(), 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs yet")
		return nil
	}
	for _, run := range runs {
		report.WriteSummary(os.Stdout, run)
		fmt.Println()
	}
	return nil
}

// pickSelection walks the district, complex, and area menus.
func pickSelection(ctx context.Context, in *bufio.Scanner, s *store.SQLiteStore) (domain.Selection, error) {
	regions, err := s.ListRegions(ctx)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("listing districts: %w", err)
	}
	region, err := pickString(in, "1. district", regions)
	if err != nil {
		return domain.Selection{}, err
	}

	complexes, err := s.ListComplexes(ctx, region)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("listing complexes: %w", err)
	}
	complexName, err := pickString(in, "2. complex in "+region, complexes)
	if err != nil {
		return domain.Selection{}, err
	}

	areas, err := s.ListAreas(ctx, region, complexName)
	if err != nil {
		return domain.Selection{}, fmt.Errorf("listing areas: %w", err)
	}
	labels := make([]string, len(areas))
	for i, a := range areas {
		labels[i] = fmt.Sprintf("%.1f㎡", a)
	}
	idx, err := pickIndex(in, "3. unit size for "+complexName, labels)
	if err != nil {
		return domain.Selection{}, err
	}

	return domain.Selection{Region: region, Complex: complexName, Area: areas[idx]}, nil
}

func pickString(in *bufio.Scanner, title string, options []string) (string, error) {
	idx, err := pickIndex(in, title, options)
	if err != nil {
		return "", err
	}
	return options[idx], nil
}

// pickIndex shows a numbered menu and reads a choice, reprompting on bad
// input until stdin closes.
func pickIndex(in *bufio.Scanner, title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("%s: nothing to choose from", title)
	}

	for {
		fmt.Printf("\n[%s]\n", title)
		for i, opt := range options {
			fmt.Printf("%d. %s\n", i+1, opt)
		}
		fmt.Print("\nchoice: ")

		if !in.Scan() {
			return 0, fmt.Errorf("input closed")
		}
		choice, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err != nil || choice < 1 || choice > len(options) {
			fmt.Println("enter a number from the list")
			continue
		}
		return choice - 1, nil
	}
}
