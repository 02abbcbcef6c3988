package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rumor-ml/commons.systems/bankimport/internal/category"
	"github.com/rumor-ml/commons.systems/bankimport/internal/importer"
	"github.com/rumor-ml/commons.systems/bankimport/internal/registry"
	"github.com/rumor-ml/commons.systems/bankimport/internal/rules"
	"github.com/rumor-ml/commons.systems/bankimport/internal/scanner"
	"github.com/rumor-ml/commons.systems/bankimport/internal/server"
	"github.com/rumor-ml/commons.systems/bankimport/internal/store/sqlite"
	"github.com/rumor-ml/commons.systems/bankimport/internal/ui"
)

const version = "0.1.0"

var (
	versionFlag = flag.Bool("version", false, "Show version")

	// Import mode flags
	input          = flag.String("input", "", "Statement file or directory to import")
	userID         = flag.String("user", "", "User ID owning the imported transactions (required)")
	dbPath         = flag.String("db", "bankimport.db", "SQLite database path")
	createCategory = flag.Bool("create-category", false, "Create an 'Imported' category for unmatched transactions")
	dryRun         = flag.Bool("dry-run", false, "Show what would be imported without writing")
	verbose        = flag.Bool("verbose", false, "Show detailed import logs")

	// Server mode flags
	serve       = flag.String("serve", "", "Run the API server on this address (e.g. :8080) instead of importing")
	projectID   = flag.String("project", "", "Firebase project ID (server mode)")
	credentials = flag.String("credentials", "", "Service account credentials file (server mode, optional)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `bankimport - Bank statement import pipeline

Usage:
  bankimport [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprint(os.Stderr, `
Examples:
  # Import one statement into the local database
  bankimport -input movimientos.xlsx -user alice

  # Import every statement under a directory
  bankimport -input ~/statements -user alice -db finances.db

  # Import and auto-create an 'Imported' category for unmatched rows
  bankimport -input movimientos.xlsx -user alice -create-category

  # Run the API server backed by Firestore
  bankimport -serve :8080 -project my-project

`)
	}

	flag.Parse()
	applyEnvDefaults()

	if *versionFlag {
		fmt.Printf("bankimport version %s\n", version)
		os.Exit(0)
	}

	if *serve != "" {
		if *projectID == "" {
			fmt.Fprintf(os.Stderr, "Error: -project flag is required in server mode\n\n")
			flag.Usage()
			os.Exit(1)
		}
		if err := runServer(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if *input == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}
	if *userID == "" {
		fmt.Fprintf(os.Stderr, "Error: -user flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := runImport(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runImport() error {
	ctx := context.Background()

	if !*verbose {
		ui.Header("Importing Bank Statements")
		ui.Step(1, 3, "Scanning for statement files")
	}

	files, err := collectFiles(*input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no statement files found at %s\n\nSupported extensions: .xlsx, .xlsm, .csv", *input)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "Found %d statement files\n", len(files))
		for _, f := range files {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
	} else {
		ui.Success(fmt.Sprintf("Found %d statement files", len(files)))
	}

	if *dryRun {
		fmt.Printf("Dry run complete. Would import %d files.\n", len(files))
		return nil
	}

	if !*verbose {
		ui.Step(2, 3, "Opening database")
	}
	st, err := sqlite.Open(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", *dbPath, err)
	}
	defer st.Close()

	seed, err := rules.EmbeddedSeed()
	if err != nil {
		return err
	}
	if err := st.SeedGlobalRules(ctx, seed); err != nil {
		return fmt.Errorf("failed to seed global rules: %w", err)
	}
	if *verbose {
		fmt.Fprintf(os.Stderr, "Seeded %d global rules\n", len(seed))
	}

	engine := rules.NewEngine(st)
	categories := category.NewService(st)
	reconciler := importer.NewReconciler(st, engine, categories, importer.Options{
		CreateFallbackCategory: *createCategory,
	})
	imp := importer.New(registry.New(), reconciler)

	if !*verbose {
		ui.Step(3, 3, "Importing statements")
	}

	var imported, duplicates, failed int
	for i, path := range files {
		if *verbose {
			fmt.Fprintf(os.Stderr, "  Importing %s\n", path)
		} else {
			percentage := float64(i+1) / float64(len(files)) * 100
			fmt.Fprintf(os.Stderr, "\r  Progress: %d/%d files (%.0f%%)...", i+1, len(files), percentage)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		result := imp.ImportFile(ctx, *userID, path, data)
		if !result.Success {
			failed++
			fmt.Fprintf(os.Stderr, "\n")
			ui.Error(fmt.Sprintf("%s: %s", path, result.Error))
			continue
		}
		imported += result.ImportedCount
		duplicates += result.DuplicateCount
	}
	if !*verbose {
		fmt.Fprintf(os.Stderr, "\r  Progress: %d/%d files (100%%) - Complete!\n\n", len(files), len(files))
	}

	ui.Success(fmt.Sprintf("Imported %d transactions (%d duplicates skipped)", imported, duplicates))
	if failed > 0 {
		ui.Warning(fmt.Sprintf("%d files failed to import", failed))
		if !*verbose {
			ui.Info("Run with -verbose to see per-file import logs")
		}
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// applyEnvDefaults fills flags left at their defaults from the environment,
// for containerized server deployments where flags are awkward.
func applyEnvDefaults() {
	if *projectID == "" {
		*projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if *dbPath == "bankimport.db" {
		if env := os.Getenv("BANKIMPORT_DB"); env != "" {
			*dbPath = env
		}
	}
	// PORT alone must not flip a CLI invocation into server mode; it only
	// fills in the address once server intent is clear from -project.
	if *serve == "" && *input == "" && *projectID != "" {
		if port := os.Getenv("PORT"); port != "" {
			*serve = ":" + port
		}
	}
}

// collectFiles accepts either a single statement file or a directory tree.
func collectFiles(input string) ([]string, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("failed to access %s: %w", input, err)
	}
	if !info.IsDir() {
		if !scanner.IsStatementFile(input) {
			return nil, fmt.Errorf("%s is not a supported statement file", input)
		}
		return []string{input}, nil
	}
	return scanner.New(input).Scan()
}

func runServer() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, server.Options{
		ProjectID:       *projectID,
		CredentialsFile: *credentials,
		ImportOptions:   importer.Options{CreateFallbackCategory: *createCategory},
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	httpServer := &http.Server{
		Addr:    *serve,
		Handler: srv.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "Listening on %s\n", *serve)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "Shutting down")
		return httpServer.Shutdown(context.Background())
	}
}
