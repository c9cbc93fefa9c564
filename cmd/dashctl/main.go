// Package main provides the CLI entry point for the collection dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ranchi/uniondash/internal/application/collection"
	"github.com/ranchi/uniondash/internal/domain/loan"
	"github.com/ranchi/uniondash/internal/format"
	"github.com/ranchi/uniondash/internal/infrastructure/backend/odoorpc"
	"github.com/ranchi/uniondash/internal/infrastructure/backend/rest"
	"github.com/ranchi/uniondash/internal/infrastructure/config"
	"github.com/ranchi/uniondash/internal/infrastructure/logger"
	"github.com/ranchi/uniondash/internal/infrastructure/session"
	"github.com/ranchi/uniondash/internal/infrastructure/transport"
)

// Version information (populated at build time)
var (
	version   = "dev"
	gitCommit = "unknown"
)

// CLI flags
var (
	configPath  string
	backendKind string
	baseURL     string
	username    string
	password    string
	doLogout    bool
	showOverdue bool
	verbose     bool
	showVersion bool
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to the TOML configuration file")
	flag.StringVar(&configPath, "c", "", "Path to the TOML configuration file (shorthand)")

	// Override flags
	flag.StringVar(&backendKind, "backend", "", "Override backend kind (rest or odoo)")
	flag.StringVar(&baseURL, "base-url", "", "Override backend base URL")

	// Session flags
	flag.StringVar(&username, "username", "", "Log in as this user before running")
	flag.StringVar(&username, "u", "", "Log in as this user (shorthand)")
	flag.StringVar(&password, "password", "", "Password for -username (or set UNIONDASH_PASSWORD)")
	flag.BoolVar(&doLogout, "logout", false, "Destroy the session and exit")

	// Utility flags
	flag.BoolVar(&showOverdue, "overdue", false, "List overdue installments instead of the full report")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")

	flag.Usage = printUsage
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `dashctl - Union Loan Collection Dashboard CLI

USAGE:
    dashctl [options]
    dashctl -username <user>           (Log in, then print the report)
    dashctl -logout                    (Destroy the session)

CONFIGURATION:
    -config, -c <path>    Path to the TOML configuration file
                          (default: config.toml in . or ~/.config/uniondash)
    -backend <kind>       Override backend kind: rest or odoo
    -base-url <url>       Override backend base URL

SESSION:
    -username, -u <user>  Log in as this user before running
    -password <pass>      Password for -username (or set UNIONDASH_PASSWORD)
    -logout               Destroy the server session and clear local state

UTILITY:
    -overdue              List overdue installments only
    -verbose, -v          Enable debug logging
    -version              Show version information

EXAMPLES:
    # Log in against the ERP backend and print the dashboard report
    dashctl -backend odoo -username admin

    # Print overdue installments using a saved session
    dashctl -overdue
`)
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("dashctl %s (%s)\n", version, gitCommit)
		os.Exit(0)
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if backendKind != "" {
		cfg.Backend.Kind = backendKind
	}
	if baseURL != "" {
		cfg.Backend.BaseURL = baseURL
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync()

	sessionPath := cfg.Session.Path
	if sessionPath == "" {
		sessionPath, err = session.DefaultPath()
		if err != nil {
			return fmt.Errorf("resolving session path: %w", err)
		}
	}
	store, err := session.NewStore(sessionPath)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	client, err := transport.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout,
		transport.WithSessionSource(store),
		transport.WithMetrics(transport.NewMetrics(prometheus.DefaultRegisterer)),
	)
	if err != nil {
		return err
	}

	var backend loan.Backend
	switch cfg.Backend.Kind {
	case config.BackendOdoo:
		backend = odoorpc.NewAdapter(client, cfg.Backend.Database)
	default:
		backend = rest.NewAdapter(client, cfg.Backend.Database)
	}
	log.Debug("backend selected",
		zap.String("kind", cfg.Backend.Kind),
		zap.String("base_url", cfg.Backend.BaseURL))

	if doLogout {
		return logout(ctx, backend, store, log)
	}

	if username != "" {
		if err := login(ctx, backend, store, cfg.Session.TTL); err != nil {
			return err
		}
	}

	svc := collection.NewService(backend, log)

	if showOverdue {
		printOverdue(ctx, svc)
		return nil
	}
	printReport(ctx, svc)
	return nil
}

// login authenticates and persists the resulting session.
func login(ctx context.Context, backend loan.Backend, store *session.Store, ttl time.Duration) error {
	pass := password
	if pass == "" {
		pass = os.Getenv("UNIONDASH_PASSWORD")
	}
	if pass == "" {
		return fmt.Errorf("no password: use -password or UNIONDASH_PASSWORD")
	}

	sess, err := backend.Login(ctx, username, pass)
	if err != nil {
		return err
	}
	if err := store.Save(*sess, ttl); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	fmt.Printf("Logged in as %s (uid %d)\n", sess.Username, sess.UID)
	return nil
}

// logout destroys the server session; local state is cleared regardless of
// the outcome.
func logout(ctx context.Context, backend loan.Backend, store *session.Store, log *zap.Logger) error {
	if err := backend.Logout(ctx); err != nil {
		log.Warn("server session destroy failed", zap.Error(err))
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	fmt.Println("Logged out")
	return nil
}

func printReport(ctx context.Context, svc *collection.Service) {
	summary := svc.Summary(ctx)
	fmt.Println("== Collection Summary ==")
	fmt.Printf("  Loans:      %d total / %d active / %d completed / %d defaulted\n",
		summary.TotalLoans, summary.ActiveLoans, summary.CompletedLoans, summary.DefaultedLoans)
	fmt.Printf("  Disbursed:  %s\n", format.Currency(summary.TotalAmount))
	fmt.Printf("  Collected:  %s\n", format.Currency(summary.TotalCollected))
	fmt.Printf("  Pending:    %s\n", format.Currency(summary.PendingAmount))
	fmt.Println()

	fmt.Println("== Unions ==")
	for _, overview := range svc.UnionOverviews(ctx) {
		leader := "-"
		if overview.Leader != nil {
			leader = overview.Leader.Name
		}
		fmt.Printf("  %-24s purse %-14s leader %-20s %d members, %d collectors\n",
			overview.Union.Name,
			format.Currency(overview.Union.Purse),
			leader,
			len(overview.Members),
			len(overview.Collectors))
	}
	fmt.Println()

	printOverdue(ctx, svc)
}

func printOverdue(ctx context.Context, svc *collection.Service) {
	overdue := svc.OverdueInstallments(ctx)
	fmt.Printf("== Overdue Installments (%d) ==\n", len(overdue))
	now := time.Now()
	for _, inst := range overdue {
		fmt.Printf("  loan %-8s member %-8s %-14s due %-12s %d days overdue\n",
			inst.LoanID,
			inst.MemberID,
			format.Currency(inst.Amount),
			format.Date(inst.DueDate),
			inst.DaysOverdue(now))
	}
}
