package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/amirphl/lurewatch/app/handlers"
	"github.com/amirphl/lurewatch/app/router"
	businessflow "github.com/amirphl/lurewatch/business_flow"
	"github.com/amirphl/lurewatch/config"
	"github.com/amirphl/lurewatch/logger"
	"github.com/amirphl/lurewatch/repository"
	"github.com/amirphl/lurewatch/utils"
)

var rootCmd = &cobra.Command{
	Use:   "lurewatch",
	Short: "lurewatch - authorized phishing-awareness simulation tracker",
	Long: `lurewatch serves a neutral sign-in page to registered simulation targets,
correlates visits with form submissions through a tracking cookie, and reports
how many recipients engaged. Passwords are never stored.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"lurewatch version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(credentialsCmd)
	rootCmd.AddCommand(migrateCmd)

	targetCmd.AddCommand(targetAddCmd)
	targetCmd.AddCommand(targetListCmd)

	reportCmd.Flags().String("out", "", "Output directory (defaults to REPORT_OUTPUT_DIR)")
	reportCmd.Flags().Bool("export", true, "Write the spreadsheet in addition to the console summary")
	credentialsCmd.Flags().Int("limit", businessflow.ReportRecentLimit, "Number of most recent submissions to show")
}

// withApplication runs fn against a bootstrapped application that is closed afterwards
func withApplication(cmd *cobra.Command, fn func(ctx context.Context, app *Application) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(ctx, app)
}

func routerOptions(server config.ServerConfig, cfg *config.Config) router.Options {
	return router.Options{
		Server:    server,
		AccessLog: cfg.Logging.EnableAccessLog,
		Metrics:   cfg.Metrics,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the capture server",
	Long: `Run the capture server: GET / records a visit and serves the sign-in page,
POST /login records a submission and redirects to the awareness page.

If CAPTURE_PORT is busy the next CAPTURE_PORT_SCAN ports are tried.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			cfg := app.config

			page, err := renderLure(cfg.Lure)
			if err != nil {
				return err
			}
			resolver, err := app.initializeResolver(ctx)
			if err != nil {
				return err
			}

			flow := businessflow.NewTrackingFlow(app.store, resolver, cfg.Tracking.Attribution)
			h := handlers.NewCaptureHandler(flow, page, cfg.Tracking.CookieName, cfg.Capture.RequestTimeout)
			r := router.NewCaptureRouter(h, routerOptions(cfg.Capture, cfg))
			r.SetupRoutes()

			ln, err := utils.ListenFirstFree(cfg.Capture.Host, cfg.Capture.Port, cfg.Capture.PortScan)
			if err != nil {
				return err
			}
			port := utils.ListenerPort(ln)
			if port != cfg.Capture.Port {
				logger.Log.Warn("Configured capture port busy, using next free port",
					zap.Int("configured", cfg.Capture.Port),
					zap.Int("port", port),
				)
			}
			logger.Log.Info("Capture server listening",
				zap.String("host", cfg.Capture.Host),
				zap.Int("port", port),
				zap.String("template", page.Key),
				zap.String("attribution", cfg.Tracking.Attribution),
			)
			return runServer(r, ln, cfg.Capture.ShutdownTimeout)
		})
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Run the operator dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			cfg := app.config

			h := handlers.NewDashboardHandler(businessflow.NewDashboardFlow(app.store), cfg.Dashboard.RequestTimeout)
			r := router.NewDashboardRouter(h, routerOptions(cfg.Dashboard, cfg))
			r.SetupRoutes()

			ln, err := utils.ListenFirstFree(cfg.Dashboard.Host, cfg.Dashboard.Port, cfg.Dashboard.PortScan)
			if err != nil {
				if errors.Is(err, utils.ErrPortInUse) {
					return fmt.Errorf("%w; stop the process holding it or set DASHBOARD_PORT", err)
				}
				return err
			}
			logger.Log.Info("Dashboard listening",
				zap.String("host", cfg.Dashboard.Host),
				zap.Int("port", utils.ListenerPort(ln)),
			)
			return runServer(r, ln, cfg.Dashboard.ShutdownTimeout)
		})
	},
}

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage simulation targets",
}

var targetAddCmd = &cobra.Command{
	Use:   "add EMAIL URL",
	Short: "Register a simulation target",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			target, err := businessflow.NewTargetFlow(app.store.Targets).AddTarget(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("✓ Target %d added: %s (%s)\n", target.ID, target.Email, target.URL)
			return nil
		})
	},
}

var targetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List simulation targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			targets, err := businessflow.NewTargetFlow(app.store.Targets).ListTargets(ctx)
			if err != nil {
				return err
			}
			if len(targets) == 0 {
				fmt.Println("No targets registered")
				return nil
			}
			fmt.Printf("%-6s %-32s %-40s %s\n", "ID", "EMAIL", "URL", "CREATED")
			for _, t := range targets {
				fmt.Printf("%-6d %-32s %-40s %s\n", t.ID, t.Email, t.URL, utils.FormatUTC(t.CreatedAt, utils.DisplayTimeLayout))
			}
			return nil
		})
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Fetch every target URL and record the outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			cfg := app.config
			flow := businessflow.NewProbeFlow(app.store.Targets, app.store.Results, cfg.Probe.Workers, cfg.Probe.Timeout)
			results, err := flow.Run(ctx)
			if err != nil {
				if businessflow.IsNoTargets(err) {
					fmt.Println("No targets registered; add one with 'lurewatch target add'")
					return nil
				}
				return err
			}

			ok := 0
			for _, res := range results {
				mark := "✗"
				if res.Success {
					mark = "✓"
					ok++
				}
				fmt.Printf("%s target %d: %s\n", mark, res.TargetID, res.Data)
			}
			fmt.Printf("\n%d/%d targets reachable\n", ok, len(results))
			return nil
		})
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print the snapshot report and write it as a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		export, _ := cmd.Flags().GetBool("export")

		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			flow := businessflow.NewReportFlow(app.store)
			rep, err := flow.Build(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Report generated %s UTC\n\n", utils.FormatUTC(rep.GeneratedAt, utils.DisplayTimeLayout))
			fmt.Printf("  Targets:      %d\n", rep.TargetsCount)
			fmt.Printf("  Visits:       %d\n", rep.ClicksCount)
			fmt.Printf("  Submissions:  %d\n", rep.CredentialsCount)
			fmt.Printf("  Probes:       %d (%d successful)\n", rep.ResultsCount, rep.SuccessfulResults)
			fmt.Printf("  Success rate: %.2f%%\n", rep.SuccessRate)

			fmt.Println("\nTop countries:")
			for _, c := range rep.TopCountries {
				fmt.Printf("  %-24s %d\n", c.Name, c.Count)
			}
			fmt.Println("\nTop cities:")
			for _, c := range rep.TopCities {
				fmt.Printf("  %-24s %d\n", c.Name, c.Count)
			}

			if !export {
				return nil
			}
			if out == "" {
				out = app.config.Report.OutputDir
			}
			path, err := flow.Export(ctx, out)
			if err != nil {
				return err
			}
			fmt.Printf("\n✓ Report written to %s\n", path)
			return nil
		})
	},
}

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "List the most recent recorded submissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			creds, err := businessflow.NewCredentialFlow(app.store.Credentials).List(ctx, limit)
			if err != nil {
				return err
			}
			if len(creds) == 0 {
				fmt.Println("No submissions recorded")
				return nil
			}

			targets, err := businessflow.NewTargetFlow(app.store.Targets).ListTargets(ctx)
			if err != nil {
				return err
			}
			emails := make(map[uint]string, len(targets))
			for _, t := range targets {
				emails[t.ID] = t.Email
			}

			for _, c := range creds {
				loc := c.Location()
				password := "no"
				if c.PasswordSubmitted {
					password = "yes"
				}
				fmt.Printf("#%d %s\n", c.ID, utils.FormatUTC(c.CreatedAt, utils.DisplayTimeLayout))
				fmt.Printf("  target:   %s\n", businessflow.TargetLabel(c.TargetID, emails))
				fmt.Printf("  email:    %s (password sent: %s)\n", c.Email, password)
				fmt.Printf("  ip:       %s\n", c.IP)
				fmt.Printf("  location: %s, %s, %s\n", loc.CityOrUnknown(), loc.RegionOrUnknown(), loc.CountryOrUnknown())
			}
			return nil
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create missing tables and columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApplication(cmd, func(ctx context.Context, app *Application) error {
			if app.config.Database.AutoMigrate {
				// bootstrap already ran it
				fmt.Println("✓ Schema up to date")
				return nil
			}
			if err := repository.EnsureSchema(ctx, app.db); err != nil {
				return err
			}
			fmt.Println("✓ Schema up to date")
			return nil
		})
	},
}
