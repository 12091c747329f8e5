package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vulndesk/vulndesk/pkg/server"
	"github.com/vulndesk/vulndesk/pkg/ui"
)

var serveFlags struct {
	listen   string
	snapshot string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report API server",
	Long: `Serve the report API. Requests are attributed through the X-User-ID
header; PDF reports render in the background and land in the reports
directory. SIGINT or SIGTERM drains in-flight jobs and stops.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&serveFlags.listen, "listen", "l", "", "listen address (overrides the config)")
	serveCmd.Flags().StringVar(&serveFlags.snapshot, "snapshot", "", "store snapshot file (overrides the config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveFlags.listen != "" {
		cfg.Listen = serveFlags.listen
	}
	if serveFlags.snapshot != "" {
		cfg.Snapshot = serveFlags.snapshot
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	if !ui.IsSilent() {
		ui.PrintBanner()
		ui.PrintConfigBanner(configBanner(cfg))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stk, err := buildStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stk.Close()

	srv, err := server.New(server.Config{Addr: cfg.Listen}, server.Deps{
		Store:     stk.Store,
		Engine:    stk.Engine,
		Files:     stk.Files,
		Templates: stk.Templates,
		Metrics:   stk.Metrics,
		Log:       log,
	})
	if err != nil {
		return internalErr(err)
	}

	if err := srv.Start(ctx); err != nil {
		return ioErr(err)
	}
	return nil
}
