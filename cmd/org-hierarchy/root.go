package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	baseURL       string
	authorization string
	sqlitePath    string
	tenant        string
	timeout       time.Duration
	logLevel      string
}

func newRootCmd() *cobra.Command {
	var g globalOptions

	cmd := &cobra.Command{
		Use:           "org-hierarchy",
		Short:         "Designation hierarchy reconcile/list/export tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&g.baseURL, "base-url", os.Getenv("HIERARCHY_STORE_BASE_URL"), "Remote designation store base URL")
	flags.StringVar(&g.authorization, "authorization", os.Getenv("HIERARCHY_STORE_AUTHORIZATION"), "Authorization header value for the remote store")
	flags.StringVar(&g.sqlitePath, "sqlite", "", "Local SQLite designation store path")
	flags.StringVar(&g.tenant, "tenant", defaultTenant, "Tenant UUID")
	flags.DurationVar(&g.timeout, "timeout", 10*time.Second, "Per-call store timeout")
	flags.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")

	cmd.AddCommand(newReconcileCmd(&g))
	cmd.AddCommand(newListCmd(&g))
	cmd.AddCommand(newExportCmd(&g))
	cmd.AddCommand(newMigrateCmd(&g))
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
