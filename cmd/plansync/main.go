// plansync keeps Payvalida subscription plans in line with a product catalog.
//
// Usage:
//
//	plansync sync
//	plansync plans --json
//	plansync subscriptions list --page 2
//	plansync daemon
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"
)

const (
	flushTimeout    = 2 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	app := &cli.App{
		Name:    "plansync",
		Usage:   "Reconcile catalog subscription items with Payvalida plans",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config.yaml",
				EnvVars: []string{"PLANSYNC_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},

		Commands: []*cli.Command{
			syncCommand(),
			resetCommand(),
			plansCommand(),
			subscriptionsCommand(),
			logCommand(),
			daemonCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
