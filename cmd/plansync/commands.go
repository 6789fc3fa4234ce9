package main

import (
	"context"
	"fmt"

	"github.com/flexprice/plansync/internal/config"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	"github.com/flexprice/plansync/internal/integration/payvalida"
	"github.com/flexprice/plansync/internal/logger"
	"github.com/urfave/cli/v2"
)

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create a plan for every subscription item whose terms changed",
		Action: func(c *cli.Context) error {
			return withServices(c.Context, c.String("config"), func(ctx context.Context, d *deps) error {
				result, err := d.PlanSync.RunReconciliation(ctx)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c, result)
				}
				for _, msg := range result.Messages() {
					fmt.Fprintln(c.App.Writer, msg)
				}
				return nil
			})
		},
	}
}

func resetCommand() *cli.Command {
	return &cli.Command{
		Name:  "reset",
		Usage: "Remove local plan history and latest plan ids of every catalog item",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "yes",
				Usage: "Confirm the reset",
			},
		},
		Action: func(c *cli.Context) error {
			if !c.Bool("yes") {
				return cli.Exit("reset removes all local plan data; rerun with --yes", 1)
			}
			return withServices(c.Context, c.String("config"), func(ctx context.Context, d *deps) error {
				count, err := d.PlanSync.ResetAll(ctx)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c, map[string]int{"count": count})
				}
				fmt.Fprintln(c.App.Writer, planhistory.ResetMessage(count))
				return nil
			})
		},
	}
}

func plansCommand() *cli.Command {
	return &cli.Command{
		Name:  "plans",
		Usage: "Show local plan histories grouped by product",
		Action: func(c *cli.Context) error {
			return withServices(c.Context, c.String("config"), func(ctx context.Context, d *deps) error {
				report, err := d.PlanSync.ListHistories(ctx)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(c, report)
				}
				printReport(c.App.Writer, report)
				return nil
			})
		},
	}
}

func subscriptionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "subscriptions",
		Usage: "Inspect and cancel Payvalida subscriptions",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List subscriptions with the local item each plan belongs to",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Value: payvalida.DefaultPage},
					&cli.StringFlag{Name: "sort", Value: payvalida.DefaultSort, Usage: "ASC or DESC"},
					&cli.StringFlag{Name: "request-id", Value: payvalida.DefaultRequestID},
				},
				Action: func(c *cli.Context) error {
					return withServices(c.Context, c.String("config"), func(ctx context.Context, d *deps) error {
						resp, err := d.Subscriptions.ListSubscriptions(ctx, &payvalida.ListSubscriptionsRequest{
							Page:      c.Int("page"),
							Sort:      c.String("sort"),
							RequestID: c.String("request-id"),
						})
						if err != nil {
							return err
						}
						if c.Bool("json") {
							return printJSON(c, resp)
						}
						printSubscriptions(c.App.Writer, resp)
						return nil
					})
				},
			},
			{
				Name:      "get",
				Usage:     "Show one subscription",
				ArgsUsage: "<subscription-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "request-id", Value: payvalida.DefaultRequestID},
				},
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("subscription id is required", 1)
					}
					return withServices(c.Context, c.String("config"), func(ctx context.Context, d *deps) error {
						sub, err := d.Subscriptions.GetSubscription(ctx, id, c.String("request-id"))
						if err != nil {
							return err
						}
						return printJSON(c, sub)
					})
				},
			},
			{
				Name:      "cancel",
				Usage:     "Cancel a subscription",
				ArgsUsage: "<subscription-id>",
				Action: func(c *cli.Context) error {
					id := c.Args().First()
					if id == "" {
						return cli.Exit("subscription id is required", 1)
					}
					return withServices(c.Context, c.String("config"), func(ctx context.Context, d *deps) error {
						if err := d.Subscriptions.CancelSubscription(ctx, id); err != nil {
							return err
						}
						fmt.Fprintf(c.App.Writer, "Subscription %s cancelled.\n", id)
						return nil
					})
				},
			},
		},
	}
}

// logCommand reads the save-logging file directly, so it works without a
// reachable store
func logCommand() *cli.Command {
	logPath := func(c *cli.Context) (string, error) {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return "", err
		}
		return cfg.Logging.FilePath, nil
	}

	return &cli.Command{
		Name:  "log",
		Usage: "Show or clear the saved log file",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the saved log",
				Action: func(c *cli.Context) error {
					path, err := logPath(c)
					if err != nil {
						return err
					}
					content, err := logger.ReadLogFile(path)
					if err != nil {
						return err
					}
					if content == "" {
						fmt.Fprintln(c.App.Writer, "Log is empty.")
						return nil
					}
					fmt.Fprint(c.App.Writer, content)
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "Truncate the saved log",
				Action: func(c *cli.Context) error {
					path, err := logPath(c)
					if err != nil {
						return err
					}
					if err := logger.ClearLogFile(path); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "Log cleared.")
					return nil
				},
			},
		},
	}
}
