package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/flexprice/plansync/internal/api/dto"
	"github.com/flexprice/plansync/internal/domain/planhistory"
	"github.com/urfave/cli/v2"
)

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printReport(w io.Writer, report *planhistory.Report) {
	if report.IsEmpty() {
		fmt.Fprintln(w, "No plan history found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range report.Products {
		fmt.Fprintf(tw, "%s (ID %s, SKU %s)\n", p.Title, p.ItemID, p.SKU)
		printHistory(tw, "  ", p.History)
		for _, v := range p.Variants {
			fmt.Fprintf(tw, "  %s (ID %s, SKU %s)\n", v.Description, v.ItemID, v.SKU)
			printHistory(tw, "    ", v.History)
		}
	}

	if len(report.Orphans) > 0 {
		fmt.Fprintln(tw, "\nStandalone variants")
		for _, group := range report.Orphans {
			fmt.Fprintf(tw, "%s (parent ID %s)\n", group.ParentTitle, group.ParentID)
			for _, v := range group.Variants {
				fmt.Fprintf(tw, "  %s (ID %s, SKU %s)\n", v.Description, v.ItemID, v.SKU)
				printHistory(tw, "    ", v.History)
			}
		}
	}
	_ = tw.Flush()
}

func printHistory(w io.Writer, indent string, h planhistory.History) {
	for i := len(h) - 1; i >= 0; i-- {
		r := h[i]
		fmt.Fprintf(w, "%s%s\t%s\t%s x %s\t%s\t%s\t%s\n",
			indent,
			r.Version,
			r.PlanID,
			r.IntervalCount,
			r.Interval,
			r.Amount,
			r.Environment,
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
}

func printSubscriptions(w io.Writer, resp *dto.ListSubscriptionsResponse) {
	if len(resp.Items) == 0 {
		fmt.Fprintln(w, "No subscriptions found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"ID", "PLAN", "ITEM", "STATUS", "CUSTOMER", "START"}, "\t"))
	for _, sub := range resp.Items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			sub.ID,
			sub.PlanID,
			sub.ItemTitle,
			sub.Status,
			sub.Customer.FullName(),
			sub.StartDate,
		)
	}
	_ = tw.Flush()
	fmt.Fprintf(w, "Page %s of %s\n", resp.Pagination.PageNum, resp.Pagination.TotalPages)
}
