package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"comanda/internal/bridge"
	"comanda/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Act as a print bridge",
	Long: `Lease and report print jobs the way a bridge does. Useful to drain a queue by
hand or to debug a printer. Requires the bridge secret and the tenant slug.`,
}

var jobsClaimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Lease pending jobs",
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		showContent, _ := cmd.Flags().GetBool("content")

		client, ok := bridgeClient(cmd)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		jobs, err := client.Claim(ctx, viper.GetString("bridge_id"), limit)
		if err != nil {
			printError(cmd, err)
			return
		}

		if len(jobs) == 0 {
			cmd.Println("No jobs ready to print.")
			return
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "JOB ID\tORDER\tDOCUMENT\tPAPER\tATTEMPT")
		for _, j := range jobs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%dmm\t%d/%d\n",
				j.ID, j.OrderID, j.DocumentType, j.PaperWidthMm, j.Attempts, j.MaxAttempts)
		}
		w.Flush()

		if showContent {
			for _, j := range jobs {
				cmd.Printf("\n── %s %s ──\n%s", j.DocumentType, j.ID, j.Content)
			}
		}
	},
}

var jobsAckCmd = &cobra.Command{
	Use:   "ack [job_id]",
	Short: "Report a leased job as printed",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := bridgeClient(cmd)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		res, err := client.Ack(ctx, args[0], viper.GetString("bridge_id"))
		if err != nil {
			printError(cmd, err)
			return
		}

		if res.AlreadyOK {
			cmd.Printf("✓ Job %s was already printed.\n", args[0])
			return
		}
		cmd.Printf("✓ Job %s printed.\n", args[0])
		printResult(cmd, res)
	},
}

var jobsFailCmd = &cobra.Command{
	Use:   "fail [job_id] [message]",
	Short: "Report a print failure for a leased job",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		client, ok := bridgeClient(cmd)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		message := strings.Join(args[1:], " ")
		res, err := client.Fail(ctx, args[0], viper.GetString("bridge_id"), message)
		if err != nil {
			printError(cmd, err)
			return
		}

		cmd.Printf("✗ Job %s failed: %s\n", args[0], message)
		printResult(cmd, res)
	},
}

func printResult(cmd *cobra.Command, res *api.JobResultResponse) {
	if res.Summary == nil {
		return
	}
	s := res.Summary
	cmd.Printf("Order %s: %s (%d/%d printed, %d pending, %d failed)\n",
		res.OrderID, colorizeStatus(s.Status), s.OK, s.Total, s.Pending, s.Error)
}

func bridgeClient(cmd *cobra.Command) (*bridge.Client, bool) {
	token, ok := requireSetting(cmd, "bridge_token", "bridge-token", "COMANDA_BRIDGE_TOKEN")
	if !ok {
		return nil, false
	}
	slug, ok := requireSetting(cmd, "tenant_slug", "tenant-slug", "COMANDA_TENANT_SLUG")
	if !ok {
		return nil, false
	}
	return bridge.NewClient(viper.GetString("url"), token, slug), true
}

func init() {
	jobsClaimCmd.Flags().Int("limit", 3, "Maximum number of jobs to lease (1-10)")
	jobsClaimCmd.Flags().Bool("content", false, "Print the rendered document of each job")

	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsClaimCmd)
	jobsCmd.AddCommand(jobsAckCmd)
	jobsCmd.AddCommand(jobsFailCmd)
}
