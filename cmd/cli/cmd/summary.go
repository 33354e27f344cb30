package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"comanda/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var summaryCmd = &cobra.Command{
	Use:   "summary [order_id]",
	Short: "Show the print state of an order",
	Long: `Show the latest batch of an order: how many documents are printed, pending or
failed, the last printer error and the state of each job.

Example:
  comandactl summary 1042
  comandactl summary 1042 -o yaml`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		orderID := args[0]
		output, _ := cmd.Flags().GetString("output")

		token, ok := requireSetting(cmd, "token", "token", "COMANDA_TOKEN")
		if !ok {
			return
		}

		client := NewComandaClient(viper.GetString("url"), token)
		result, err := client.Summary(orderID)
		if err != nil {
			printError(cmd, err)
			return
		}

		switch output {
		case "json":
			out, _ := json.MarshalIndent(result, "", "  ")
			cmd.Println(string(out))
		case "yaml":
			out, err := yaml.Marshal(result)
			if err != nil {
				cmd.Printf("Failed to encode yaml: %v\n", err)
				return
			}
			cmd.Print(string(out))
		default:
			printSummary(cmd, *result)
		}
	},
}

func printSummary(cmd *cobra.Command, s api.OrderSummaryResponse) {
	cmd.Printf("%s %sOrder %s%s\n", statusIcon(s.Summary.Status), colorBold, s.OrderID, colorReset)
	cmd.Println("──────────────────────────────")

	cmd.Printf("%sBatch:%s       %s\n", colorDim, colorReset, s.BatchID)
	cmd.Printf("%sStatus:%s      %s\n", colorDim, colorReset, colorizeStatus(s.Summary.Status))
	cmd.Printf("%sPrinted:%s     %d/%d\n", colorDim, colorReset, s.Summary.OK, s.Summary.Total)
	if s.Summary.Pending > 0 {
		cmd.Printf("%sPending:%s     %s%d%s\n", colorDim, colorReset, colorCyan, s.Summary.Pending, colorReset)
	}
	if s.Summary.Error > 0 {
		cmd.Printf("%sFailed:%s      %s%d%s\n", colorDim, colorReset, colorRed, s.Summary.Error, colorReset)
	}
	if s.Summary.LastError != "" {
		cmd.Printf("%sLast error:%s  %s%s%s\n", colorDim, colorReset, colorRed, s.Summary.LastError, colorReset)
	}

	if len(s.Jobs) == 0 {
		return
	}
	cmd.Println()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "JOB ID\tDOCUMENT\tSTATUS\tATTEMPTS\tNEXT ATTEMPT\tERROR")
	for _, j := range s.Jobs {
		next := "-"
		if j.Status == "PENDING" {
			next = formatTimeWithRelative(j.NextAttemptAt)
		}
		errMsg := ""
		if j.LastError != nil {
			errMsg = truncate(*j.LastError, 50)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			j.ID, j.DocumentType, j.Status, j.Attempts, j.MaxAttempts, next, errMsg)
	}
	w.Flush()
}

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func statusIcon(status string) string {
	switch status {
	case "OK":
		return colorGreen + "✓" + colorReset
	case "ERROR":
		return colorRed + "✗" + colorReset
	case "LEASED":
		return colorYellow + "⏳" + colorReset
	case "PENDING":
		return colorCyan + "◯" + colorReset
	default:
		return "•"
	}
}

func colorizeStatus(status string) string {
	icon := statusIcon(status)
	switch status {
	case "OK":
		return icon + " " + colorGreen + status + colorReset
	case "ERROR":
		return icon + " " + colorRed + status + colorReset
	case "LEASED":
		return icon + " " + colorYellow + status + colorReset
	case "PENDING":
		return icon + " " + colorCyan + status + colorReset
	default:
		return status
	}
}

// formatTimeWithRelative renders t with a relative hint. Times in the future
// read "in 5s", past times "5s ago".
func formatTimeWithRelative(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	hint := relativeTime(d) + " ago"
	if d < 0 {
		hint = "in " + relativeTime(-d)
	}
	return fmt.Sprintf("%s (%s)", t.Local().Format("15:04:05"), hint)
}

func relativeTime(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	summaryCmd.Flags().StringP("output", "o", "table", "Output format: table, json or yaml")
	rootCmd.AddCommand(summaryCmd)
}
