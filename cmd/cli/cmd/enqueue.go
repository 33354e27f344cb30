package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [order_id]",
	Short: "Queue the comandas of an order for printing",
	Long: `Render the kitchen, cashier and customer documents of an order and queue them
for the print bridges. Each call creates a new batch.

Example:
  comandactl enqueue 1042
  comandactl enqueue 1042 --paper-width 58`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		orderID := args[0]
		width, _ := cmd.Flags().GetInt("paper-width")

		token, ok := requireSetting(cmd, "token", "token", "COMANDA_TOKEN")
		if !ok {
			return
		}

		client := NewComandaClient(viper.GetString("url"), token)
		result, err := client.Enqueue(orderID, width)
		if err != nil {
			printError(cmd, err)
			return
		}

		cmd.Printf("✓ Order %s queued!\nBatch ID: %s\nDocuments: %d\nPaper: %dmm\n",
			orderID, result.BatchID, result.Total, result.PaperWidthMm)
	},
}

func init() {
	enqueueCmd.Flags().Int("paper-width", 0, "Paper width in mm, 58 or 80 (default: server setting)")
	rootCmd.AddCommand(enqueueCmd)
}
