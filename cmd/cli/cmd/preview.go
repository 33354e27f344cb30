package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var previewCmd = &cobra.Command{
	Use:   "preview [order_id]",
	Short: "Render one document of an order without queuing it",
	Long: `Print the text a bridge would receive for one document of the order.
Nothing is queued.

Example:
  comandactl preview 1042
  comandactl preview 1042 --type CUSTOMER --paper-width 58`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		orderID := args[0]
		docType, _ := cmd.Flags().GetString("type")
		width, _ := cmd.Flags().GetInt("paper-width")

		token, ok := requireSetting(cmd, "token", "token", "COMANDA_TOKEN")
		if !ok {
			return
		}

		client := NewComandaClient(viper.GetString("url"), token)
		text, err := client.Preview(orderID, docType, width)
		if err != nil {
			printError(cmd, err)
			return
		}

		cmd.Print(text)
	},
}

func init() {
	flags := previewCmd.Flags()
	flags.String("type", "KITCHEN", "Document type: KITCHEN, CASHIER or CUSTOMER")
	flags.Int("paper-width", 0, "Paper width in mm (default: server setting)")
	rootCmd.AddCommand(previewCmd)
}
