package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "comandactl",
	Short: "comandactl is a command line tool for the comanda print dispatcher",
	Long: `comandactl is the operator CLI for comanda, the receipt print dispatcher of the POS.

When an order is confirmed the controller renders three comandas (kitchen, cashier
and customer copy) and queues them. Print bridges running next to the printers
lease the documents, print them and report back.

Common workflows:

  Queue the comandas of an order:
    comandactl enqueue <order-id> --paper-width 58

  Look at a document without queuing it:
    comandactl preview <order-id> --type CASHIER

  Check whether an order has been printed:
    comandactl summary <order-id>

  Register a restaurant (admin):
    comandactl tenant create --name "Casa do Pastel" --slug casa-do-pastel

  Act as a bridge when debugging a printer:
    comandactl jobs claim --limit 3

Configuration:
  Flags, $HOME/.comandactl.yaml or environment variables:
    COMANDA_URL           Controller URL (default: http://localhost:6161)
    COMANDA_TOKEN         Tenant API key
    COMANDA_ADMIN_TOKEN   Admin secret for tenant commands
    COMANDA_BRIDGE_TOKEN  Bridge secret for jobs commands
    COMANDA_TENANT_SLUG   Tenant slug for jobs commands
    COMANDA_BRIDGE_ID     Lease owner name for jobs commands`,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".comandactl"
		viper.AddConfigPath(home)
		viper.SetConfigName(".comandactl")
		viper.SetConfigType("yaml")
	}

	// Read environment variables that match "COMANDA_VARNAME"
	viper.SetEnvPrefix("COMANDA")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// requireSetting prints a hint and reports false when key is empty.
func requireSetting(cmd *cobra.Command, key, flag, env string) (string, bool) {
	v := viper.GetString(key)
	if v == "" {
		cmd.Printf("%s not found. Please set it using the --%s flag or the %s environment variable\n", key, flag, env)
		return "", false
	}
	return v, true
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.comandactl.yaml)")

	flags.String("url", "http://localhost:6161", "comanda controller URL")
	viper.BindPFlag("url", flags.Lookup("url"))

	flags.StringP("token", "t", "", "Tenant API key")
	viper.BindPFlag("token", flags.Lookup("token"))

	flags.String("admin-token", "", "Admin secret for tenant commands")
	viper.BindPFlag("admin_token", flags.Lookup("admin-token"))

	flags.String("bridge-token", "", "Bridge secret for jobs commands")
	viper.BindPFlag("bridge_token", flags.Lookup("bridge-token"))

	flags.String("tenant-slug", "", "Tenant slug for jobs commands")
	viper.BindPFlag("tenant_slug", flags.Lookup("tenant-slug"))

	flags.String("bridge-id", "comandactl", "Lease owner name for jobs commands")
	viper.BindPFlag("bridge_id", flags.Lookup("bridge-id"))
}
