package cmd

import (
	"comanda/pkg/api"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage restaurants (admin)",
	Long:  `Register restaurants. These commands authenticate with the admin secret.`,
}

var tenantCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a restaurant and issue its API key",
	Long: `Register a restaurant. The API key is printed once and cannot be recovered.

Example:
  comandactl tenant create --name "Casa do Pastel" --slug casa-do-pastel
  comandactl tenant create --name "Bar do Zé" --slug bar-do-ze --rate-limit 5 --burst 10`,
	Run: func(cmd *cobra.Command, args []string) {
		flags := cmd.Flags()
		name, _ := flags.GetString("name")
		slug, _ := flags.GetString("slug")
		rate, _ := flags.GetFloat64("rate-limit")
		burst, _ := flags.GetInt("burst")

		token, ok := requireSetting(cmd, "admin_token", "admin-token", "COMANDA_ADMIN_TOKEN")
		if !ok {
			return
		}

		if name == "" {
			cmd.Println("Error: --name is required")
			return
		}

		if slug == "" {
			cmd.Println("Error: --slug is required")
			return
		}

		client := NewComandaClient(viper.GetString("url"), token)
		result, err := client.CreateTenant(api.CreateTenantRequest{
			Name:           name,
			Slug:           slug,
			RateLimit:      rate,
			RateLimitBurst: burst,
		})
		if err != nil {
			printError(cmd, err)
			return
		}

		cmd.Printf("✓ Tenant created!\nID: %s\nSlug: %s\nAPI Key: %s\n", result.ID, result.Slug, result.APIKey)
		cmd.Println("Store the API key now, it will not be shown again.")
	},
}

func init() {
	flags := tenantCreateCmd.Flags()
	flags.StringP("name", "n", "", "Restaurant name (required)")
	flags.StringP("slug", "s", "", "URL-safe identifier used by bridges (required)")
	flags.Float64("rate-limit", 0, "Requests per second, 0 means unlimited")
	flags.Int("burst", 0, "Burst size, at least 1 when a rate limit is set")

	rootCmd.AddCommand(tenantCmd)
	tenantCmd.AddCommand(tenantCreateCmd)
}
