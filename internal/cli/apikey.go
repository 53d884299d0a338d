package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/haatos/secpipe/internal"
	"github.com/haatos/secpipe/internal/service"
	"github.com/haatos/secpipe/internal/store"
	"github.com/spf13/cobra"
)

var apiKeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for the serve API",
}

var apiKeyCreateCmd = &cobra.Command{
	Use:          "create",
	Short:        "Create a new API key",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ak, err := newAPIKeyService().CreateAPIKey(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", ak.Value)
		fmt.Fprintf(cmd.OutOrStdout(), "send it in the %s header\n", internal.APIKeyHeader)
		return nil
	},
}

var apiKeyListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List API keys",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		apiKeys, err := newAPIKeyService().ListAPIKeys(cmd.Context())
		if err != nil {
			return err
		}
		for _, ak := range apiKeys {
			fmt.Fprintf(
				cmd.OutOrStdout(), "%d\t%s\t%s\n",
				ak.ID, ak.Value, ak.CreatedOn.Format(internal.DBTimestampLayout),
			)
		}
		return nil
	},
}

var apiKeyDeleteCmd = &cobra.Command{
	Use:          "delete <id>",
	Short:        "Delete an API key",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid api key id '%s'", args[0])
		}
		apiKeySvc := newAPIKeyService()
		ak, err := apiKeySvc.GetAPIKeyByID(cmd.Context(), id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("api key %d not found", id)
		}
		if err != nil {
			return err
		}
		if err := apiKeySvc.DeleteAPIKey(cmd.Context(), ak.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "api key %d deleted\n", id)
		return nil
	},
}

func newAPIKeyService() *service.APIKeyService {
	rwdb := store.InitDatabase(false)
	store.RunMigrations(rwdb)
	return service.NewAPIKeyService(
		store.NewAPIKeySQLiteStore(rwdb, rwdb),
		service.NewUUIDGen(),
	)
}

func init() {
	apiKeyCmd.AddCommand(apiKeyCreateCmd)
	apiKeyCmd.AddCommand(apiKeyListCmd)
	apiKeyCmd.AddCommand(apiKeyDeleteCmd)
}
