package cli

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/haatos/secpipe/internal/security"
	"github.com/haatos/secpipe/internal/service"
	"github.com/haatos/secpipe/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var credentialCmd = &cobra.Command{
	Use:   "credential",
	Short: "Manage vault credentials",
}

var (
	credentialUsername    string
	credentialDescription string
)

var credentialAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Store a credential, prompting for its secret",
	Long: `Store a credential under the given name. The secret is read from the
terminal without echo and encrypted before it is written to the database.
Credentials with a username are exposed to steps as <NAME>_USR/<NAME>_PSW,
credentials without one as <NAME>_TOKEN.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprint(cmd.OutOrStdout(), "Secret: ")
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if len(secret) == 0 {
			return fmt.Errorf("secret must not be empty")
		}

		credentialSvc := newCredentialService()
		c, err := credentialSvc.CreateCredential(
			cmd.Context(),
			args[0],
			credentialUsername,
			credentialDescription,
			string(secret),
		)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "credential '%s' stored\n", c.Name)
		return nil
	},
}

var credentialUpdateCmd = &cobra.Command{
	Use:          "update <name>",
	Short:        "Update a credential's username or description",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		credentialSvc := newCredentialService()
		c, err := credentialSvc.GetCredentialByName(cmd.Context(), args[0])
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("credential '%s' not found", args[0])
		}
		if err != nil {
			return err
		}

		username := c.Username
		if cmd.Flags().Changed("username") {
			username = credentialUsername
		}
		description := c.Description
		if cmd.Flags().Changed("description") {
			description = credentialDescription
		}

		if err := credentialSvc.UpdateCredential(
			cmd.Context(), c.CredentialID, username, description,
		); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "credential '%s' updated\n", args[0])
		return nil
	},
}

var credentialListCmd = &cobra.Command{
	Use:          "list",
	Short:        "List stored credentials",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		credentialSvc := newCredentialService()
		credentials, err := credentialSvc.ListCredentials(cmd.Context())
		if err != nil {
			return err
		}
		for _, c := range credentials {
			line := c.Name
			if c.Username != "" {
				line += " (" + c.Username + ")"
			}
			if c.Description != "" {
				line += " " + strings.TrimSpace(c.Description)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var credentialRmCmd = &cobra.Command{
	Use:          "rm <name>",
	Short:        "Delete a stored credential",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		credentialSvc := newCredentialService()
		if err := credentialSvc.DeleteCredential(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "credential '%s' deleted\n", args[0])
		return nil
	},
}

func newCredentialService() *service.CredentialService {
	rwdb := store.InitDatabase(false)
	store.RunMigrations(rwdb)
	return service.NewCredentialService(
		store.NewCredentialSQLiteStore(rwdb, rwdb),
		security.NewAESEncrypter(security.NewVaultKey()),
	)
}

func init() {
	credentialAddCmd.Flags().
		StringVarP(&credentialUsername, "username", "u", "", "username half of the credential")
	credentialAddCmd.Flags().
		StringVarP(&credentialDescription, "description", "d", "", "what the credential is for")
	credentialUpdateCmd.Flags().
		StringVarP(&credentialUsername, "username", "u", "", "username half of the credential")
	credentialUpdateCmd.Flags().
		StringVarP(&credentialDescription, "description", "d", "", "what the credential is for")

	credentialCmd.AddCommand(credentialAddCmd)
	credentialCmd.AddCommand(credentialUpdateCmd)
	credentialCmd.AddCommand(credentialListCmd)
	credentialCmd.AddCommand(credentialRmCmd)
}
