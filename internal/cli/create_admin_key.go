package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radhakrish-venkat/desktop-search/internal/auth"
	"github.com/radhakrish-venkat/desktop-search/internal/domain"
)

var createAdminKeyName string

var createAdminKeyCmd = &cobra.Command{
	Use:   "create-admin-key",
	Short: "Mint an admin API key and print its plaintext secret once",
	RunE:  runCreateAdminKey,
}

func init() {
	createAdminKeyCmd.Flags().StringVar(&createAdminKeyName, "name", "admin", "name for the new key")
	rootCmd.AddCommand(createAdminKeyCmd)
}

func runCreateAdminKey(cmd *cobra.Command, _ []string) error {
	c, err := bootstrap()
	if err != nil {
		return err
	}
	defer c.db.Close()

	plaintext, key, err := c.keys.Create(context.Background(), auth.CreateKeyRequest{
		Name:        createAdminKeyName,
		Description: "bootstrap admin key",
		Permissions: []domain.Permission{domain.PermAdmin},
	})
	if err != nil {
		return fmt.Errorf("create admin key: %w", err)
	}

	cmd.Printf("admin key created: %s\n", key.ID)
	cmd.Printf("secret (shown once): %s\n", plaintext)
	return nil
}
