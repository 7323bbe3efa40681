package admin

import (
	"fmt"

	"github.com/codmer/pulsedoc/internal/repository"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/spf13/cobra"
)

func APIKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
		Long:  "Create, list, and revoke API keys",
	}

	cmd.AddCommand(APIKeyCreateCmd())
	cmd.AddCommand(APIKeyListCmd())
	cmd.AddCommand(APIKeyRevokeCmd())

	return cmd
}

func APIKeyCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Create a new API key for a tenant",
		RunE:  runAPIKeyCreate,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("name", "n", "", "API key name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func runAPIKeyCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenantRef, _ := cmd.Flags().GetString("tenant")
	name, _ := cmd.Flags().GetString("name")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	authSvc := service.NewAuthService(tenantRepo, repository.NewAPIKeyRepository(pool), nil)

	tenantID, err := resolveTenantID(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	token, err := authSvc.CreateAPIKey(ctx, tenantID, name)
	if err != nil {
		return fmt.Errorf("failed to create API key: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, map[string]interface{}{
			"name":      name,
			"tenant_id": tenantID,
			"token":     token,
		})
	}
	cmd.Printf("API key created for tenant %s\n", tenantID)
	cmd.Printf("Key Name: %s\n", name)
	cmd.Printf("Token: %s\n", token)
	cmd.Println("\nSave this token now. It cannot be shown again.")
	return nil
}

func APIKeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for a tenant",
		RunE:  runAPIKeyList,
	}

	cmd.Flags().StringP("tenant", "t", "", "Tenant ID or name (required)")
	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	_ = cmd.MarkFlagRequired("tenant")

	return cmd
}

func runAPIKeyList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tenantRef, _ := cmd.Flags().GetString("tenant")
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	authSvc := service.NewAuthService(tenantRepo, repository.NewAPIKeyRepository(pool), nil)

	tenantID, err := resolveTenantID(ctx, tenantRepo, tenantRef)
	if err != nil {
		return err
	}

	keys, err := authSvc.ListAPIKeys(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("failed to list API keys: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(keys))
		for i, key := range keys {
			data[i] = map[string]interface{}{
				"id":         key.ID,
				"name":       key.Name,
				"tenant_id":  key.TenantID,
				"created_at": key.CreatedAt,
				"revoked_at": key.RevokedAt,
				"revoked":    key.IsRevoked(),
			}
		}
		return printJSON(cmd, map[string]interface{}{"items": data})
	}

	if len(keys) == 0 {
		cmd.Printf("No API keys found for tenant %s\n", tenantID)
		return nil
	}
	cmd.Printf("API keys for tenant %s:\n", tenantID)
	for _, key := range keys {
		status := "active"
		if key.IsRevoked() {
			status = "revoked"
		}
		cmd.Printf("  %s: %s (%s, created: %s)\n", key.ID, key.Name, status, key.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func APIKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE:  runAPIKeyRevoke,
	}
}

func runAPIKeyRevoke(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := service.NewAuthService(nil, repository.NewAPIKeyRepository(pool), nil)
	if err := authSvc.RevokeAPIKey(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to revoke API key: %w", err)
	}

	cmd.Printf("API key %s revoked\n", args[0])
	return nil
}
