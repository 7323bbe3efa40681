package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/repository"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func TenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  "Create and list tenants",
	}

	cmd.AddCommand(TenantCreateCmd())
	cmd.AddCommand(TenantListCmd())

	return cmd
}

func TenantCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new tenant",
		Args:  cobra.ExactArgs(1),
		RunE:  runTenantCreate,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := service.NewAuthService(repository.NewTenantRepository(pool), nil, &service.DefaultUUIDGenerator{})

	tenant, err := authSvc.CreateTenant(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	if outputFormat == "json" {
		return printJSON(cmd, map[string]interface{}{
			"id":         tenant.ID,
			"name":       tenant.Name,
			"created_at": tenant.CreatedAt,
		})
	}
	cmd.Printf("Tenant created: %s (%s)\n", tenant.Name, tenant.ID)
	return nil
}

func TenantListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all tenants",
		RunE:  runTenantList,
	}

	cmd.Flags().StringP("output", "o", "text", "Output format (text or json)")

	return cmd
}

func runTenantList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	outputFormat, _ := cmd.Flags().GetString("output")

	pool, _, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	authSvc := service.NewAuthService(repository.NewTenantRepository(pool), nil, nil)
	tenants, err := authSvc.ListTenants(ctx)
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if outputFormat == "json" {
		data := make([]map[string]interface{}, len(tenants))
		for i, t := range tenants {
			data[i] = map[string]interface{}{
				"id":         t.ID,
				"name":       t.Name,
				"created_at": t.CreatedAt,
			}
		}
		return printJSON(cmd, map[string]interface{}{"items": data})
	}

	if len(tenants) == 0 {
		cmd.Println("No tenants found")
		return nil
	}
	cmd.Println("Tenants:")
	for _, t := range tenants {
		cmd.Printf("  %s: %s (created: %s)\n", t.ID, t.Name, t.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

// resolveTenantID accepts either a tenant UUID or a tenant name.
func resolveTenantID(ctx context.Context, tenantRepo service.TenantRepository, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		tenant, err := tenantRepo.GetByID(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("tenant not found: %s", ref)
		}
		return tenant.ID, nil
	}

	tenant, err := tenantRepo.GetByName(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			return "", fmt.Errorf("tenant not found: %s", ref)
		}
		return "", err
	}
	return tenant.ID, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(data))
	return nil
}
