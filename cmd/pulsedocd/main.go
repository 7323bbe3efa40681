package main

import (
	"context"
	"fmt"
	"os"

	"github.com/codmer/pulsedoc/internal/cli/admin"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "pulsedocd",
		Short:   "Pulsedoc daemon and admin CLI",
		Long:    "Pulsedoc indexes business documents and answers questions and orders against them",
		Version: version,
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.TenantCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.IndexCmd())
	rootCmd.AddCommand(admin.AskCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
