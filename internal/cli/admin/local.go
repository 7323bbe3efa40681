package admin

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/codmer/pulsedoc/internal/domain"
	"github.com/codmer/pulsedoc/internal/logging"
	"github.com/codmer/pulsedoc/internal/metrics"
	"github.com/codmer/pulsedoc/internal/repository"
	"github.com/codmer/pulsedoc/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// scopeFlags are shared by the commands that run the pipeline in-process.
func scopeFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("scope", pflag.ContinueOnError)
	fs.StringP("tenant", "t", "", "Tenant ID or name (required)")
	fs.Int64P("entity-id", "e", 0, "Entity ID within the tenant (required)")
	fs.StringP("display-name", "d", "", "Display name within the entity (required)")
	fs.StringP("output", "o", "text", "Output format (text or json)")
	return fs
}

func addScopeFlags(cmd *cobra.Command) {
	cmd.Flags().AddFlagSet(scopeFlags())
	for _, name := range []string{"tenant", "entity-id", "display-name"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func IndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <file>",
		Short: "Index a local document",
		Long:  "Extract, chunk and embed a local file into the given scope without going through the API",
		Args:  cobra.ExactArgs(1),
		RunE:  runIndex,
	}
	addScopeFlags(cmd)
	return cmd
}

func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <query>",
		Short: "Answer a query against indexed documents",
		Long:  "Run a query or order request against a scope without going through the API",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	addScopeFlags(cmd)
	cmd.Flags().Int("top-k", 0, "Chunks to retrieve for general questions (default from config)")
	return cmd
}

type localRun struct {
	stack  *stack
	scope  domain.Scope
	output string
	close  func()
}

func openLocalRun(cmd *cobra.Command) (*localRun, error) {
	ctx := cmd.Context()

	pool, cfg, err := getDBPool(ctx)
	if err != nil {
		return nil, err
	}

	logger := logging.New(cmd.ErrOrStderr(), "pulsedoc-cli", cfg.LogLevel)
	st, err := buildStack(ctx, cfg, pool, metrics.New(), logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	tenantRef, _ := cmd.Flags().GetString("tenant")
	tenantID, err := resolveTenantID(ctx, repository.NewTenantRepository(pool), tenantRef)
	if err != nil {
		pool.Close()
		return nil, err
	}

	entityID, _ := cmd.Flags().GetInt64("entity-id")
	displayName, _ := cmd.Flags().GetString("display-name")
	output, _ := cmd.Flags().GetString("output")

	return &localRun{
		stack:  st,
		scope:  domain.NewScope(tenantID, entityID, displayName),
		output: output,
		close:  pool.Close,
	}, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	run, err := openLocalRun(cmd)
	if err != nil {
		return err
	}
	defer run.close()

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	result, err := run.stack.documents.UploadAndIndex(cmd.Context(), service.UploadInput{
		Scope:       run.scope,
		FileName:    filepath.Base(path),
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", path, err)
	}

	if run.output == "json" {
		return printJSON(cmd, map[string]interface{}{
			"document_id":    result.Document.ID,
			"status":         result.Document.Status,
			"chunk_count":    result.ChunkCount,
			"embedded_count": result.EmbeddedCount,
			"message":        result.Message,
		})
	}
	cmd.Printf("%s: %s\n", result.Document.ID, result.Message)
	cmd.Printf("Chunks: %d (%d embedded)\n", result.ChunkCount, result.EmbeddedCount)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	run, err := openLocalRun(cmd)
	if err != nil {
		return err
	}
	defer run.close()

	topK, _ := cmd.Flags().GetInt("top-k")
	result, err := run.stack.documents.AnswerQuery(cmd.Context(), service.QueryInput{
		Scope: run.scope,
		Query: strings.Join(args, " "),
		TopK:  topK,
	})
	if err != nil {
		return fmt.Errorf("failed to answer query: %w", err)
	}

	if run.output == "json" {
		out := map[string]interface{}{
			"intent": result.Intent,
			"answer": result.Answer,
		}
		if o := result.Order; o != nil {
			out["order"] = map[string]interface{}{
				"status":    o.Status,
				"requested": o.Requested,
				"available": o.Available,
				"missing":   o.Missing,
			}
		}
		return printJSON(cmd, out)
	}

	if result.Order != nil {
		cmd.Printf("[%s] ", result.Order.Status)
	}
	cmd.Println(result.Answer)
	return nil
}

