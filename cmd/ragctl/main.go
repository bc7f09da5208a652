// Package main provides the command-line client for ingestion and queries.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/grounded-rag/internal/app"
	"github.com/bull/grounded-rag/internal/config"
	"github.com/bull/grounded-rag/internal/indexer"
)

var collection string

var rootCmd = &cobra.Command{
	Use:   "ragctl",
	Short: "Ingest documents and websites, then ask grounded questions",
	Long: `Command-line client for the grounded question-answering index.

Configuration is read from .env, the YAML file named by CONFIG_FILE and the
environment, the same way the server reads it.

Environment variables:
  VECTOR_BACKEND     qdrant or chromem (default: qdrant)
  QDRANT_HOST        Qdrant hostname (default: localhost)
  QDRANT_PORT        Qdrant gRPC port (default: 6334)
  CHROMEM_PATH       Directory for the chromem backend (default: in memory)
  COLLECTION_NAME    Collection to use (default: langchainjs-testing)
  OPENAI_API_KEY     OpenAI API key (required for the openai providers)
  EMBEDDING_PROVIDER openai or ollama (default: openai)
  LLM_PROVIDER       openai or ollama (default: openai)`,
	SilenceUsage: true,
}

var ingestURLCmd = &cobra.Command{
	Use:   "ingest-url <url>",
	Short: "Crawl a website and index its pages",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngestURL,
}

var ingestFileCmd = &cobra.Command{
	Use:   "ingest-file <path>...",
	Short: "Index one or more local files (pdf, docx, markdown, html, text)",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngestFile,
}

var queryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question from the indexed content",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Show the chunks most similar to a query",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the collection and how many chunks it holds",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every chunk from the collection",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&collection, "collection", "", "collection name (overrides COLLECTION_NAME)")

	ingestURLCmd.Flags().Int("max-pages", 0, "maximum pages to visit (default CRAWL_MAX_PAGES)")
	searchCmd.Flags().Int("k", 0, "number of chunks to return (default RETRIEVE_K)")
	resetCmd.Flags().Bool("yes", false, "confirm clearing the collection")

	rootCmd.AddCommand(ingestURLCmd, ingestFileCmd, queryCmd, searchCmd, statusCmd, resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openApp loads configuration and wires the service for one command.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if collection != "" {
		cfg.Collection = collection
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, cfg.NewLogger(os.Stderr))
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
}

func runIngestURL(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	maxPages, _ := cmd.Flags().GetInt("max-pages")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	fmt.Printf("Crawling %s...\n", args[0])
	result, err := a.Service.IngestURL(ctx, args[0], maxPages)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	printIngestResult(result)
	return nil
}

func runIngestFile(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var failed int
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("  - %s: %v\n", path, err)
			failed++
			continue
		}
		result, err := a.Service.IngestFile(ctx, filepath.Base(path), data)
		if err != nil {
			fmt.Printf("  - %s: %v\n", path, err)
			failed++
			continue
		}
		fmt.Printf("%s: %d documents, %d chunks\n", path, result.Documents, result.Chunks)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args))
	}
	return nil
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Service.Query(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, src := range result.Sources {
			if src.URL != nil {
				fmt.Printf("  - %s (%s)\n", src.Title, *src.URL)
			} else {
				fmt.Printf("  - %s\n", src.Title)
			}
		}
	}
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	k, _ := cmd.Flags().GetInt("k")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	matches, err := a.Service.Search(ctx, strings.Join(args, " "), k)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No matching chunks found")
		return nil
	}

	for i, m := range matches {
		md := m.Chunk.Metadata
		label := md.Title
		if md.URL != "" {
			label = md.URL
		}
		fmt.Printf("%d. [%.3f] %s (chunk %d/%d)\n", i+1, m.Score, label, md.ChunkIndex+1, md.TotalChunks)
		fmt.Printf("   %s\n", preview(m.Chunk.Content, 160))
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.Service.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Collection:      %s\n", st.Collection)
	fmt.Printf("Exists:          %t\n", st.Exists)
	fmt.Printf("Chunks:          %d\n", st.Chunks)
	fmt.Printf("Embedding model: %s\n", st.EmbeddingModel)
	return nil
}

func runReset(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return fmt.Errorf("refusing to clear the collection without --yes")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Service.Reset(ctx); err != nil {
		return err
	}
	fmt.Printf("Collection %s cleared\n", a.Service.Collection())
	return nil
}

func printIngestResult(result *indexer.IngestResult) {
	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Pages: %d\n", result.Documents)
	fmt.Printf("  Chunks: %d\n", result.Chunks)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Millisecond))

	if len(result.Failed) > 0 {
		fmt.Println()
		fmt.Println("Failed pages:")
		for _, failed := range result.Failed {
			fmt.Printf("  - %s: %s\n", failed.URL, failed.Reason)
		}
	}
}

// preview collapses content to one line of at most n runes.
func preview(content string, n int) string {
	line := strings.Join(strings.Fields(content), " ")
	runes := []rune(line)
	if len(runes) <= n {
		return line
	}
	return string(runes[:n]) + "..."
}
