package mangagraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/soundprediction/mangagraph"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search works and print the result graph",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := mangagraph.GraphRequest{Query: strings.Join(args, " ")}
		flags := cmd.Flags()
		req.Limit, _ = flags.GetInt("limit")
		req.IncludeRelated, _ = flags.GetBool("related")
		req.IncludeHentai, _ = flags.GetBool("hentai")
		req.SortTotalVolumes, _ = flags.GetString("sort")
		req.MinTotalVolumes, _ = flags.GetInt("min-volumes")
		req.Languages, _ = flags.GetStringSlice("languages")
		req.RelatedLimit, _ = flags.GetInt("related-limit")

		return withClient(cmd, func(ctx context.Context, client mangagraph.Mangagraph) (any, error) {
			return client.FindRelatedGraphWithOptions(ctx, req)
		})
	},
}

var similarCmd = &cobra.Command{
	Use:   "similar <text>",
	Short: "Find works whose embedding is similar to the text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req := mangagraph.SimilarRequest{Text: strings.Join(args, " ")}
		flags := cmd.Flags()
		req.Property, _ = flags.GetString("property")
		req.Limit, _ = flags.GetInt("limit")
		req.IncludeHentai, _ = flags.GetBool("hentai")
		if flags.Changed("threshold") {
			threshold, _ := flags.GetFloat64("threshold")
			req.Threshold = &threshold
		}

		return withClient(cmd, func(ctx context.Context, client mangagraph.Mangagraph) (any, error) {
			return client.FindSimilarWorks(ctx, req)
		})
	},
}

var workCmd = &cobra.Command{
	Use:   "work <id>",
	Short: "Print one work with its authors, magazines and publishers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client mangagraph.Mangagraph) (any, error) {
			return client.GetWorkGraph(ctx, args[0])
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print node and relationship counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, client mangagraph.Mangagraph) (any, error) {
			return client.Stats(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(searchCmd, similarCmd, workCmd, statsCmd)

	searchCmd.Flags().Int("limit", mangagraph.DefaultLimit, "maximum number of works")
	searchCmd.Flags().Bool("related", false, "include related works")
	searchCmd.Flags().Bool("hentai", false, "include adult works")
	searchCmd.Flags().String("sort", "", "sort by total volumes (asc, desc)")
	searchCmd.Flags().Int("min-volumes", 0, "drop works with fewer total volumes")
	searchCmd.Flags().StringSlice("languages", nil, "title languages to try, in order (japanese, english)")
	searchCmd.Flags().Int("related-limit", 0, "maximum number of related works (default limit)")

	similarCmd.Flags().String("property", "", "vector property (embedding_title_ja, embedding_title_en, embedding_description)")
	similarCmd.Flags().Int("limit", mangagraph.DefaultSimilarLimit, "maximum number of works")
	similarCmd.Flags().Float64("threshold", mangagraph.DefaultVectorThreshold, "minimum similarity in [0, 1]")
	similarCmd.Flags().Bool("hentai", false, "include adult works")
}

// withClient opens a client, runs fn with a context cancelled on SIGINT
// and prints its result.
func withClient(cmd *cobra.Command, fn func(context.Context, mangagraph.Mangagraph) (any, error)) error {
	encode, err := encoderFor(outputFormat)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	logger, closeLogger, err := newLogger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLogger() }()

	client, err := mangagraph.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize mangagraph: %w", err)
	}
	defer closeClient(client, logger)

	result, err := fn(ctx, client)
	if err != nil {
		return err
	}
	return encode(cmd.OutOrStdout(), result)
}

func closeClient(client mangagraph.Mangagraph, logger *slog.Logger) {
	if err := client.Close(context.Background()); err != nil {
		logger.Warn("Failed to close client", "error", err)
	}
}

type encodeFunc func(w io.Writer, v any) error

func encoderFor(format string) (encodeFunc, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return func(w io.Writer, v any) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}, nil
	case "yaml", "yml":
		return func(w io.Writer, v any) error {
			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(v); err != nil {
				return err
			}
			return enc.Close()
		}, nil
	}
	return nil, fmt.Errorf("unknown output format %q (want json or yaml)", format)
}
