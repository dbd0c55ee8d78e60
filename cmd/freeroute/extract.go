package freeroute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	gateway "github.com/tc3oliver/FreeRoute-RAG-Infra-sub000"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/extract"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract a graph from a text file or stdin",
	Long: `Run one extraction and print the result as JSON. On failure the
failure payload is printed and the command exits non-zero.`,
	RunE: runExtract,
}

var (
	extractFile     string
	extractChain    []string
	extractNoRepair bool
	extractLenient  bool
)

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "text file to extract from (default stdin)")
	extractCmd.Flags().StringSliceVar(&extractChain, "provider-chain", nil, "providers to try, in order")
	extractCmd.Flags().Int("min-nodes", 0, "minimum node count")
	extractCmd.Flags().Int("min-edges", 0, "minimum edge count")
	extractCmd.Flags().Int("max-attempts", 0, "attempts per provider")
	extractCmd.Flags().Bool("allow-empty", false, "accept graphs below the thresholds")
	extractCmd.Flags().String("strategy", "", "provider strategy (parallel, sequential)")
	extractCmd.Flags().BoolVar(&extractNoRepair, "no-repair", false, "skip the repair call after a malformed reply")
	extractCmd.Flags().BoolVar(&extractLenient, "lenient", false, "skip pruning and schema validation")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("strategy") {
		cfg.Graph.Strategy, _ = cmd.Flags().GetString("strategy")
	}
	// The CLI never touches the graph store.
	cfg.Database.Driver = "none"

	text, err := readInput(cmd.InOrStdin())
	if err != nil {
		return err
	}

	log, flushTelemetry := newLogger(cfg)
	defer flushTelemetry()

	ctx := context.WithValue(context.Background(), types.ContextKeyRequestSource, "cli")
	gw, err := gateway.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}
	defer gw.Close(ctx)

	req := extractRequest(cmd, text)
	res, err := gw.Extract(ctx, req)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	var exhausted *extract.ExhaustedError
	switch {
	case err == nil:
		return enc.Encode(res)
	case errors.As(err, &exhausted):
		if encErr := enc.Encode(exhausted); encErr != nil {
			return encErr
		}
		return err
	default:
		return err
	}
}

func extractRequest(cmd *cobra.Command, text string) *extract.Request {
	req := &extract.Request{
		Context:         text,
		Strict:          !extractLenient,
		RepairIfInvalid: !extractNoRepair,
		ProviderChain:   extractChain,
	}
	if cmd.Flags().Changed("min-nodes") {
		n, _ := cmd.Flags().GetInt("min-nodes")
		req.MinNodes = &n
	}
	if cmd.Flags().Changed("min-edges") {
		n, _ := cmd.Flags().GetInt("min-edges")
		req.MinEdges = &n
	}
	if cmd.Flags().Changed("max-attempts") {
		n, _ := cmd.Flags().GetInt("max-attempts")
		req.MaxAttempts = &n
	}
	if cmd.Flags().Changed("allow-empty") {
		b, _ := cmd.Flags().GetBool("allow-empty")
		req.AllowEmpty = &b
	}
	return req
}

func readInput(stdin io.Reader) (string, error) {
	if extractFile != "" {
		data, err := os.ReadFile(extractFile)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", extractFile, err)
		}
		return string(data), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}
