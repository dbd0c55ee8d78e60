package freeroute

import (
	"fmt"

	"github.com/spf13/cobra"

	gateway "github.com/tc3oliver/FreeRoute-RAG-Infra-sub000"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/config"
	"github.com/tc3oliver/FreeRoute-RAG-Infra-sub000/pkg/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema [path]",
	Short: "Validate a graph schema and print its hash",
	Long: `Load a graph JSON Schema, check that it describes the node and edge
contract, and print the hash reported with every extraction. Without a path
the configured schema is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSchema,
}

var exampleConfigPath string

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVar(&exampleConfigPath, "write-example-config", "", "also write a sample YAML config to this path")
}

func runSchema(cmd *cobra.Command, args []string) error {
	var (
		v   *schema.Validator
		err error
	)
	if len(args) == 1 {
		v, err = schema.Load(args[0])
	} else {
		var cfg *config.Config
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		v, err = gateway.LoadSchema(cfg.Graph)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.Hash())

	if exampleConfigPath != "" {
		if err := config.WriteExample(exampleConfigPath); err != nil {
			return fmt.Errorf("failed to write example config: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Wrote example config to", exampleConfigPath)
	}
	return nil
}
