package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adbrec/adbrec/internal/config"
)

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration adbrec would use in this directory, after
applying the configuration file and ADB_VIDEO / ADBREC_* environment
variables.`,
		Args: cobra.NoArgs,
		RunE: runConfig,
	}
}

func runConfig(c *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(c)
	if err != nil {
		return err
	}

	data, err := config.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	out := c.OutOrStdout()
	if path != "" {
		fmt.Fprintf(out, "# loaded from %s\n", path)
	} else {
		fmt.Fprintln(out, "# built-in defaults")
	}
	_, err = out.Write(data)
	return err
}
