// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/boydjohnson/onnxruntime/envconfig"
	"github.com/boydjohnson/onnxruntime/logutil"
	"github.com/boydjohnson/onnxruntime/ort"
)

// envBuilder liefert den Builder fuer alle Commands; Tests ersetzen das ABI
var envBuilder = ort.NewEnvBuilder

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "ortgo",
		Short:         "Inspect and exercise the ONNX Runtime bindings",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Print(cmd.UsageString())
		},
	}

	envCmd := newEnvCmd()
	stressCmd := newStressCmd()
	runCmd := newRunCmd()
	configCmd := newConfigCmd()

	envVars := envconfig.AsMap()
	native := []envconfig.EnvVar{
		envVars["ORT_LIB_PATH"],
		envVars["ORT_API_VERSION"],
		envVars["ORT_DEBUG"],
		envVars["ORT_LOG_SEVERITY"],
		envVars["ORT_ENV_NAME"],
	}

	for _, cmd := range []*cobra.Command{envCmd, stressCmd, runCmd} {
		switch cmd {
		case runCmd:
			appendEnvDocs(cmd, append(native,
				envVars["ORT_INTRA_OP_THREADS"],
				envVars["ORT_INTER_OP_THREADS"],
				envVars["ORT_GRAPH_OPTIMIZATION"],
			))
		default:
			appendEnvDocs(cmd, native)
		}
	}

	rootCmd.AddCommand(envCmd, stressCmd, runCmd, configCmd)
	return rootCmd
}

func newEnvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Create the environment and print its handle",
		Args:  cobra.NoArgs,
		RunE:  EnvHandler,
	}
	cmd.Flags().String("name", "", "Environment name (default $ORT_ENV_NAME)")
	cmd.Flags().String("log-level", "", "Native log severity (default $ORT_LOG_SEVERITY)")
	return cmd
}

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Build environments concurrently and check they share one handle",
		Args:  cobra.NoArgs,
		RunE:  StressHandler,
	}
	cmd.Flags().IntP("workers", "n", 10, "Number of concurrent builds")
	return cmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run MODEL",
		Short: "Run a model once and summarize its outputs",
		Args:  cobra.ExactArgs(1),
		RunE:  RunHandler,
	}
	cmd.Flags().String("image", "", "Image file used as input (grayscale, resized to the input shape)")
	cmd.Flags().String("shape", "", "Input shape, e.g. 1,1,28,28 (default from the model)")
	cmd.Flags().Int("top", 5, "Number of leading values to print per output")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the ORT_* configuration",
		Args:  cobra.NoArgs,
		RunE:  ConfigHandler,
	}
}
