package cmd

import (
	"github.com/spf13/cobra"
)

// Globals holds the persistent flags every subcommand reads,
// grounded on sidecar-cli/cmd/root.go's pattern of persistent flags
// bound to package-level vars rather than threaded through each
// command's args.
var Globals struct {
	Server  string
	ApiKey  string
	Verbose bool
}

var rootCmd = &cobra.Command{
	Use:   "ixfrctl",
	Short: "CLI tool to inspect and manage an ixfrd instance",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&Globals.Server, "server", "s",
		"http://localhost:8080", "ixfrd admin API base URL")
	rootCmd.PersistentFlags().StringVarP(&Globals.ApiKey, "apikey", "k",
		"", "ixfrd admin API key")
	rootCmd.PersistentFlags().BoolVarP(&Globals.Verbose, "verbose", "v", false, "verbose output")
}
