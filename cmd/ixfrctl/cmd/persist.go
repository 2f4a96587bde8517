package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// persistResponse mirrors cmd/ixfrd/api.go's PersistResponse.
type persistResponse struct {
	Zone     string
	Action   string
	Error    bool
	ErrorMsg string
}

var persistCmd = &cobra.Command{
	Use:   "persist",
	Short: "Trigger a manual write or read of a zone's stored IXFR segments",
}

var persistWriteCmd = &cobra.Command{
	Use:   "write <zone>",
	Short: "Write the zone's in-memory chain to its IXFR files",
	Args:  cobra.ExactArgs(1),
	Run:   runPersist("write"),
}

var persistReadCmd = &cobra.Command{
	Use:   "read <zone>",
	Short: "Load the zone's chain from its existing IXFR files",
	Args:  cobra.ExactArgs(1),
	Run:   runPersist("read"),
}

func runPersist(action string) func(c *cobra.Command, args []string) {
	return func(c *cobra.Command, args []string) {
		zone := args[0]
		var resp persistResponse
		body := map[string]string{"Action": action}
		if err := apiPost(fmt.Sprintf("/api/v1/zone/%s/persist", zone), body, &resp); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if resp.Error {
			fmt.Fprintf(os.Stderr, "persist %s failed for zone %s: %s\n", action, zone, resp.ErrorMsg)
			os.Exit(1)
		}
		fmt.Printf("persist %s succeeded for zone %s\n", action, zone)
	}
}

func init() {
	rootCmd.AddCommand(persistCmd)
	persistCmd.AddCommand(persistWriteCmd)
	persistCmd.AddCommand(persistReadCmd)
}
