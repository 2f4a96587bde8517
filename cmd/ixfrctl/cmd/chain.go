package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// chainSegment mirrors cmd/ixfrd/api.go's SegmentInfo; ixfrctl keeps
// its own copy of the wire shape rather than importing the server's
// main package, the same separation tdns/apiclient.go keeps between
// client-side response structs and the server's internal types.
type chainSegment struct {
	OldSerial uint32
	NewSerial uint32
	Bytes     int
	FileIndex int
}

type chainResponse struct {
	Zone     string
	Current  uint32
	Segments []chainSegment
}

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Inspect a zone's stored IXFR version chain",
}

var chainShowCmd = &cobra.Command{
	Use:   "show <zone>",
	Short: "List every segment currently stored for a zone",
	Args:  cobra.ExactArgs(1),
	Run: func(c *cobra.Command, args []string) {
		zone := args[0]
		var resp chainResponse
		if err := apiGet(fmt.Sprintf("/api/v1/zone/%s/chain", zone), &resp); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		fmt.Printf("zone %s, current serial %d, %d segment(s)\n", resp.Zone, resp.Current, len(resp.Segments))
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "OLD\tNEW\tBYTES\tFILE")
		for _, seg := range resp.Segments {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\n", seg.OldSerial, seg.NewSerial, seg.Bytes, seg.FileIndex)
		}
		tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	chainCmd.AddCommand(chainShowCmd)
}
