package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goretk/symcache"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <executable>...",
		Short: "Describe the image format and architecture of executables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tFORMAT\tOS\tARCH\tBITS\tLIBRARY\tBUILD ID")
			var failed int
			for _, path := range args {
				info, err := symcache.Inspect(path)
				if err != nil {
					failed++
					fmt.Fprintf(tw, "%s\terror: %v\t\t\t\t\t\n", path, err)
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%t\t%s\n",
					path, info.Format, info.OS, info.Arch, info.WordSize*8, info.Library, info.BuildID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files could not be inspected", failed, len(args))
			}
			return nil
		},
	}
}
