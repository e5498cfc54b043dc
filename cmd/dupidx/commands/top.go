package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"dupindex/pkg/types"

	"github.com/spf13/cobra"
)

var (
	topFunction string
	topLimit    int
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show sharing groups ordered by recoverable bytes",
	Long: `List the sharing groups with the most recoverable bytes, i.e. the
best deduplication candidates. Statistics come from the last 'rebuild';
run that first after importing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}

		rows, err := IDX.Repo.TopGroups(cmd.Context(), types.FunctionName(topFunction), topLimit)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("no sharing groups (did you run 'dupidx rebuild'?)")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FUNCTION\tDIGEST\tCOPIES\tPKGS\tTOTAL\tRECOVERABLE")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%.16s…\t%d\t%d\t%s\t%s\n",
				row.FunctionName, row.Digest,
				row.MemberCount, row.PackageCount,
				formatSize(row.TotalSize), formatSize(row.Recoverable))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(topCmd)
	topCmd.Flags().StringVarP(&topFunction, "function", "f", "", "restrict to one hash function")
	topCmd.Flags().IntVarP(&topLimit, "limit", "n", 20, "number of groups to show")
}
