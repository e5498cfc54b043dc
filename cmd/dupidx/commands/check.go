package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"dupindex/pkg/hashfn"
	"dupindex/pkg/types"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check <function>",
	Short: "Flag content whose filename implies a container format it does not decode as",
	Long: `Find content whose filename suggests a container format (e.g. *.gz)
but which has no hash record under the matching decode function — in
other words, files that are corrupt or misnamed.

Only meaningful after a full import/backfill: before that, a missing
record can also just mean "not evaluated yet".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}

		function := types.FunctionName(args[0])
		suffix, ok := hashfn.FunctionSuffix(function)
		if !ok {
			return fmt.Errorf("%q is not a decode-dependent function with a filename convention", function)
		}

		rows, err := IDX.Repo.SuspectContents(cmd.Context(), function, suffix)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Printf("no suspect %s files 🎉\n", suffix)
			return nil
		}

		fmt.Printf("%d file(s) named *%s that are not valid for %s:\n", len(rows), suffix, function)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PACKAGE\tFILENAME\tSIZE")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\n", row.PackageName, row.Filename, formatSize(row.Size))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
