package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"dupindex/pkg/types"

	"github.com/spf13/cobra"
)

var hashCmd = &cobra.Command{
	Use:   "hash <function> <digest>",
	Short: "List every (package, file) sharing a digest under a function",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}

		function := types.FunctionName(args[0])
		digest := types.Digest(args[1])

		// 摘要只在产生它的函数内有意义，先拦下没注册的函数名
		if _, found := IDX.Registry.ForName(function); !found {
			return fmt.Errorf("unknown hash function %q (have: %v)", function, IDX.Registry.Names())
		}

		rows, err := IDX.Repo.ContentsByDigest(cmd.Context(), function, digest)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			fmt.Println("no content with that digest")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PACKAGE\tFILENAME\tSIZE")
		for _, row := range rows {
			fmt.Fprintf(w, "%s\t%s\t%s\n", row.PackageName, row.Filename, formatSize(row.Size))
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
}
