package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var pkgCmd = &cobra.Command{
	Use:   "pkg <name>",
	Short: "Show a package's indexed overview",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}

		stats, err := IDX.Repo.GetPackageStats(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		pkg := stats.Package
		fmt.Printf("Package:      %s\n", pkg.Name)
		fmt.Printf("Version:      %s\n", pkg.Version)
		fmt.Printf("Architecture: %s\n", pkg.Architecture)
		if pkg.Source != "" && pkg.Source != pkg.Name {
			fmt.Printf("Source:       %s\n", pkg.Source)
		}
		fmt.Printf("Files:        %d\n", stats.NumFiles)
		fmt.Printf("Total size:   %s\n", formatSize(stats.TotalSize))

		if len(pkg.Depends) > 0 {
			var depends []string
			if err := json.Unmarshal(pkg.Depends, &depends); err == nil && len(depends) > 0 {
				fmt.Printf("Depends:      %v\n", depends)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pkgCmd)
}
