package commands

import (
	"errors"
	"fmt"
	"time"

	"dupindex/pkg/aggregator"

	"github.com/spf13/cobra"
)

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute all sharing statistics from scratch",
	Long: `Drop and rebuild the sharing_groups table from the full hash record
index. This is a batch recomputation, meant to be run manually after an
import batch completes. Running it concurrently with ongoing ingestion is
safe but reflects an arbitrary snapshot; re-run it once the batch is done.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}

		start := time.Now()
		fmt.Print("🔨 Rebuilding sharing groups... ")

		stats, err := IDX.Aggregator.Rebuild(cmd.Context())
		if errors.Is(err, aggregator.ErrRebuildInFlight) {
			fmt.Println()
			fmt.Println("another rebuild is already running, not starting a second one")
			return nil
		}
		if err != nil {
			return fmt.Errorf("rebuild failed: %w", err)
		}

		fmt.Printf("Done (%s)\n", time.Since(start).Round(time.Millisecond))
		fmt.Printf("   Scanned:     %d hash records\n", stats.Scanned)
		fmt.Printf("   Groups:      %d\n", stats.Groups)
		fmt.Printf("   Recoverable: %s\n", formatSize(stats.Recoverable))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rebuildCmd)
}
