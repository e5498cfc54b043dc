package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var backfillJobs int

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Re-scan every stream against the current hash function registry",
	Long: `After a new hash function is added to the registry, historical content
has no records for it. Backfill re-reads every stream in the source and
evaluates only the functions that are still missing per content; existing
records are never touched or duplicated.

Note: a missing record also means "evaluated, not applicable". The index
does not distinguish the two, which is why backfill always covers the
full source rather than trying to be clever.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}
		ctx := cmd.Context()

		src, err := IDX.OpenSource(ctx)
		if err != nil {
			return err
		}
		keys, err := src.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list streams: %w", err)
		}

		start := time.Now()
		fmt.Printf("🔄 Backfilling %d stream(s) against registry %v...\n", len(keys), IDX.Registry.Names())

		var total int64
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(backfillJobs)

		results := make([]int, len(keys))
		for i, key := range keys {
			g.Go(func() error {
				rc, err := src.Open(gctx, key)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				defer rc.Close()

				stats, err := IDX.Ingester.IngestStream(gctx, rc)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				results[i] = stats.NewRecords
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, n := range results {
			total += int64(n)
		}

		fmt.Printf("✅ Backfill complete: %d new hash records in %s\n", total, time.Since(start).Round(time.Millisecond))
		if total > 0 {
			fmt.Println("   Run 'dupidx rebuild' to fold them into sharing statistics.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backfillCmd)
	backfillCmd.Flags().IntVarP(&backfillJobs, "jobs", "j", 4, "number of streams to scan in parallel")
}
