package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var importJobs int

var importCmd = &cobra.Command{
	Use:   "import [stream-key]...",
	Short: "Ingest package record streams into the index",
	Long: `Read package record streams from the configured source and ingest them.
With no arguments every stream in the source is imported. Imports are
idempotent: re-importing a stream converges to the same index state.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if IDX == nil {
			return fmt.Errorf("application not initialized")
		}
		ctx := cmd.Context()

		src, err := IDX.OpenSource(ctx)
		if err != nil {
			return err
		}

		keys := args
		if len(keys) == 0 {
			keys, err = src.List(ctx)
			if err != nil {
				return fmt.Errorf("failed to list streams: %w", err)
			}
		}
		if len(keys) == 0 {
			fmt.Println("nothing to import")
			return nil
		}

		start := time.Now()
		fmt.Printf("📦 Importing %d stream(s)...\n", len(keys))

		// 不同的包之间没有任何共享状态，放心并行
		// 同一个 (package, filename) 撞车由存储层唯一约束兜底
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(importJobs)

		for _, key := range keys {
			g.Go(func() error {
				rc, err := src.Open(gctx, key)
				if err != nil {
					return fmt.Errorf("%s: %w", key, err)
				}
				defer rc.Close()

				stats, err := IDX.Ingester.IngestStream(gctx, rc)
				if err != nil {
					// 这条流导入失败就让整批失败：流是幂等的，修好后整批重跑即可
					return fmt.Errorf("%s: %w", key, err)
				}
				fmt.Printf("   %-50s %4d files, %4d new records\n", stats.Package, stats.Files, stats.NewRecords)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		fmt.Printf("✅ Imported %d stream(s) in %s\n", len(keys), time.Since(start).Round(time.Millisecond))
		fmt.Println("   Run 'dupidx rebuild' to refresh sharing statistics.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().IntVarP(&importJobs, "jobs", "j", 4, "number of streams to ingest in parallel")
}
