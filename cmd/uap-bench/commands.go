package main

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-uap/internal/bench"
	"github.com/jamesainslie/go-uap/internal/resultstore"
)

func sweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Sweep every grid point of one or more partitions",
		Long: `Sweep runs the proposal generator and scorer for every grid point of
the selected partitions. Partitions given with --partitions run side by
side, each with its own progress and score logs.

With --eval-only no proposals are generated; grid points whose result
file is missing are reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			evalOnly, _ := cmd.Flags().GetBool("eval-only")
			partition, _ := cmd.Flags().GetInt("partition")
			list, _ := cmd.Flags().GetString("partitions")

			parts := []int{partition}
			if list != "" {
				if parts, err = parsePartitions(list); err != nil {
					return err
				}
			}

			d, cleanup, err := newDriver(cfg, !evalOnly, log)
			if err != nil {
				return err
			}
			defer cleanup()

			summaries, err := d.RunPartitions(cmd.Context(), parts)
			for _, s := range summaries {
				if s.Partition == 0 {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "partition %d: %d points, %d scored, %d skipped (%s)\n",
					s.Partition, s.Points, s.Scored, s.Skipped, d.ScorePath(s.Partition))
			}
			return err
		},
	}

	cmd.Flags().IntP("partition", "p", 1, "grid partition to sweep (1-4)")
	cmd.Flags().String("partitions", "", "comma-separated partitions to sweep concurrently, e.g. 1,2,3,4")
	cmd.Flags().Bool("eval-only", false, "score existing result files without generating proposals")

	return cmd
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate and score a single grid point",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			evalOnly, _ := cmd.Flags().GetBool("eval-only")
			gp := bench.GridPoint{}
			gp.RPThreshold, _ = cmd.Flags().GetFloat64("rpth")
			gp.ErrThreshold, _ = cmd.Flags().GetFloat64("th")
			gp.C, _ = cmd.Flags().GetFloat64("c")
			if !cmd.Flags().Changed("c") {
				gp.C = cfg.Params.BaseC
			}

			d, cleanup, err := newDriver(cfg, !evalOnly, log)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := d.EnsureDirs(); err != nil {
				return err
			}

			progress := filepath.Join(cfg.Output.LogDir, cfg.Output.ProgressName)
			rec, err := d.RunPoint(cmd.Context(), gp, progress)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rec.String())
			return nil
		},
	}

	cmd.Flags().Float64("rpth", 1, "rank-pooling threshold")
	cmd.Flags().Float64("th", 1, "classification error rate threshold")
	cmd.Flags().Float64("c", 0, "linear SVM C (default: params.base_c)")
	cmd.Flags().Bool("eval-only", false, "score the existing result file without generating proposals")

	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an existing result file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			resultPath, _ := cmd.Flags().GetString("result")
			curvePath, _ := cmd.Flags().GetString("curve")

			if !resultstore.Exists(resultPath) {
				return fmt.Errorf("%s: %w", resultPath, bench.ErrResultMissing)
			}

			d, cleanup, err := newDriver(cfg, false, log)
			if err != nil {
				return err
			}
			defer cleanup()

			rec, curve, err := d.Score(resultPath)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), rec.String())

			if curvePath == "" {
				return nil
			}
			f, err := os.Create(curvePath)
			if err != nil {
				return err
			}
			if err := bench.WriteCurve(f, curve); err != nil {
				_ = f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringP("result", "r", "", "result file (.json or .pb)")
	cmd.Flags().String("curve", "", "write the AR-AN curve as TSV to this file")
	_ = cmd.MarkFlagRequired("result")

	return cmd
}

func gridCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid",
		Short: "List the grid points and result files of a partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			partition, _ := cmd.Flags().GetInt("partition")

			points, err := bench.Grid(partition, cfg.Params.BaseC)
			if err != nil {
				return err
			}
			format, err := resultstore.ParseFormat(cfg.Output.Format)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "RPTH\tTH\tC\tRESULT")
			for _, gp := range points {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					bench.FormatFloat(gp.RPThreshold), bench.FormatFloat(gp.ErrThreshold), bench.FormatFloat(gp.C),
					filepath.Join(cfg.Output.ResultDir, bench.ResultName(cfg.Dataset, cfg.Subset, gp, format.Ext())))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntP("partition", "p", 1, "grid partition (1-4)")
	return cmd
}

func bestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "best",
		Short: "Rank the scored grid points of one or more partitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			list, _ := cmd.Flags().GetString("partitions")
			top, _ := cmd.Flags().GetInt("top")

			parts, err := parsePartitions(list)
			if err != nil {
				return err
			}

			var records []bench.ScoreRecord
			for _, p := range parts {
				path := filepath.Join(cfg.Output.LogDir, fmt.Sprintf("%s_part_%d.txt", cfg.Output.ScoreName, p))
				if _, err := os.Stat(path); os.IsNotExist(err) {
					continue
				}
				recs, err := bench.ReadScores(path)
				if err != nil {
					return err
				}
				records = append(records, recs...)
			}
			if len(records) == 0 {
				return fmt.Errorf("no score records for partitions %s", list)
			}

			bench.RankScores(records)
			for _, r := range records[:min(top, len(records))] {
				fmt.Fprint(cmd.OutOrStdout(), r.String())
			}
			return nil
		},
	}

	cmd.Flags().String("partitions", "1,2,3,4", "comma-separated partitions to rank")
	cmd.Flags().Int("top", 10, "number of records to print")
	return cmd
}

// parsePartitions parses a comma-separated partition list, dropping
// duplicates.
func parsePartitions(list string) ([]int, error) {
	var parts []int
	for _, f := range strings.Split(list, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		p, err := strconv.Atoi(f)
		if err != nil || !slices.Contains(bench.Partitions(), p) {
			return nil, fmt.Errorf("%w: %q", bench.ErrInvalidPartition, f)
		}
		parts = append(parts, p)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty list", bench.ErrInvalidPartition)
	}

	parts = lo.Uniq(parts)
	slices.Sort(parts)
	return parts, nil
}
