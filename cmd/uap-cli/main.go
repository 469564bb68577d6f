package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	uap "github.com/jamesainslie/go-uap"
	"github.com/jamesainslie/go-uap/inference"
	"github.com/jamesainslie/go-uap/internal/features"
	"github.com/jamesainslie/go-uap/internal/logger"
)

func main() {
	var (
		modelPath  string
		featureDir string
		dataset    string
		threads    int
		asJSON     bool
		verbose    bool
		params     uap.Params
	)

	cmd := &cobra.Command{
		Use:   "uap-cli [flags] VIDEO_ID...",
		Short: "Print temporal action proposals for videos",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			log := logger.New(level, "text", os.Stderr)

			conv, err := uap.ConventionFor(dataset)
			if err != nil {
				return err
			}

			gen, err := inference.NewGenerator(modelPath, 1, threads)
			if err != nil {
				return fmt.Errorf("loading generator: %w", err)
			}
			defer func() { _ = gen.Close() }() // Cleanup error ignored in CLI

			agg := uap.NewAggregator(gen, features.NewStore(featureDir), conv, uap.WithLogger(log))
			rs, err := agg.Run(cmd.Context(), args, params, io.Discard)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(rs)
			}
			for _, vid := range args {
				props := rs.Results[vid]
				sort.SliceStable(props, func(i, j int) bool { return props[i].Score > props[j].Score })
				fmt.Printf("%s: %d proposals\n", vid, len(props))
				for i, p := range props {
					fmt.Printf("  %3d  %9.2f  %9.2f  %.4f\n", i+1, p.Segment.Start, p.Segment.End, p.Score)
				}
			}
			return nil
		},
		SilenceUsage: true,
	}

	f := cmd.Flags()
	f.StringVar(&modelPath, "model", "models/svc_rp.onnx", "path to the ONNX proposal model")
	f.StringVar(&featureDir, "features", "features", "directory of <video>.pb feature files")
	f.StringVar(&dataset, "dataset", uap.Charades.Name, "dataset frame-to-time convention")
	f.IntVar(&threads, "threads", 0, "intra-op threads (0: runtime default)")
	f.BoolVar(&asJSON, "json", false, "print the ResultSet as JSON")
	f.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	f.IntVar(&params.InitN, "init-n", 256, "initial number of samples per proposal")
	f.IntVar(&params.N, "n", 256, "samples added while growing a proposal")
	f.Float64Var(&params.C, "c", 0.019306, "linear SVM C")
	f.Float64Var(&params.ErrThreshold, "th", 1, "classification error rate threshold")
	f.Float64Var(&params.RPThreshold, "rpth", 1, "rank-pooling threshold")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
