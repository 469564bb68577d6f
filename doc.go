// Package uap generates unsupervised temporal action proposals for untrimmed
// videos and assembles them into ActivityNet-style result sets.
//
// # Quick Start
//
//	agg := uap.NewAggregator(gen, features, uap.Charades)
//	rs, err := agg.Run(ctx, videoIDs, uap.Params{InitN: 256, N: 256, C: 0.019306, ErrThreshold: 0.2, RPThreshold: 0.8}, progress)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d videos, %d proposals\n", len(rs.Results), rs.NumProposals())
//
// # Collaborators
//
// The proposal algorithm and the feature storage are supplied through the
// Generator and FeatureSource interfaces. The inference package provides an
// ONNX Runtime backed Generator; internal/features provides a FeatureSource
// over a directory of protobuf feature matrices.
//
// # Failure Policy
//
// Aggregation is all-or-nothing: a failure on any video aborts the run with a
// *VideoError and no ResultSet is returned.
package uap
