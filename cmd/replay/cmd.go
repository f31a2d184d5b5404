// Package replay implements the "replay" subcommand: it walks a
// certificate down to a single node and re-exports that node's residual
// problem as an SMT-LIB instance, for feeding to an external solver without
// re-checking the rest of the tree.
package replay

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/unsatcert/pkg/certfile"
	"github.com/operator-framework/unsatcert/pkg/certificate"
	"github.com/operator-framework/unsatcert/pkg/checker"
	"github.com/operator-framework/unsatcert/pkg/smtlib"
)

func NewReplayCommand() *cobra.Command {
	var (
		path      string
		outDir    string
		tolerance float64
	)

	cmd := &cobra.Command{
		Use:   "replay <dir>",
		Short: "Re-exports one certificate leaf's residual problem as SMT-LIB",
		Long: `Walks the certificate tree in <dir> down the comma-separated child-index
path given by --path and writes the ground bounds and problem constraints
at that node as a single SMT-LIB instance, the same format the checker
would have produced had that leaf been marked for delegation.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("directory (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], path, outDir, tolerance)
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "comma-separated child indices from the root to the leaf to replay, e.g. \"0,1\"")
	cmd.Flags().StringVar(&outDir, "out", ".", "directory to write the replayed leaf's SMT-LIB export to")
	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-8, "numeric tolerance used when replaying lemmas and rendering literals")

	return cmd
}

func run(dir, pathArg, outDir string, tolerance float64) error {
	childIndices, err := parsePath(pathArg)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	snap, err := certfile.Load(dir)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	c, err := checker.New(snap.Root, snap.Tableau, snap.UpperBounds, snap.LowerBounds, snap.Registry,
		checker.WithTolerance(tolerance))
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	leaf, upper, lower, err := c.Leaf(context.Background(), childIndices)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if leaf.Delegation == certificate.NoDelegation && leaf.Contradiction != nil {
		logrus.WithField("path", pathArg).Warn("replayed node closes by a recorded contradiction rather than delegation")
	}

	w := &smtlib.Writer{Dir: outDir, Epsilon: tolerance}
	if err := w.Delegate(snap.Tableau, upper, lower, snap.Registry); err != nil {
		return fmt.Errorf("replay: %w", err)
	}

	fmt.Printf("wrote SMT-LIB export for node at path %q to %s\n", pathArg, outDir)
	return nil
}

func parsePath(pathArg string) ([]int, error) {
	if pathArg == "" {
		return nil, nil
	}
	parts := strings.Split(pathArg, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		idx, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("malformed --path %q: %w", pathArg, err)
		}
		out[i] = idx
	}
	return out, nil
}
