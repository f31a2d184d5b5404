// Package check implements the "check" subcommand: it loads a problem and
// certificate snapshot from a directory of JSON files and reports whether
// the certificate proves the problem unsatisfiable.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/operator-framework/unsatcert/pkg/certfile"
	"github.com/operator-framework/unsatcert/pkg/checker"
	"github.com/operator-framework/unsatcert/pkg/smtlib"
)

func NewCheckCommand() *cobra.Command {
	var (
		tolerance     float64
		crossValidate bool
		delegateDir   string
		verbose       bool
	)

	cmd := &cobra.Command{
		Use:   "check <dir>",
		Short: "Checks an UNSAT certificate against a problem snapshot",
		Long: `Checks an UNSAT certificate against a problem snapshot. <dir> must
contain problem.json (the tableau, ground bounds, and piecewise-linear
constraints) and certificate.json (the certificate tree).`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("directory (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], tolerance, crossValidate, delegateDir, verbose)
		},
	}

	cmd.Flags().Float64Var(&tolerance, "tolerance", 1e-8, "numeric tolerance used when replaying lemmas")
	cmd.Flags().BoolVar(&crossValidate, "cross-validate-splits", true, "run the SAT-backed mutual-exclusion/exhaustiveness diagnostic on every internal node")
	cmd.Flags().StringVar(&delegateDir, "delegate-dir", "", "directory to write delegated leaves' SMT-LIB export to; delegation is skipped if empty")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "also log debug-level messages, such as each delegated-leaf write; rejected lemmas and splits are logged at warn level either way")

	return cmd
}

func run(dir string, tolerance float64, crossValidate bool, delegateDir string, verbose bool) error {
	snap, err := certfile.Load(dir)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	opts := []checker.Option{
		checker.WithTolerance(tolerance),
		checker.WithCrossValidateSplits(crossValidate),
		checker.WithLogger(logrus.NewEntry(log)),
	}
	if delegateDir != "" {
		opts = append(opts, checker.WithDelegator(&smtlib.Writer{Dir: delegateDir, Epsilon: tolerance, Log: logrus.NewEntry(log)}))
	}

	c, err := checker.New(snap.Root, snap.Tableau, snap.UpperBounds, snap.LowerBounds, snap.Registry, opts...)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	verdict, err := c.Check(context.Background())
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	fmt.Println(verdict)
	if verdict != checker.Certified {
		os.Exit(1)
	}
	return nil
}
