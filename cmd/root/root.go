package root

import (
	"github.com/spf13/cobra"

	"github.com/operator-framework/unsatcert/cmd/check"
	"github.com/operator-framework/unsatcert/cmd/replay"
)

func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "unsatcert",
		Short: "unsatcert checks UNSAT proof certificates for linear and piecewise-linear queries",
		Long: `unsatcert independently verifies that a certificate proves a query
unsatisfiable, without re-running the solver that produced it.
For more information visit https://github.com/operator-framework/unsatcert`,
	}

	rootCmd.AddCommand(check.NewCheckCommand())
	rootCmd.AddCommand(replay.NewReplayCommand())

	return rootCmd
}
