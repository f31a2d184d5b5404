package certfile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/operator-framework/unsatcert/pkg/certfile"
	"github.com/operator-framework/unsatcert/pkg/checker"
)

const problemJSON = `{
	"numVariables": 1,
	"upperBounds": [-1],
	"lowerBounds": [0],
	"rows": [],
	"constraints": {}
}`

const certificateJSON = `{
	"contradiction": {"direct": true, "variable": 0}
}`

func TestLoadRoundTripsThroughChecker(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "problem.json"), []byte(problemJSON), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "certificate.json"), []byte(certificateJSON), 0o644))

	snap, err := certfile.Load(dir)
	require.NoError(t, err)
	require.Equal(t, 1, snap.Tableau.NumColumns())

	c, err := checker.New(snap.Root, snap.Tableau, snap.UpperBounds, snap.LowerBounds, snap.Registry)
	require.NoError(t, err)

	verdict, err := c.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, checker.Certified, verdict)
}

func TestLoadRejectsMismatchedBoundCounts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "problem.json"), []byte(`{
		"numVariables": 2,
		"upperBounds": [1],
		"lowerBounds": [0, 0],
		"rows": [],
		"constraints": {}
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "certificate.json"), []byte(`{}`), 0o644))

	_, err := certfile.Load(dir)
	require.Error(t, err)
}
