package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CompareResults marshals results and compares them with testdata/<prefix>.json.
// The actual output is kept in testdata/<prefix>.output.json for inspection.
func CompareResults(t *testing.T, results any, filenamePrefix string) {
	bs, err := json.MarshalIndent(results, " ", "  ")
	require.Nil(t, err)
	CompareOutput(t, bs, filenamePrefix)
}

// CompareOutput compares already rendered output with testdata/<prefix>.json.
func CompareOutput(t *testing.T, output []byte, filenamePrefix string) {
	outputName := fmt.Sprintf("testdata/%v.output.json", filenamePrefix)
	err := os.WriteFile(outputName, output, 0644)
	require.Nil(t, err)
	expected, err := os.ReadFile(fmt.Sprintf("testdata/%v.json", filenamePrefix))
	require.Nil(t, err)
	require.True(t, bytes.Equal(bytes.TrimSpace(output), bytes.TrimSpace(expected)), "see %s", outputName)
}
