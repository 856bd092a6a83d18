package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectScenarios(t *testing.T) {
	all, err := selectScenarios(nil)
	require.Nil(t, err)
	require.Len(t, all, 10)

	some, err := selectScenarios([]string{"claim-repeat", "claim-once"})
	require.Nil(t, err)
	require.Len(t, some, 2)
	require.Equal(t, "claim-once", some[0].Name)
	require.Equal(t, "claim-repeat", some[1].Name)

	_, err = selectScenarios([]string{"claim-once", "claim-twice"})
	require.NotNil(t, err)
}
