package agentexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResultSummaryCompileOnlySuccess(t *testing.T) {
	s := BuildResultSummary(`{"success":true,"message":"compilation successful"}`, false)
	assert.True(t, s.CompileSuccess)
	assert.Equal(t, "pass", s.Result)
	assert.Equal(t, "Compile: Success\nResult: Pass", s.Formatted)
	assert.Nil(t, s.TestsPassed)
}

func TestBuildResultSummaryTestModePartialFail(t *testing.T) {
	s := BuildResultSummary("Compile: Success\nTests: 3/7\nResult: Fail", true)
	require.NotNil(t, s.TestsPassed)
	require.NotNil(t, s.TestsTotal)
	assert.Equal(t, 3, *s.TestsPassed)
	assert.Equal(t, 7, *s.TestsTotal)
	assert.Equal(t, "fail", s.Result)
}
