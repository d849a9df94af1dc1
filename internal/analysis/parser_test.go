package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centralgauge/centralgauge/internal/debuglog"
)

func sampleFailingTask() debuglog.FailingTask {
	return debuglog.FailingTask{
		TaskID:      "CG-AL-E008",
		Model:       "claude-3.7-sonnet",
		Attempt:     2,
		FailureType: debuglog.FailureCompilation,
		TaskYAML:    "tasks/easy/CG-AL-E008.yml",
		TestAL:      "tests/al/easy/CG-AL-E008.Test.al",
	}
}

func TestParseAnalysisResponseFixableOverridesFilePath(t *testing.T) {
	raw := `{
		"outcome": "fixable",
		"subCategory": "id_conflict",
		"affectedFile": "test_al",
		"confidence": "high",
		"fix": {"filePath": "wherever-the-model-feels-like.al", "codeBefore": "a", "codeAfter": "b"}
	}`

	result := ParseAnalysisResponse(raw, sampleFailingTask())

	require.Equal(t, OutcomeFixable, result.Outcome)
	require.NotNil(t, result.Fixable)
	assert.Equal(t, SubCategoryIDConflict, result.Fixable.SubCategory)
	assert.Equal(t, AffectedFileTestAL, result.Fixable.AffectedFile)
	assert.Equal(t, "tests/al/easy/CG-AL-E008.Test.al", result.Fixable.Fix.FilePath, "filePath must always come from the FailingTask, never the LLM")
	assert.Equal(t, ConfidenceHigh, result.Fixable.Confidence)
}

func TestParseAnalysisResponseFixableDefaultsToTaskYAMLPath(t *testing.T) {
	raw := `{"outcome": "fixable", "affectedFile": "task_yaml", "fix": {"codeBefore": "a", "codeAfter": "b"}}`

	result := ParseAnalysisResponse(raw, sampleFailingTask())

	require.NotNil(t, result.Fixable)
	assert.Equal(t, AffectedFileTaskYAML, result.Fixable.AffectedFile)
	assert.Equal(t, "tasks/easy/CG-AL-E008.yml", result.Fixable.Fix.FilePath)
	assert.Equal(t, ConfidenceMedium, result.Fixable.Confidence, "missing confidence defaults to medium")
}

func TestParseAnalysisResponseShortcomingFillsSentinels(t *testing.T) {
	raw := `{"outcome": "model_shortcoming"}`

	result := ParseAnalysisResponse(raw, sampleFailingTask())

	require.Equal(t, OutcomeModelShortcoming, result.Outcome)
	require.NotNil(t, result.Shortcoming)
	assert.Equal(t, "unspecified-concept", result.Shortcoming.Concept)
	assert.Equal(t, "unspecified-al-concept", result.Shortcoming.ALConcept)
	assert.NotEmpty(t, result.Shortcoming.Description)
	assert.Equal(t, ConfidenceMedium, result.Shortcoming.Confidence)
}

func TestParseAnalysisResponseShortcomingPreservesProvidedFields(t *testing.T) {
	raw := `{
		"outcome": "model_shortcoming",
		"concept": "interface implementation",
		"alConcept": "interface-definition",
		"description": "model forgot the implements keyword",
		"errorCode": "AL0185",
		"incorrectCode": "codeunit 1 Foo { }",
		"correctCode": "codeunit 1 Foo implements IBar { }",
		"confidence": "low"
	}`

	result := ParseAnalysisResponse(raw, sampleFailingTask())

	require.NotNil(t, result.Shortcoming)
	assert.Equal(t, "interface-definition", result.Shortcoming.ALConcept)
	assert.Equal(t, "AL0185", result.Shortcoming.ErrorCode)
	assert.Equal(t, ConfidenceLow, result.Shortcoming.Confidence)
}

func TestParseAnalysisResponseStripsMarkdownFence(t *testing.T) {
	raw := "```json\n{\"outcome\": \"model_shortcoming\", \"concept\": \"x\"}\n```"

	result := ParseAnalysisResponse(raw, sampleFailingTask())

	require.NotNil(t, result.Shortcoming)
	assert.Equal(t, "x", result.Shortcoming.Concept)
}

func TestParseAnalysisResponseMalformedJSONIsParseFailure(t *testing.T) {
	result := ParseAnalysisResponse("this is not json at all", sampleFailingTask())

	require.Equal(t, OutcomeModelShortcoming, result.Outcome)
	require.NotNil(t, result.Shortcoming)
	assert.Equal(t, "parse-failure", result.Shortcoming.Concept)
	assert.Equal(t, ConfidenceLow, result.Shortcoming.Confidence)
}

func TestParseAnalysisResponseUnknownOutcomeIsParseFailure(t *testing.T) {
	result := ParseAnalysisResponse(`{"outcome": "something-else"}`, sampleFailingTask())

	require.NotNil(t, result.Shortcoming)
	assert.Equal(t, "parse-failure", result.Shortcoming.Concept)
}

func TestParseAnalysisResponseMissingOutcomeFieldFailsSchema(t *testing.T) {
	result := ParseAnalysisResponse(`{"concept": "x"}`, sampleFailingTask())

	require.NotNil(t, result.Shortcoming)
	assert.Equal(t, "parse-failure", result.Shortcoming.Concept)
}

func TestAnalysisResultSchemaIsValidJSONSchema(t *testing.T) {
	var doc any
	require.NoError(t, json.Unmarshal([]byte(analysisResultSchemaJSON), &doc))
}
