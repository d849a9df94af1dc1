package analysis

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/centralgauge/centralgauge/internal/debuglog"
)

// Outcome is the top level of the analysis-result sum type.
type Outcome string

const (
	OutcomeFixable          Outcome = "fixable"
	OutcomeModelShortcoming Outcome = "model_shortcoming"
)

// Confidence is the parser's and/or the model's self-reported confidence
// in a classification.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// SubCategory narrows a Fixable outcome to one of the four mechanical
// defect shapes the classifier recognizes.
type SubCategory string

const (
	SubCategoryIDConflict          SubCategory = "id_conflict"
	SubCategorySyntaxError         SubCategory = "syntax_error"
	SubCategoryTestLogicBug        SubCategory = "test_logic_bug"
	SubCategoryTaskDefinitionIssue SubCategory = "task_definition_issue"
)

// AffectedFile names which generated file a Fixable fix targets.
type AffectedFile string

const (
	AffectedFileTaskYAML AffectedFile = "task_yaml"
	AffectedFileTestAL   AffectedFile = "test_al"
)

// Fix is the exact before/after code pair a Fixable outcome proposes.
type Fix struct {
	FilePath   string
	CodeBefore string
	CodeAfter  string
}

// Fixable is a small, mechanical defect the orchestrator can attempt to
// patch automatically via internal/fixapply.
type Fixable struct {
	SubCategory  SubCategory
	AffectedFile AffectedFile
	Fix          Fix
	Confidence   Confidence
}

// ModelShortcoming is a genuine gap in the model's understanding of an AL
// concept, destined for internal/shortcomings instead of a patch attempt.
type ModelShortcoming struct {
	Concept       string
	ALConcept     string
	Description   string
	ErrorCode     string
	IncorrectCode string
	CorrectCode   string
	Confidence    Confidence
}

// Result is the parsed, normalized analysis-result sum type: exactly one
// of Fixable or Shortcoming is set, selected by Outcome.
type Result struct {
	Outcome     Outcome
	Fixable     *Fixable
	Shortcoming *ModelShortcoming
}

// rawResponse is the permissive shape the analysis LLM's JSON is decoded
// into before the normalization rules below run.
type rawResponse struct {
	Outcome      string `json:"outcome"`
	SubCategory  string `json:"subCategory"`
	AffectedFile string `json:"affectedFile"`
	Confidence   string `json:"confidence"`
	Fix          struct {
		FilePath   string `json:"filePath"`
		CodeBefore string `json:"codeBefore"`
		CodeAfter  string `json:"codeAfter"`
	} `json:"fix"`
	Concept       string `json:"concept"`
	ALConcept     string `json:"alConcept"`
	Description   string `json:"description"`
	ErrorCode     string `json:"errorCode"`
	IncorrectCode string `json:"incorrectCode"`
	CorrectCode   string `json:"correctCode"`
}

// analysisResultSchemaJSON is a loose structural schema for the analysis
// LLM's raw response: just enough shape (outcome is one of the two known
// values; the rest are plain strings/objects) to reject garbage before
// the permissive parser runs, without duplicating the parser's own
// business-logic defaulting.
const analysisResultSchemaJSON = `{
	"type": "object",
	"required": ["outcome"],
	"properties": {
		"outcome": {"enum": ["fixable", "model_shortcoming"]},
		"subCategory": {"type": "string"},
		"affectedFile": {"type": "string"},
		"confidence": {"type": "string"},
		"fix": {
			"type": "object",
			"properties": {
				"filePath": {"type": "string"},
				"codeBefore": {"type": "string"},
				"codeAfter": {"type": "string"}
			}
		},
		"concept": {"type": "string"},
		"alConcept": {"type": "string"},
		"description": {"type": "string"},
		"errorCode": {"type": "string"},
		"incorrectCode": {"type": "string"},
		"correctCode": {"type": "string"}
	}
}`

const schemaResourceURL = "centralgauge://analysis-result.json"

var analysisSchema = mustCompileAnalysisSchema()

func mustCompileAnalysisSchema() *jsonschema.Schema {
	var doc any
	if err := json.Unmarshal([]byte(analysisResultSchemaJSON), &doc); err != nil {
		panic("analysis: invalid embedded schema: " + err.Error())
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaResourceURL, doc); err != nil {
		panic("analysis: add schema resource: " + err.Error())
	}
	schema, err := c.Compile(schemaResourceURL)
	if err != nil {
		panic("analysis: compile schema: " + err.Error())
	}
	return schema
}

// ParseAnalysisResponse strips an optional markdown fence, pre-validates
// the JSON against analysisSchema, and then applies the normalization rules
// for each outcome. It never returns an error — any structurally broken
// response is itself classified as a low-confidence ModelShortcoming with
// concept "parse-failure", so a malformed LLM reply is recorded rather than
// crashing the run.
func ParseAnalysisResponse(raw string, failing debuglog.FailingTask) *Result {
	cleaned := stripMarkdownFences(raw)

	var payloadDoc any
	if err := json.Unmarshal([]byte(cleaned), &payloadDoc); err != nil {
		return parseFailureResult()
	}
	if err := analysisSchema.Validate(payloadDoc); err != nil {
		return parseFailureResult()
	}

	var parsed rawResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return parseFailureResult()
	}

	switch Outcome(parsed.Outcome) {
	case OutcomeFixable:
		return fixableResult(parsed, failing)
	case OutcomeModelShortcoming:
		return shortcomingResult(parsed)
	default:
		return parseFailureResult()
	}
}

// stripMarkdownFences removes a leading/trailing ``` or ```json fence, if
// the model wrapped its JSON in one despite being told not to.
func stripMarkdownFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	lines := strings.Split(t, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func parseFailureResult() *Result {
	return &Result{
		Outcome: OutcomeModelShortcoming,
		Shortcoming: &ModelShortcoming{
			Concept:     "parse-failure",
			ALConcept:   "unknown",
			Description: "the analysis model's response could not be parsed as valid JSON matching the expected schema",
			Confidence:  ConfidenceLow,
		},
	}
}

// fixableResult normalizes a "fixable" raw response. The fix's FilePath is
// always derived from the FailingTask's own known paths, never trusted from
// the LLM's output.
func fixableResult(parsed rawResponse, failing debuglog.FailingTask) *Result {
	affected := AffectedFileTestAL
	if parsed.AffectedFile == string(AffectedFileTaskYAML) {
		affected = AffectedFileTaskYAML
	}

	filePath := failing.TestAL
	if affected == AffectedFileTaskYAML {
		filePath = failing.TaskYAML
	}

	return &Result{
		Outcome: OutcomeFixable,
		Fixable: &Fixable{
			SubCategory:  SubCategory(parsed.SubCategory),
			AffectedFile: affected,
			Fix: Fix{
				FilePath:   filePath,
				CodeBefore: parsed.Fix.CodeBefore,
				CodeAfter:  parsed.Fix.CodeAfter,
			},
			Confidence: normalizeConfidence(parsed.Confidence),
		},
	}
}

// shortcomingResult normalizes a "model_shortcoming" raw response, filling
// any missing field with a sentinel string so downstream consumers never
// see an empty concept/description.
func shortcomingResult(parsed rawResponse) *Result {
	return &Result{
		Outcome: OutcomeModelShortcoming,
		Shortcoming: &ModelShortcoming{
			Concept:       orSentinel(parsed.Concept, "unspecified-concept"),
			ALConcept:     orSentinel(parsed.ALConcept, "unspecified-al-concept"),
			Description:   orSentinel(parsed.Description, "no description provided"),
			ErrorCode:     parsed.ErrorCode,
			IncorrectCode: orSentinel(parsed.IncorrectCode, "<not provided>"),
			CorrectCode:   orSentinel(parsed.CorrectCode, "<not provided>"),
			Confidence:    normalizeConfidence(parsed.Confidence),
		},
	}
}

func normalizeConfidence(raw string) Confidence {
	switch Confidence(raw) {
	case ConfidenceLow, ConfidenceHigh:
		return Confidence(raw)
	default:
		return ConfidenceMedium
	}
}

func orSentinel(v, sentinel string) string {
	if strings.TrimSpace(v) == "" {
		return sentinel
	}
	return v
}
