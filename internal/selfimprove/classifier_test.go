package selfimprove

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicFailureClassifier_CategoryRules(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	cases := []struct {
		name        string
		failureType string
		wantCat     string
	}{
		{"safety", "SAFETY_VIOLATION", "safety_violation"},
		{"policy", "policy_breach", "safety_violation"},
		{"tool", "TOOL_CALL_FAILED", "tool_execution_failure"},
		{"execution", "execution_error", "tool_execution_failure"},
		{"timeout", "UPSTREAM_TIMEOUT", "timeout_or_unavailable_dependency"},
		{"critical", "CRITICAL_FAILURE", "critical_failure"},
		{"unmatched", "SOMETHING_ELSE", "unknown"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := classifier.Classify(CriticalFailure{FailureType: tc.failureType})
			assert.Equal(t, tc.wantCat, result.ErrorCategory)
		})
	}
}

func TestHeuristicFailureClassifier_SafetyProposesCorrectionAndGuardrailsPrompt(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	result := classifier.Classify(CriticalFailure{FailureType: "safety_violation"})

	assert.NotEmpty(t, result.ProposedCorrections)
	assert.Contains(t, result.SuspectedPromptsOrConfigs, "safety_guardrails_prompt")
}

func TestHeuristicFailureClassifier_InfersContributingToolsFromTargetService(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	result := classifier.Classify(CriticalFailure{
		FailureType:   "tool_execution_failure",
		TargetService: "Tools-Service",
	})

	assert.Contains(t, result.ContributingTools, "tools-service")
}

func TestHeuristicFailureClassifier_InfersContributingToolsFromMetadata(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	result := classifier.Classify(CriticalFailure{
		FailureType: "tool_execution_failure",
		Metadata:    map[string]string{"last_tool": "search_tool"},
	})

	assert.Contains(t, result.ContributingTools, "search_tool")
}

func TestHeuristicFailureClassifier_InfersContributingToolsFromTranscripts(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	result := classifier.Classify(CriticalFailure{
		FailureType:     "tool_execution_failure",
		ToolTranscripts: `{"steps":[{"tool":"code_exec","ok":false},{"tool":"shell_tool"}]}`,
	})

	assert.Contains(t, result.ContributingTools, "code_exec")
	assert.Contains(t, result.ContributingTools, "shell_tool")
	assert.NotContains(t, result.ContributingTools, "browser_tool")
}

func TestHeuristicFailureClassifier_ContributingToolsDeduplicated(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	result := classifier.Classify(CriticalFailure{
		FailureType:     "tool_execution_failure",
		ToolTranscripts: "code_exec ran, then code_exec ran again",
	})

	count := 0
	for _, tool := range result.ContributingTools {
		if tool == "code_exec" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestHeuristicFailureClassifier_StageInfersSuspectedPromptsOrConfigs(t *testing.T) {
	classifier := HeuristicFailureClassifier{}

	planning := classifier.Classify(CriticalFailure{FailureType: "unknown", Stage: "planning_phase"})
	assert.Contains(t, planning.SuspectedPromptsOrConfigs, "llm_planning_prompt")

	tools := classifier.Classify(CriticalFailure{FailureType: "unknown", Stage: "tools_dispatch"})
	assert.Contains(t, tools.SuspectedPromptsOrConfigs, "tool_routing_prompt")
}
