package selfimprove

import "strings"

// FailureClassifier derives a FailureClassification from a CriticalFailure.
// It is pluggable so a future LLM- or service-backed classifier can be
// installed without touching the engine that calls it.
type FailureClassifier interface {
	Classify(failure CriticalFailure) FailureClassification
}

// HeuristicFailureClassifier infers a category and contributing hints from
// failure_type, target_service, stage, and tool transcripts using plain
// substring probes. It is the default classifier.
type HeuristicFailureClassifier struct{}

var knownTools = []string{"code_exec", "shell_tool", "browser_tool"}

// Classify implements FailureClassifier.
func (HeuristicFailureClassifier) Classify(failure CriticalFailure) FailureClassification {
	result := FailureClassification{ErrorCategory: "unknown"}

	ftLower := strings.ToLower(failure.FailureType)

	switch {
	case strings.Contains(ftLower, "safety") || strings.Contains(ftLower, "policy"):
		result.ErrorCategory = "safety_violation"
		result.ProposedCorrections = append(result.ProposedCorrections,
			"Tighten safety policy checks and expand blocked pattern set for high-risk actions")
	case strings.Contains(ftLower, "tool") || strings.Contains(ftLower, "execution"):
		result.ErrorCategory = "tool_execution_failure"
		result.ProposedCorrections = append(result.ProposedCorrections,
			"Harden tool parameter validation and add retries / circuit-breaking for flaky tools")
	case strings.Contains(ftLower, "timeout"):
		result.ErrorCategory = "timeout_or_unavailable_dependency"
		result.ProposedCorrections = append(result.ProposedCorrections,
			"Review timeout budgets and fallback behavior for downstream dependencies")
	case strings.Contains(ftLower, "critical"):
		result.ErrorCategory = "critical_failure"
		result.ProposedCorrections = append(result.ProposedCorrections,
			"Add targeted tests and guardrails around this orchestration path")
	}

	if strings.Contains(strings.ToLower(failure.TargetService), "tools") {
		result.ContributingTools = appendUnique(result.ContributingTools, "tools-service")
	}

	for k, v := range failure.Metadata {
		if strings.Contains(strings.ToLower(k), "tool") && v != "" {
			result.ContributingTools = appendUnique(result.ContributingTools, v)
		}
	}

	if failure.ToolTranscripts != "" {
		for _, tool := range knownTools {
			if strings.Contains(failure.ToolTranscripts, tool) {
				result.ContributingTools = appendUnique(result.ContributingTools, tool)
			}
		}
	}

	stageLower := strings.ToLower(failure.Stage)

	switch {
	case strings.Contains(stageLower, "planning"):
		result.SuspectedPromptsOrConfigs = append(result.SuspectedPromptsOrConfigs, "llm_planning_prompt")
	case strings.Contains(stageLower, "tools"):
		result.SuspectedPromptsOrConfigs = append(result.SuspectedPromptsOrConfigs, "tool_routing_prompt")
	}

	if result.ErrorCategory == "safety_violation" {
		result.SuspectedPromptsOrConfigs = append(result.SuspectedPromptsOrConfigs, "safety_guardrails_prompt")
	}

	return result
}

func appendUnique(values []string, candidate string) []string {
	for _, v := range values {
		if v == candidate {
			return values
		}
	}

	return append(values, candidate)
}
