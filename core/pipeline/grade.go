package pipeline

import (
	"regexp"
	"strings"

	"github.com/geniteam/policyrag/model"
)

// gradePattern matches employee grade codes like "G1", "G1-A" or "M2".
// The optional suffix is part of the code: "G1-A" is a distinct grade,
// not a variant of "G1".
var gradePattern = regexp.MustCompile(`(?i)\b[A-Z]\d+(?:-[A-Z]\d*)?\b`)

// ExtractGradeTags returns the grade codes found in text, uppercased and
// deduplicated in order of first occurrence.
func ExtractGradeTags(text string) []string {
	matches := gradePattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var tags []string
	for _, m := range matches {
		tag := strings.ToUpper(m)
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

// QueryGradeTags returns the grade codes a query names, the employee's
// own grade first, deduplicated in order of first occurrence. Both the
// retrieval strategy and the grounding composer key off this list, so
// ranking and confidence always see the same grades.
func QueryGradeTags(query *model.Query) []string {
	tags := ExtractGradeTags(query.Grade)
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		seen[tag] = true
	}
	for _, tag := range ExtractGradeTags(query.RawText) {
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}
