package application

import (
	"fmt"
	"strconv"
	"strings"
)

// recentPipelineScanLimit bounds the project-wide fallback scan when no
// branch candidate yields a pipeline.
const recentPipelineScanLimit = 100

// BranchCandidates returns the branch names to try when looking up the PR's
// pipelines, in order: the real head branch, then the synthetic refs some
// triggers record. The first format yielding at least one pipeline wins.
func BranchCandidates(prBranch string, prNumber int) []string {
	candidates := make([]string, 0, 3)
	if prBranch != "" {
		candidates = append(candidates, prBranch)
	}
	candidates = append(candidates,
		fmt.Sprintf("pull/%d/head", prNumber),
		fmt.Sprintf("pull/%d/merge", prNumber),
	)
	return candidates
}

// branchReferencesPR reports whether a pipeline branch name textually
// references the PR number. This is the last-resort heuristic for pipelines
// whose branch could not be looked up directly. It is deliberately loose and
// a known source of false positives (an unrelated branch may contain the
// number as a substring); kept as-is for compatibility.
func branchReferencesPR(branch string, prNumber int) bool {
	n := strconv.Itoa(prNumber)
	switch {
	case strings.Contains(branch, "pull/"+n):
		return true
	case strings.HasPrefix(branch, n+"-"):
		return true
	case strings.HasSuffix(branch, "-"+n):
		return true
	case strings.Contains(branch, n):
		return true
	}
	return false
}
