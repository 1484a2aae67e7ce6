package domain

// ReviewGroup is a set of entry IDs sharing the same review decision, batched
// so the catalog receives one call per distinct decision.
type ReviewGroup struct {
	Decision ReviewDecision
	IDs      []string
}

// GroupAssignments groups review assignments by identical (status, comment)
// pairs, deduplicating IDs within a group. Group order follows the first
// appearance of each decision; ID order follows the input.
func GroupAssignments(assignments []ReviewAssignment) []ReviewGroup {
	var groups []ReviewGroup
	index := make(map[ReviewDecision]int)
	seen := make(map[ReviewDecision]map[string]struct{})

	for _, a := range assignments {
		i, ok := index[a.Decision]
		if !ok {
			i = len(groups)
			index[a.Decision] = i
			groups = append(groups, ReviewGroup{Decision: a.Decision})
			seen[a.Decision] = make(map[string]struct{})
		}
		if _, dup := seen[a.Decision][a.ID]; dup {
			continue
		}
		seen[a.Decision][a.ID] = struct{}{}
		groups[i].IDs = append(groups[i].IDs, a.ID)
	}
	return groups
}
