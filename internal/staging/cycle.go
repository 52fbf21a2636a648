package staging

import "context"

// WouldCreateCycle reports whether assigning proposedManagerID as memberID's
// manager would make memberID its own transitive manager. That happens
// exactly when the proposed manager already sits in memberID's subtree, so
// the check walks the direct-report adjacency breadth-first from memberID
// looking for the proposed manager. The visited set bounds the walk to at
// most one pass over the member table, so the check terminates even when the
// stored graph already contains an unrelated cycle.
func (s *Service) WouldCreateCycle(ctx context.Context, memberID string, proposedManagerID *string) (bool, error) {
	if proposedManagerID == nil {
		return false, nil
	}

	visited := make(map[string]struct{})
	queue := []string{memberID}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current == *proposedManagerID {
			return true, nil
		}
		if _, seen := visited[current]; seen {
			continue
		}
		visited[current] = struct{}{}

		reports, err := s.members.ListByManager(ctx, current)
		if err != nil {
			return false, err
		}
		for _, report := range reports {
			queue = append(queue, report.ID)
		}
	}

	return false, nil
}
