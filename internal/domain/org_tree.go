package domain

import "sort"

// OrgNode is one member in the reporting-tree projection.
type OrgNode struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Title     string     `json:"title,omitempty"`
	Email     string     `json:"email,omitempty"`
	AvatarURL string     `json:"avatar,omitempty"`
	ManagerID *string    `json:"managerId"`
	Reports   []*OrgNode `json:"reports,omitempty"`
}

// BuildOrgTree projects a flat member list into a forest rooted at members
// without a manager. Members whose manager is not part of the set, and
// members stranded on an inconsistent cycle, are surfaced as extra roots so
// the projection always contains every input member exactly once.
func BuildOrgTree(members []Member) []*OrgNode {
	nodes := make(map[string]*OrgNode, len(members))
	for _, m := range members {
		nodes[m.ID] = &OrgNode{
			ID:        m.ID,
			Name:      m.Name,
			Title:     m.Title,
			Email:     m.Email,
			AvatarURL: m.AvatarURL,
			ManagerID: m.ManagerID,
		}
	}

	var roots []*OrgNode
	attached := make(map[string]bool, len(members))
	for _, m := range members {
		node := nodes[m.ID]
		if m.ManagerID == nil {
			roots = append(roots, node)
			attached[m.ID] = true
			continue
		}
		parent, ok := nodes[*m.ManagerID]
		if !ok {
			roots = append(roots, node)
			attached[m.ID] = true
			continue
		}
		parent.Reports = append(parent.Reports, node)
	}

	// Mark everything reachable from a root; anything left over sits on a
	// cycle and is promoted to a root to keep the projection total.
	var mark func(node *OrgNode)
	mark = func(node *OrgNode) {
		for _, report := range node.Reports {
			if attached[report.ID] {
				continue
			}
			attached[report.ID] = true
			mark(report)
		}
	}
	for _, root := range roots {
		mark(root)
	}
	for _, m := range members {
		if attached[m.ID] {
			continue
		}
		node := nodes[m.ID]
		// Cut the edge back into the cycle before promoting, otherwise the
		// forest would still contain the loop.
		if m.ManagerID != nil {
			if parent, ok := nodes[*m.ManagerID]; ok {
				parent.Reports = removeOrgNode(parent.Reports, m.ID)
			}
		}
		attached[m.ID] = true
		roots = append(roots, node)
		mark(node)
	}

	sortOrgNodes(roots)
	return roots
}

func removeOrgNode(nodes []*OrgNode, id string) []*OrgNode {
	for i, node := range nodes {
		if node.ID == id {
			return append(nodes[:i], nodes[i+1:]...)
		}
	}
	return nodes
}

func sortOrgNodes(nodes []*OrgNode) {
	sort.Slice(nodes, func(i, j int) bool {
		if nodes[i].Name != nodes[j].Name {
			return nodes[i].Name < nodes[j].Name
		}
		return nodes[i].ID < nodes[j].ID
	})
	for _, node := range nodes {
		sortOrgNodes(node.Reports)
	}
}
