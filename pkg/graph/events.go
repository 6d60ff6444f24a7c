package graph

// Action is the kind of mutation applied to the graph.
type Action string

const (
	ActionAddNode    Action = "add_node"
	ActionAddEdge    Action = "add_edge"
	ActionUpdateNode Action = "update_node"
	ActionDeleteNode Action = "delete_node"
)

// Event describes a single graph mutation as a tagged variant: the Action
// says what happened, exactly one of Node or Edge carries the typed payload.
// Events drive knowledge-source triggering, so Type is the scheduler-facing
// name: "node:<kind>" for added nodes, "edge:<kind>" for added edges,
// "update:<kind>" for updated nodes and "delete_node" for deletions.
type Event struct {
	Type   string
	Action Action
	CaseID string
	Node   *Node
	Edge   *Edge
}

// NodeEvent builds the event for a node mutation.
func NodeEvent(action Action, n *Node) Event {
	ev := Event{
		Action: action,
		CaseID: n.CaseID,
		Node:   n,
	}
	switch action {
	case ActionAddNode:
		ev.Type = "node:" + string(n.Kind)
	case ActionUpdateNode:
		ev.Type = "update:" + string(n.Kind)
	case ActionDeleteNode:
		ev.Type = string(ActionDeleteNode)
	default:
		ev.Type = string(action)
	}
	return ev
}

// EdgeEvent builds the event for an added edge.
func EdgeEvent(e *Edge) Event {
	return Event{
		Type:   "edge:" + string(e.Kind),
		Action: ActionAddEdge,
		CaseID: e.CaseID,
		Edge:   e,
	}
}

// Payload returns the node or edge the event carries, for serialization.
func (ev Event) Payload() any {
	if ev.Node != nil {
		return ev.Node
	}
	return ev.Edge
}
