package automation

import (
	"encoding/json"
	"fmt"

	"teamflow/internal/constants"
	"teamflow/pkg/errors"
)

type NodeType string

const (
	NodeTrigger NodeType = "trigger"
	NodeAction  NodeType = "action"
)

// Graph is the visual builder's node/edge representation of a rule: one
// trigger node followed by a linear chain of action nodes.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	Data NodeData `json:"data"`
}

type NodeData struct {
	TriggerType TriggerKind     `json:"triggerType,omitempty"`
	ActionType  ActionKind      `json:"actionType,omitempty"`
	Config      json.RawMessage `json:"config,omitempty"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// RuleDraft is the canonical form produced from a well-formed graph, ready
// for the rule store.
type RuleDraft struct {
	TriggerType   TriggerKind
	TriggerConfig json.RawMessage
	Actions       []ActionInput
}

// GraphToRule converts a visual graph to its canonical rule shape. The graph
// must contain exactly one trigger node and a simple directed path through
// every action node; action order is assigned by walking the path outward
// from the trigger. All structural and field-level problems are returned as
// one aggregate, not just the first.
func GraphToRule(g Graph) (*RuleDraft, errors.FieldErrors) {
	var errs errors.FieldErrors

	var trigger *Node
	actionNodes := make(map[string]*Node)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		switch n.Type {
		case NodeTrigger:
			if trigger != nil {
				errs = append(errs, errors.FieldError{Field: "nodes", Message: "graph must contain exactly one trigger node, found multiple"})
			}
			trigger = n
		case NodeAction:
			actionNodes[n.ID] = n
		default:
			errs = append(errs, errors.FieldError{Field: "nodes", Message: fmt.Sprintf("node %s has unknown type %q", n.ID, n.Type)})
		}
	}
	if trigger == nil {
		errs = append(errs, errors.FieldError{Field: "nodes", Message: "graph must contain exactly one trigger node, found none"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if len(actionNodes) > constants.MaxActionsPerRule {
		errs = append(errs, errors.FieldError{
			Field:   "nodes",
			Message: fmt.Sprintf("a rule may have at most %d actions", constants.MaxActionsPerRule),
		})
	}

	// A simple path means out-degree and in-degree at most one per node; the
	// trigger has no incoming edges.
	next := make(map[string]string, len(g.Edges))
	indegree := make(map[string]int, len(g.Edges))
	for _, e := range g.Edges {
		if _, dup := next[e.Source]; dup {
			errs = append(errs, errors.FieldError{Field: "edges", Message: fmt.Sprintf("node %s has more than one outgoing edge", e.Source)})
			continue
		}
		if e.Target == trigger.ID {
			errs = append(errs, errors.FieldError{Field: "edges", Message: "trigger node cannot be an edge target"})
			continue
		}
		if _, ok := actionNodes[e.Target]; !ok {
			errs = append(errs, errors.FieldError{Field: "edges", Message: fmt.Sprintf("edge %s targets unknown node %s", e.ID, e.Target)})
			continue
		}
		if e.Source != trigger.ID {
			if _, ok := actionNodes[e.Source]; !ok {
				errs = append(errs, errors.FieldError{Field: "edges", Message: fmt.Sprintf("edge %s starts at unknown node %s", e.ID, e.Source)})
				continue
			}
		}
		next[e.Source] = e.Target
		indegree[e.Target]++
	}
	for id, deg := range indegree {
		if deg > 1 {
			errs = append(errs, errors.FieldError{Field: "edges", Message: fmt.Sprintf("node %s has more than one incoming edge", id)})
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	// Walk the path from the trigger; revisits mean a cycle, unvisited action
	// nodes are unreachable.
	var ordered []*Node
	visited := make(map[string]bool, len(actionNodes))
	for cur := next[trigger.ID]; cur != ""; cur = next[cur] {
		if visited[cur] {
			errs = append(errs, errors.FieldError{Field: "edges", Message: "action chain contains a cycle"})
			break
		}
		visited[cur] = true
		ordered = append(ordered, actionNodes[cur])
	}
	for _, n := range g.Nodes {
		if n.Type == NodeAction && !visited[n.ID] {
			errs = append(errs, errors.FieldError{Field: "nodes", Message: fmt.Sprintf("action node %s is not reachable from the trigger", n.ID)})
		}
	}
	if len(ordered) == 0 {
		errs = append(errs, errors.FieldError{Field: "nodes", Message: "a rule must have at least one action"})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	triggerCfg, err := DecodeTriggerConfig(trigger.Data.TriggerType, trigger.Data.Config)
	if err != nil {
		errs = append(errs, errors.FieldError{Field: trigger.ID + ".triggerType", Message: err.Error()})
	} else {
		for _, fe := range ValidateTrigger(triggerCfg) {
			errs = append(errs, errors.FieldError{Field: trigger.ID + "." + fe.Field, Message: fe.Message})
		}
	}

	draft := &RuleDraft{
		TriggerType:   trigger.Data.TriggerType,
		TriggerConfig: trigger.Data.Config,
	}
	for i, n := range ordered {
		actionCfg, err := DecodeActionConfig(n.Data.ActionType, n.Data.Config)
		if err != nil {
			errs = append(errs, errors.FieldError{Field: n.ID + ".actionType", Message: err.Error()})
		} else {
			for _, fe := range ValidateAction(actionCfg) {
				errs = append(errs, errors.FieldError{Field: n.ID + "." + fe.Field, Message: fe.Message})
			}
		}
		draft.Actions = append(draft.Actions, ActionInput{
			ActionType:   n.Data.ActionType,
			ActionConfig: n.Data.Config,
			Order:        i,
		})
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return draft, nil
}

// RuleToGraph is the inverse of GraphToRule: it lays the rule out as a
// trigger node followed by its actions in order, connected by a linear edge
// chain. Round-tripping a well-formed graph preserves its node and edge sets.
func RuleToGraph(rule *Rule) Graph {
	g := Graph{
		Nodes: []Node{{
			ID:   "trigger-1",
			Type: NodeTrigger,
			Data: NodeData{
				TriggerType: rule.TriggerType,
				Config:      rule.TriggerRaw,
			},
		}},
	}

	prev := "trigger-1"
	for i, a := range rule.Actions {
		id := fmt.Sprintf("action-%d", i+1)
		g.Nodes = append(g.Nodes, Node{
			ID:   id,
			Type: NodeAction,
			Data: NodeData{
				ActionType: a.ActionType,
				Config:     a.ConfigRaw,
			},
		})
		g.Edges = append(g.Edges, Edge{
			ID:     fmt.Sprintf("edge-%d", i+1),
			Source: prev,
			Target: id,
		})
		prev = id
	}

	return g
}
