package automation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearGraph() Graph {
	return Graph{
		Nodes: []Node{
			{ID: "n1", Type: NodeTrigger, Data: NodeData{
				TriggerType: TriggerTaskStatusChanged,
				Config:      json.RawMessage(`{"toStatus":"DONE"}`),
			}},
			{ID: "n2", Type: NodeAction, Data: NodeData{
				ActionType: ActionAddComment,
				Config:     json.RawMessage(`{"comment":"Nice work!"}`),
			}},
			{ID: "n3", Type: NodeAction, Data: NodeData{
				ActionType: ActionAddLabel,
				Config:     json.RawMessage(`{"labelId":"done"}`),
			}},
		},
		Edges: []Edge{
			{ID: "e1", Source: "n1", Target: "n2"},
			{ID: "e2", Source: "n2", Target: "n3"},
		},
	}
}

func TestGraphToRule_LinearChain(t *testing.T) {
	draft, errs := GraphToRule(linearGraph())
	require.Empty(t, errs)
	require.NotNil(t, draft)

	assert.Equal(t, TriggerTaskStatusChanged, draft.TriggerType)
	require.Len(t, draft.Actions, 2)
	assert.Equal(t, ActionAddComment, draft.Actions[0].ActionType)
	assert.Equal(t, 0, draft.Actions[0].Order)
	assert.Equal(t, ActionAddLabel, draft.Actions[1].ActionType)
	assert.Equal(t, 1, draft.Actions[1].Order)
}

func TestGraphToRule_OrderFollowsEdgesNotNodeList(t *testing.T) {
	g := linearGraph()
	// Reversing node declaration order must not change the action order.
	g.Nodes[1], g.Nodes[2] = g.Nodes[2], g.Nodes[1]

	draft, errs := GraphToRule(g)
	require.Empty(t, errs)
	assert.Equal(t, ActionAddComment, draft.Actions[0].ActionType)
	assert.Equal(t, ActionAddLabel, draft.Actions[1].ActionType)
}

func TestGraphToRule_MultipleTriggers(t *testing.T) {
	g := linearGraph()
	g.Nodes = append(g.Nodes, Node{ID: "n4", Type: NodeTrigger, Data: NodeData{
		TriggerType: TriggerTaskCreated,
	}})

	_, errs := GraphToRule(g)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "found multiple")
}

func TestGraphToRule_NoTrigger(t *testing.T) {
	g := linearGraph()
	g.Nodes = g.Nodes[1:]

	_, errs := GraphToRule(g)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "found none")
}

func TestGraphToRule_BranchingRejected(t *testing.T) {
	g := linearGraph()
	g.Edges = append(g.Edges, Edge{ID: "e3", Source: "n1", Target: "n3"})

	_, errs := GraphToRule(g)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "more than one outgoing edge")
}

func TestGraphToRule_CycleRejected(t *testing.T) {
	// Closing the chain back onto n2 gives it a second incoming edge, which
	// is how any reachable cycle manifests structurally.
	g := linearGraph()
	g.Edges = append(g.Edges, Edge{ID: "e3", Source: "n3", Target: "n2"})

	_, errs := GraphToRule(g)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "more than one incoming edge")
}

func TestGraphToRule_UnreachableAction(t *testing.T) {
	g := linearGraph()
	g.Edges = g.Edges[:1]

	_, errs := GraphToRule(g)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "not reachable")
}

func TestGraphToRule_TriggerOnlyRejected(t *testing.T) {
	g := Graph{Nodes: []Node{{ID: "n1", Type: NodeTrigger, Data: NodeData{TriggerType: TriggerTaskCreated}}}}

	_, errs := GraphToRule(g)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Message, "at least one action")
}

func TestGraphToRule_TriggerAsEdgeTarget(t *testing.T) {
	g := linearGraph()
	g.Edges = append(g.Edges, Edge{ID: "e3", Source: "n3", Target: "n1"})

	_, errs := GraphToRule(g)
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0].Message, "trigger node cannot be an edge target")
}

func TestGraphToRule_AggregatesConfigErrorsWithNodePrefix(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{ID: "n1", Type: NodeTrigger, Data: NodeData{
				TriggerType: TriggerTaskStatusChanged,
				Config:      json.RawMessage(`{}`),
			}},
			{ID: "n2", Type: NodeAction, Data: NodeData{
				ActionType: ActionWebhookCall,
				Config:     json.RawMessage(`{"url":"ftp://x","method":"DELETE"}`),
			}},
		},
		Edges: []Edge{{ID: "e1", Source: "n1", Target: "n2"}},
	}

	_, errs := GraphToRule(g)
	assert.ElementsMatch(t, []string{"n1.toStatus", "n2.url", "n2.method"}, fieldNames(errs))
}

func TestRuleToGraph_RoundTrip(t *testing.T) {
	rule := &Rule{
		ID:          "r1",
		TriggerType: TriggerLabelAdded,
		TriggerRaw:  json.RawMessage(`{"labelId":"bug"}`),
		Actions: []Action{
			{ActionType: ActionAssignUser, ConfigRaw: json.RawMessage(`{"userId":"u1"}`), Order: 0},
			{ActionType: ActionSendNotification, ConfigRaw: json.RawMessage(`{"title":"Bug","message":"triaged"}`), Order: 1},
		},
	}

	g := RuleToGraph(rule)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, NodeTrigger, g.Nodes[0].Type)
	assert.Equal(t, "trigger-1", g.Edges[0].Source)
	assert.Equal(t, g.Edges[0].Target, g.Edges[1].Source)

	draft, errs := GraphToRule(g)
	require.Empty(t, errs)
	assert.Equal(t, rule.TriggerType, draft.TriggerType)
	require.Len(t, draft.Actions, len(rule.Actions))
	for i, a := range draft.Actions {
		assert.Equal(t, rule.Actions[i].ActionType, a.ActionType)
		assert.Equal(t, i, a.Order)
		assert.JSONEq(t, string(rule.Actions[i].ConfigRaw), string(a.ActionConfig))
	}
}
