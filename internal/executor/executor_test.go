package executor

import (
	"context"
	"testing"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envWith(action busmsg.Action, target string) busmsg.PlanEnvelope {
	return busmsg.NewPlanEnvelope(target, busmsg.Decision{Action: action, Target: target, Reason: "test"}, busmsg.Telemetry{})
}

func TestDispatchTargetNotFound(t *testing.T) {
	rt := NewMemoryRuntime()
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, nil)
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionScaleUp, "web"))
	assert.Equal(t, busmsg.StatusError, res.Result.Status)
	assert.Contains(t, res.Result.Message, "not found")
}

func TestDispatchSkipsUnlabeledTarget(t *testing.T) {
	rt := NewMemoryRuntime(Container{Name: "web", Labels: map[string]string{}})
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, nil)
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionScaleUp, "web"))
	assert.Equal(t, busmsg.StatusSkipped, res.Result.Status)
	assert.Contains(t, res.Result.Message, "not labeled")
	assert.Equal(t, busmsg.ActionNoop, res.Action)
}

func TestDispatchRestart(t *testing.T) {
	rt := NewMemoryRuntime(Container{Name: "web", Labels: map[string]string{"agentic.target": "true"}})
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, nil)
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionRestart, "web"))
	assert.Equal(t, busmsg.StatusOK, res.Result.Status)
}

func TestDispatchScaleUpStartsNewSibling(t *testing.T) {
	rt := NewMemoryRuntime(Container{Name: "web", Image: "app:v1", Network: "net0", Labels: map[string]string{"agentic.target": "true"}})
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, func() time.Time { return time.Unix(1700000000, 0) })
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionScaleUp, "web"))
	require.Equal(t, busmsg.StatusOK, res.Result.Status)

	c, ok, err := rt.Find(context.Background(), "web-dup-1700000000")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "app:v1", c.Image)
	assert.Equal(t, "net0", c.Network)
}

func TestDispatchScaleUpAtCapReturnsNoop(t *testing.T) {
	rt := NewMemoryRuntime(
		Container{Name: "web", Image: "app:v1", Network: "net0", Labels: map[string]string{"agentic.target": "true"}},
		Container{Name: "web-dup-1", Image: "app:v1", Network: "net0"},
	)
	ex := New(Config{Target: "web", MaxReplicas: 2}, rt, func() time.Time { return time.Unix(2, 0) })
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionScaleUp, "web"))
	assert.Equal(t, busmsg.StatusNoop, res.Result.Status)
	assert.Contains(t, res.Result.Message, "max replicas")
}

func TestDispatchScaleDownRemovesLastSibling(t *testing.T) {
	rt := NewMemoryRuntime(
		Container{Name: "web", Labels: map[string]string{"agentic.target": "true"}},
		Container{Name: "web-dup-100"},
		Container{Name: "web-dup-200"},
	)
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, nil)
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionScaleDown, "web"))
	require.Equal(t, busmsg.StatusOK, res.Result.Status)

	_, ok, _ := rt.Find(context.Background(), "web-dup-200")
	assert.False(t, ok, "the highest-timestamp sibling should have been removed")
	_, ok, _ = rt.Find(context.Background(), "web-dup-100")
	assert.True(t, ok)
}

func TestDispatchScaleDownNoSiblingsIsNoop(t *testing.T) {
	rt := NewMemoryRuntime(Container{Name: "web", Labels: map[string]string{"agentic.target": "true"}})
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, nil)
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionScaleDown, "web"))
	assert.Equal(t, busmsg.StatusNoop, res.Result.Status)
	assert.Contains(t, res.Result.Message, "no siblings")
}

func TestDispatchNoopAlwaysOK(t *testing.T) {
	rt := NewMemoryRuntime(Container{Name: "web", Labels: map[string]string{"agentic.target": "true"}})
	ex := New(Config{Target: "web", MaxReplicas: 5}, rt, nil)
	res := ex.Dispatch(context.Background(), envWith(busmsg.ActionNoop, "web"))
	assert.Equal(t, busmsg.StatusOK, res.Result.Status)
}

func TestSiblingPatternMatchesOnlyDupSuffix(t *testing.T) {
	p := siblingPattern("web")
	assert.True(t, p.MatchString("web-dup-123"))
	assert.False(t, p.MatchString("web"))
	assert.False(t, p.MatchString("web-dup-abc"))
	assert.False(t, p.MatchString("webby-dup-123"))
}
