package main

import (
	"encoding/json"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
)

func unmarshalJSON(payload []byte, v any) error {
	return json.Unmarshal(payload, v)
}

// marshalWindow stamps the kind discriminator onto a LatencyWindow before
// encoding, since busmsg.LatencyWindow has no Kind field of its own (the
// discriminator lives at the envelope level on the alerts topic).
func marshalWindow(w busmsg.LatencyWindow) ([]byte, error) {
	envelope := struct {
		Kind busmsg.Kind `json:"kind"`
		busmsg.LatencyWindow
	}{Kind: busmsg.KindLatencyMetrics, LatencyWindow: w}
	return json.Marshal(envelope)
}

func marshalPlan(env busmsg.PlanEnvelope) ([]byte, error) {
	return json.Marshal(env)
}

func marshalResult(r busmsg.ActionResult) ([]byte, error) {
	return json.Marshal(r)
}
