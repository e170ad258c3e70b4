package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sawpanic/agentic-autoscaler/internal/busmsg"
)

const oracleRequestTimeout = 20 * time.Second

// oraclePayload is the JSON body sent to the oracle.
type oraclePayload struct {
	P95MS         float64 `json:"p95_ms"`
	BaselineMS    float64 `json:"baseline_ms"`
	SigmaMS       float64 `json:"sigma_ms"`
	PctOfBaseline float64 `json:"pct_of_baseline"`
	LowWindows    []bool  `json:"low_windows"`
	Replicas      int     `json:"replicas"`
	MinReplicas   int     `json:"min_replicas"`
	MaxReplicas   int     `json:"max_replicas"`
	CooldownOK    bool    `json:"cooldown_ok"`
	HaveBaseline  bool    `json:"have_baseline"`
	AlphaUp       float64 `json:"alpha_up"`
	BetaDown      float64 `json:"beta_down"`
	KSigma        float64 `json:"k_sigma"`
}

// oracleReply is the compact object the oracle is instructed to return.
type oracleReply struct {
	Action string `json:"action"`
	Target string `json:"target"`
	Reason string `json:"reason"`
}

// RemoteAdvisor calls an external HTTP oracle (an LLM-backed advisor) and
// reports every non-success outcome in AdvisorResponse.Outcome, on which
// the Engine falls back to the heuristic: a thin HTTP client wrapped in the shared rate-limit/circuit/budget middleware
// (internal/net/client.Wrapper), with response parsing tolerant of the
// fenced-code-block formatting LLM responses commonly use.
type RemoteAdvisor struct {
	HTTPClient *http.Client
	URL        string
	APIKey     string
	Target     string
}

// Advise sends the current window's telemetry to the oracle and returns
// its parsed decision, or a non-success AdvisorResponse describing why it
// could not be used. It never returns an error directly — callers branch
// on Outcome.
func (r *RemoteAdvisor) Advise(ctx context.Context, req AdvisorRequest) AdvisorResponse {
	payload := oraclePayload{
		P95MS:         req.P95MS,
		BaselineMS:    req.BaselineMS,
		SigmaMS:       req.SigmaMS,
		PctOfBaseline: req.PctOfBaseline,
		LowWindows:    req.LowWindows,
		Replicas:      req.Replicas,
		MinReplicas:   req.MinReplicas,
		MaxReplicas:   req.MaxReplicas,
		CooldownOK:    req.CooldownOK,
		HaveBaseline:  req.HaveBaseline,
		AlphaUp:       req.AlphaUp,
		BetaDown:      req.BetaDown,
		KSigma:        req.KSigma,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return AdvisorResponse{Outcome: OutcomeCallFailure, Err: fmt.Errorf("marshal oracle payload: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, oracleRequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return AdvisorResponse{Outcome: OutcomeCallFailure, Err: fmt.Errorf("build oracle request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	resp, err := r.HTTPClient.Do(httpReq)
	if err != nil {
		return AdvisorResponse{Outcome: OutcomeCallFailure, Err: fmt.Errorf("oracle call: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return AdvisorResponse{Outcome: OutcomeCallFailure, Err: fmt.Errorf("read oracle response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := 0
		if v := resp.Header.Get("Retry-After"); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				retryAfter = n
			}
		}
		return AdvisorResponse{Outcome: OutcomeRateLimited, RetryAfterSec: retryAfter, Err: fmt.Errorf("oracle rate limited (429)")}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return AdvisorResponse{Outcome: OutcomeCallFailure, Err: fmt.Errorf("oracle returned HTTP %d", resp.StatusCode)}
	}

	reply, err := parseOracleReply(respBody)
	if err != nil {
		return AdvisorResponse{Outcome: OutcomeParseFailure, Err: err}
	}

	decision := busmsg.Decision{
		Action: busmsg.NormalizeAction(busmsg.Action(reply.Action)),
		Target: r.Target,
		Reason: reply.Reason,
	}
	decision.TruncateReason()

	return AdvisorResponse{Decision: decision, Outcome: OutcomeSuccess}
}

// parseOracleReply strips a fenced code block (``` or ```json) around the
// body, if present, then decodes the compact JSON object.
func parseOracleReply(raw []byte) (oracleReply, error) {
	text := strings.TrimSpace(string(raw))
	text = stripCodeFence(text)

	var reply oracleReply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return oracleReply{}, fmt.Errorf("parse oracle reply: %w", err)
	}
	return reply, nil
}

func stripCodeFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.SplitN(text, "\n", 2)
	if len(lines) < 2 {
		return text
	}
	rest := lines[1]
	if idx := strings.LastIndex(rest, "```"); idx >= 0 {
		rest = rest[:idx]
	}
	return strings.TrimSpace(rest)
}
