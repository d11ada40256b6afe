package learning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/hustlexp/insight/internal/experiments"
	"github.com/hustlexp/insight/internal/feedback"
	"github.com/hustlexp/insight/internal/storage"
	"github.com/hustlexp/insight/pkg/models"
)

type capturedRequest struct {
	path string
	body map[string]any
}

func newTestFacade(t *testing.T, handler http.HandlerFunc) (*Facade, *feedback.Client, func()) {
	t.Helper()
	server := httptest.NewServer(handler)

	client := feedback.NewClient(server.URL, feedback.NewMemoryStore())
	store := experiments.NewAssignmentStore(storage.NewMemoryKV())
	service := experiments.NewService(experiments.DefaultCatalog(), store,
		experiments.WithTracker(client),
	)
	return New(client, service), client, server.Close
}

func captureRequests(t *testing.T, mu *sync.Mutex, requests *[]capturedRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("undecodable request body on %s: %v", r.URL.Path, err)
		}
		mu.Lock()
		*requests = append(*requests, capturedRequest{path: r.URL.Path, body: body})
		mu.Unlock()
		w.Write([]byte(`{"sentiment":"ok"}`))
	}
}

func TestSubmitMatchAcceptanceSubmitsAndTracks(t *testing.T) {
	var mu sync.Mutex
	var requests []capturedRequest
	facade, _, closeServer := newTestFacade(t, captureRequests(t, &mu, &requests))
	defer closeServer()

	result := facade.SubmitMatchAcceptance(context.Background(), "user-1", "task-1", 82, 0.9)
	if !result.Success {
		t.Fatalf("submission failed: %s", result.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("request count = %d, want feedback + outcome", len(requests))
	}

	fb := requests[0]
	if fb.path != "/feedback" {
		t.Errorf("first request path = %s, want /feedback", fb.path)
	}
	if fb.body["action"] != string(models.ActionMatchAccept) {
		t.Errorf("action = %v, want match_accept", fb.body["action"])
	}
	if fb.body["matchScore"] != 82.0 {
		t.Errorf("matchScore = %v, want 82", fb.body["matchScore"])
	}
	if fb.body["eventId"] == "" || fb.body["eventId"] == nil {
		t.Error("event carries no id")
	}

	track := requests[1]
	if track.path != "/experiments/track" {
		t.Errorf("second request path = %s, want /experiments/track", track.path)
	}
	if track.body["experimentId"] != experiments.ExperimentMatchThreshold {
		t.Errorf("experimentId = %v", track.body["experimentId"])
	}
	if track.body["metricValue"] != 1.0 {
		t.Errorf("metricValue = %v, want 1", track.body["metricValue"])
	}
	if track.body["variant"] == "" || track.body["variant"] == nil {
		t.Error("outcome carries no variant")
	}
}

func TestSubmitMatchRejectionRecordsZeroMetric(t *testing.T) {
	var mu sync.Mutex
	var requests []capturedRequest
	facade, _, closeServer := newTestFacade(t, captureRequests(t, &mu, &requests))
	defer closeServer()

	result := facade.SubmitMatchRejection(context.Background(), "user-1", "task-2", 55, "too far away")
	if !result.Success {
		t.Fatalf("submission failed: %s", result.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(requests) != 2 {
		t.Fatalf("request count = %d, want 2", len(requests))
	}
	if requests[0].body["rejectionReason"] != "too far away" {
		t.Errorf("rejectionReason = %v", requests[0].body["rejectionReason"])
	}
	if requests[1].body["metricValue"] != 0.0 {
		t.Errorf("metricValue = %v, want 0", requests[1].body["metricValue"])
	}
}

func TestSubmitTaskCompletionAssignsEventID(t *testing.T) {
	var mu sync.Mutex
	var requests []capturedRequest
	facade, _, closeServer := newTestFacade(t, captureRequests(t, &mu, &requests))
	defer closeServer()

	result := facade.SubmitTaskCompletion(context.Background(), models.CompletionFeedback{
		UserID: "user-1",
		TaskID: "task-3",
		Rating: 5,
	})
	if !result.Success {
		t.Fatalf("submission failed: %s", result.Error)
	}

	mu.Lock()
	defer mu.Unlock()
	fb := requests[0]
	if fb.body["action"] != string(models.ActionTaskComplete) {
		t.Errorf("action = %v, want task_complete", fb.body["action"])
	}
	if id, _ := fb.body["eventId"].(string); id == "" {
		t.Error("completion event got no generated id")
	}
	if requests[1].body["metricValue"] != 5.0 {
		t.Errorf("metricValue = %v, want rating 5", requests[1].body["metricValue"])
	}
}

func TestSubmitTradeCompletionFailureDoesNotPanic(t *testing.T) {
	facade, client, closeServer := newTestFacade(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeServer()

	ctx := context.Background()
	result := facade.SubmitTradeCompletion(ctx, models.TradeFeedback{
		UserID:      "user-1",
		TradeID:     "trade-1",
		PricingFair: true,
	})
	if result.Success {
		t.Fatal("submission reported success against a failing server")
	}

	// Both the trade event and the outcome land in the retry queue.
	if n, _ := client.Queue().Len(ctx); n != 2 {
		t.Errorf("queue length = %d, want 2", n)
	}
}
