package ctlclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"student-analytics/internal/pipeline"
	"student-analytics/internal/students"
)

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestDoJSONReturnsServiceUnavailable(t *testing.T) {
	client := NewClient("http://example.test", &http.Client{
		Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("dial error")
		}),
	})

	_, err := client.Status(context.Background())
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable wrapper, got %v", err)
	}
}

func TestTriggerConflict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/pipeline/run" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: "pipeline run already in progress"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.Client())
	_, err := client.Trigger(context.Background())
	if !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err.Error() != "pipeline run already in progress" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestAPIErrorFallsBackToStatusText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(server.URL, server.Client()).Summary(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T (%v)", err, err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Message != "503 Service Unavailable" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestSummaryDecodes(t *testing.T) {
	want := Summary{
		Summary:  students.Summary{Total: 3, Passed: 2, Failed: 1, PassRate: 66.67, AverageFinal: 10.33},
		ByGender: []students.GenderCount{{Sex: "F", Result: students.Pass, Count: 2}},
		ByAge:    []students.AgeAverage{{Age: 15, AvgFinal: 11}},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/summary" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer server.Close()

	got, err := NewClient(server.URL+"/", server.Client()).Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary returned error: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestWaitPollsUntilFinished(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		state := pipeline.Running
		if atomic.AddInt32(&calls, 1) >= 3 {
			state = pipeline.Succeeded
		}
		_ = json.NewEncoder(w).Encode(pipelineResponse{Status: pipeline.Status{State: state, Runs: 1}})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := NewClient(server.URL, server.Client()).Wait(ctx, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if status.State != pipeline.Succeeded {
		t.Fatalf("state = %s, want %s", status.State, pipeline.Succeeded)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("polled %d times, want 3", got)
	}
}

func TestWaitStopsOnContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(pipelineResponse{Status: pipeline.Status{State: pipeline.Running}})
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(server.URL, server.Client()).Wait(ctx, 10*time.Millisecond)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
