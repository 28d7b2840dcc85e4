package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shaiso/metamigrate/internal/domain"
)

// writeData отвечает в конверте {"data": ...}.
func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestClient_ListEnvironments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/environments" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		writeData(w, []map[string]string{
			{"label": "Org A", "value": "OrgA"},
			{"label": "Org B", "value": "OrgB"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL + "/", Token: "secret"})
	envs, err := client.ListEnvironments(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []domain.Environment{{ID: "OrgA", Label: "Org A"}, {ID: "OrgB", Label: "Org B"}}
	if diff := cmp.Diff(want, envs); diff != "" {
		t.Errorf("environments mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_Authenticate(t *testing.T) {
	responses := map[string]string{
		"/environments/OrgA/token": "Valid",
		"/environments/OrgB/token": "Expired",
		"/environments/OrgC/token": "job123",
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		writeData(w, responses[r.URL.Path])
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})

	tests := []struct {
		env  string
		want domain.TokenState
	}{
		{"OrgA", domain.TokenState{Kind: domain.TokenValid}},
		{"OrgB", domain.TokenState{Kind: domain.TokenExpired}},
		{"OrgC", domain.TokenState{Kind: domain.TokenPending, JobID: "job123"}},
	}

	for _, tt := range tests {
		got, err := client.Authenticate(context.Background(), tt.env)
		if err != nil {
			t.Fatalf("Authenticate(%s): unexpected error: %v", tt.env, err)
		}
		if got != tt.want {
			t.Errorf("Authenticate(%s) = %+v, want %+v", tt.env, got, tt.want)
		}
	}
}

func TestClient_FetchDescriptors(t *testing.T) {
	var received descriptorsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/environments/OrgA/descriptors" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected JSON content type, got %q", r.Header.Get("Content-Type"))
		}
		json.NewDecoder(r.Body).Decode(&received)
		writeData(w, []map[string]string{
			{"fullName": "MyFlow", "type": "Flow", "createdByName": "Ann", "lastModifiedByName": "Bob"},
		})
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	rows, err := client.FetchDescriptors(context.Background(), []string{"Flow"}, "OrgA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"Flow"}, received.Types); diff != "" {
		t.Errorf("request types mismatch (-want +got):\n%s", diff)
	}
	want := []domain.MetadataDescriptor{{FullName: "MyFlow", Type: "Flow", CreatedByName: "Ann", LastModifiedByName: "Bob"}}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_SubmitDeploymentAndStatus(t *testing.T) {
	var received deploymentRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/deployments":
			json.NewDecoder(r.Body).Decode(&received)
			writeData(w, "job42")
		case r.Method == http.MethodGet && r.URL.Path == "/deployments/job42/status":
			writeData(w, map[string]any{"done": true, "success": true, "status": "Succeeded"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	selection := domain.SelectionSet{"Flow": {"MyFlow"}}

	jobID, err := client.SubmitDeployment(context.Background(), selection, "OrgA", "OrgB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jobID != "job42" {
		t.Errorf("expected job42, got %s", jobID)
	}
	if received.SourceEnv != "OrgA" || received.TargetEnv != "OrgB" {
		t.Errorf("unexpected envs in request: %+v", received)
	}
	if diff := cmp.Diff(selection, received.SelectionMap); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}

	status, err := client.GetStatus(context.Background(), jobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Done || !status.Success || status.Status != "Succeeded" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestClient_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"error": {"code": "UPSTREAM", "message": "org unreachable"}}`))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.ListMetadataTypes(context.Background(), "OrgA")

	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
	if got := err.Error(); got != "remote call failed: UPSTREAM: org unreachable" {
		t.Errorf("unexpected error message %q", got)
	}
}

func TestClient_PlainErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("oops"))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.ListEnvironments(context.Background())

	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.GetStatus(context.Background(), "job1")

	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch for closed server, got %v", err)
	}
}

func TestClient_EmptyJobID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeData(w, "")
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	_, err := client.RegisterEnvironment(context.Background(), domain.EnvironmentCredentials{Label: "x"})

	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch for empty job id, got %v", err)
	}
}

func TestClient_CanceledContext(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	_, err := client.GetStatus(ctx, "job1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(err, domain.ErrFetch) {
		t.Errorf("expected ErrFetch, got %v", err)
	}
}
