package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rhuss/codebridge/pkg/api"
)

func TestClientExecute(t *testing.T) {
	var gotReq ExecuteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/execute" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":       "success",
			"output":       []string{"hello"},
			"return_value": 7,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 30, []string{"left-pad"})
	env, err := client.Run(context.Background(), "print(\"hello\")\n7")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if gotReq.Code == "" || gotReq.TimeoutSeconds != 30 {
		t.Errorf("request = %+v", gotReq)
	}
	if len(gotReq.Requirements) != 1 || gotReq.Requirements[0] != "left-pad" {
		t.Errorf("requirements = %v", gotReq.Requirements)
	}
	if env.Status != api.StatusSuccess || len(env.Output) != 1 || env.Output[0] != "hello" {
		t.Errorf("envelope = %+v", env)
	}
	if string(env.ReturnValue) != "7" {
		t.Errorf("return value = %s", env.ReturnValue)
	}
}

func TestClientSendsAuthToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"status":"success","output":[]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, 10, nil).WithAuthToken("tok-123")
	if _, err := client.Run(context.Background(), "1"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want \"Bearer tok-123\"", gotAuth)
	}
}

func TestClientCapacityError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 10, nil).Run(context.Background(), "1")
	if err == nil || !strings.Contains(err.Error(), "capacity") {
		t.Fatalf("err = %v", err)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 10, nil).Run(context.Background(), "1")
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Fatalf("err = %v", err)
	}
}

func TestClientMalformedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success","error":"should not be here"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 10, nil).Run(context.Background(), "1")
	if err == nil {
		t.Fatal("expected envelope validation error")
	}
}
