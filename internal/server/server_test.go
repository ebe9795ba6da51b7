package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/SWEEPR/internal/config"
	"github.com/copyleftdev/SWEEPR/internal/logging"
	"github.com/copyleftdev/SWEEPR/internal/sweep/sweeptest"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{Environment: "test"}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "json"
	cfg.Logging.Output = "stdout"

	cfg.Sweep.Workers = 2
	cfg.Sweep.Seed = 1
	cfg.Sweep.OutputDir = t.TempDir()

	return cfg
}

func testLogger(t *testing.T) *logging.Logger {
	logger, err := logging.NewLogger(&logging.Config{
		Level:  "debug",
		Format: "json",
		Output: "stdout",
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger
}

func testServer(t *testing.T) (*Server, chi.Router) {
	srv := NewServer(testConfig(t), testLogger(t))
	srv.RegisterModel("demo", ModelDefinition{
		Factory:  sweeptest.Factory,
		Evaluate: sweeptest.Solve,
		Recover:  sweeptest.Relax,
	})
	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func demoRequest() sweepRequest {
	return sweepRequest{
		Model: "demo",
		Parameters: []parameterRequest{
			{Target: sweeptest.InputA, Sampling: "linear", Lower: 0.1, Upper: 0.9, Count: 3},
			{Target: sweeptest.InputB, Sampling: "linear", Lower: 0, Upper: 0.5, Count: 3},
		},
		Outputs: []string{sweeptest.OutputC, sweeptest.Performance},
	}
}

func TestNewServer(t *testing.T) {
	srv := NewServer(testConfig(t), testLogger(t))
	assert.NotNil(t, srv)
}

func TestRegisterRoutes(t *testing.T) {
	_, r := testServer(t)

	tests := []struct {
		method      string
		path        string
		shouldExist bool
	}{
		{"POST", "/api/v1/sweeps", true},
		{"GET", "/api/v1/sweeps/123", true},
		{"POST", "/rpc", true},
		{"GET", "/healthz", false},
		{"GET", "/nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader([]byte("{}")))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if tt.shouldExist && rr.Code == http.StatusNotFound {
				t.Errorf("Route %s %s should exist but returned 404", tt.method, tt.path)
			}
		})
	}
}

func TestStartSweepValidation(t *testing.T) {
	srv, _ := testServer(t)

	tests := []struct {
		name   string
		mutate func(*sweepRequest)
	}{
		{"unknown model", func(r *sweepRequest) { r.Model = "nope" }},
		{"no parameters", func(r *sweepRequest) { r.Parameters = nil }},
		{"no outputs", func(r *sweepRequest) { r.Outputs = nil }},
		{"unknown sampling", func(r *sweepRequest) { r.Parameters[0].Sampling = "quantum" }},
		{"unknown target", func(r *sweepRequest) { r.Parameters[0].Target = "fs.bogus" }},
		{"ambiguous target", func(r *sweepRequest) { r.Parameters[0].Target = "fs.input" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := demoRequest()
			tt.mutate(&req)
			_, err := srv.startSweep(req)
			assert.Error(t, err)
		})
	}
}

func TestSweepLifecycle(t *testing.T) {
	_, r := testServer(t)

	body, err := json.Marshal(demoRequest())
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/v1/sweeps", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var started struct {
		SweepID    string `json:"sweep_id"`
		Status     string `json:"status"`
		TotalCases int    `json:"total_cases"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&started))
	assert.NotEmpty(t, started.SweepID)
	assert.Equal(t, 9, started.TotalCases)

	// The run is asynchronous; poll until it reaches a terminal state.
	deadline := time.Now().Add(10 * time.Second)
	var status map[string]interface{}
	for {
		req := httptest.NewRequest("GET", "/api/v1/sweeps/"+started.SweepID, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		status = map[string]interface{}{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
		if s := status["status"]; s == "completed" || s == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("sweep did not finish, last status: %v", status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	assert.Equal(t, "completed", status["status"], "error: %v", status["error"])
	assert.Equal(t, float64(9), status["cases_done"])
	assert.Equal(t, float64(1), status["progress"])
	assert.NotEmpty(t, status["result_files"])
}

func TestJSONRPCSweepStart(t *testing.T) {
	_, r := testServer(t)

	params, err := json.Marshal(demoRequest())
	require.NoError(t, err)
	body, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "sweep.start",
		"params":  []json.RawMessage{params},
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/rpc", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, "2.0", response["jsonrpc"])
	assert.Nil(t, response["error"])

	result, ok := response["result"].(map[string]interface{})
	require.True(t, ok, "expected a result object, got %v", response)
	assert.NotEmpty(t, result["sweep_id"])
}

func TestJSONRPCErrors(t *testing.T) {
	_, r := testServer(t)

	tests := []struct {
		name     string
		body     string
		wantCode float64
	}{
		{"parse error", "{not json", -32700},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"sweep.status"}`, -32600},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"sweep.launch"}`, -32601},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"sweep.start"}`, -32602},
		{"unknown sweep", `{"jsonrpc":"2.0","id":1,"method":"sweep.status","params":[{"sweep_id":"nope"}]}`, -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/rpc", bytes.NewReader([]byte(tt.body)))
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			require.Equal(t, http.StatusOK, rr.Code)

			var response map[string]interface{}
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
			errObj, ok := response["error"].(map[string]interface{})
			require.True(t, ok, "expected an error object, got %v", response)
			assert.Equal(t, tt.wantCode, errObj["code"])
		})
	}
}

func TestSweepStatusNotFound(t *testing.T) {
	_, r := testServer(t)

	req := httptest.NewRequest("GET", "/api/v1/sweeps/sweep_0", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRespondWithError(t *testing.T) {
	srv, _ := testServer(t)

	rr := httptest.NewRecorder()
	srv.respondWithError(rr, -32601, "Method not found", "abc")

	assert.Equal(t, http.StatusOK, rr.Code)

	var response map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	errObj, ok := response["error"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(-32601), errObj["code"])
	assert.Equal(t, "Method not found", errObj["message"])
	assert.Equal(t, "abc", response["id"])
}
