package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/washcycle-core/internal/cycle"
	"github.com/nerrad567/washcycle-core/internal/engine"
	"github.com/nerrad567/washcycle-core/internal/gpio"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/config"
	"github.com/nerrad567/washcycle-core/internal/infrastructure/logging"
	"github.com/nerrad567/washcycle-core/internal/sensor"
)

// ─── Test Helpers ──────────────────────────────────────────────────

// testServer creates a Server with a real cycle repository backed by
// in-memory SQLite, a NopDriver output bank, and a fast-polling engine.
func testServer(t *testing.T) (*Server, *gpio.Bank, *engine.Engine) {
	t.Helper()

	db := setupCycleTestDB(t)
	repo := cycle.NewSQLiteRepository(db)

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	bank, err := gpio.NewBank(gpio.DefaultRoles(), gpio.NopDriver{})
	if err != nil {
		t.Fatalf("NewBank: %v", err)
	}

	// Create hub for WebSocket broadcast
	hub := NewHub(config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}, log)
	go hub.Run(context.Background())

	eng, err := engine.New(engine.Deps{
		Outputs:      bank,
		Sensors:      sensor.Static{},
		Hub:          hub,
		PollInterval: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(eng.Close)

	srv, err := New(Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:      log,
		Engine:      eng,
		Cycles:      repo,
		Outputs:     bank,
		ExternalHub: hub,
		Version:     "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, bank, eng
}

// setupCycleTestDB creates an in-memory SQLite database with the cycles schema.
func setupCycleTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE cycles (
			id TEXT PRIMARY KEY,
			slug TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			document BLOB NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);
		CREATE INDEX idx_cycles_updated_at ON cycles(updated_at);
	`

	if _, execErr := db.Exec(schema); execErr != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", execErr)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

// quickRinse is a small two-phase cycle document used across tests.
const quickRinse = `{
	"name": "Quick Rinse",
	"phases": [
		{
			"id": "fill",
			"name": "Fill",
			"components": [
				{"id": "c1", "compId": "Cold Valve", "start": 0, "duration": 40}
			]
		},
		{
			"id": "drain",
			"name": "Drain",
			"components": [
				{"id": "c2", "compId": "Drain Pump", "start": 0, "duration": 40}
			]
		}
	]
}`

// doJSON runs a request against the router and returns the recorder.
func doJSON(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// decodeMap unmarshals a JSON response body into a map.
func decodeMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v; body: %s", err, w.Body.String())
	}
	return resp
}

// ─── Server Tests ──────────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{}); err == nil {
		t.Error("New() with no deps should fail")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without engine should fail")
	}
}

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeMap(t, w)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

// ─── Engine Endpoint Tests ─────────────────────────────────────────

func TestEngineStatus_Idle(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/engine/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeMap(t, w)
	if resp["running"] != false {
		t.Errorf("running = %v, want false", resp["running"])
	}
}

func TestLoadCycle_NotFound(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/engine/load", `{"slug":"missing"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestLoadAndRunCycle(t *testing.T) {
	srv, _, eng := testServer(t)
	router := srv.buildRouter()

	// Store the cycle
	w := doJSON(t, router, http.MethodPost, "/api/v1/cycles",
		`{"slug":"quick-rinse","document":`+quickRinse+`}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want %d; body: %s", w.Code, http.StatusCreated, w.Body.String())
	}

	// Load it
	w = doJSON(t, router, http.MethodPost, "/api/v1/engine/load", `{"slug":"quick-rinse"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("load status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeMap(t, w)
	if int(resp["phases"].(float64)) != 2 {
		t.Errorf("phases = %v, want 2", resp["phases"])
	}

	// Start it
	w = doJSON(t, router, http.MethodPost, "/api/v1/engine/start", "")
	if w.Code != http.StatusAccepted {
		t.Fatalf("start status = %d, want %d; body: %s", w.Code, http.StatusAccepted, w.Body.String())
	}

	// Starting again while running conflicts (unless already finished)
	w = doJSON(t, router, http.MethodPost, "/api/v1/engine/start", "")
	if w.Code != http.StatusConflict && w.Code != http.StatusAccepted {
		t.Fatalf("second start status = %d, want conflict or accepted", w.Code)
	}

	// Wait for completion
	deadline := time.Now().Add(2 * time.Second)
	for eng.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if eng.IsRunning() {
		t.Fatal("cycle did not complete in time")
	}
}

func TestStartCycle_NoCycleLoaded(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/engine/start", "")
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusConflict, w.Body.String())
	}
}

func TestStopCycle_Idle(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/engine/stop", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSkipPhase_Idle(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	// Skip with no active phase is a harmless no-op
	w := doJSON(t, router, http.MethodPost, "/api/v1/engine/skip", `{"force_outputs_off":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSkipToPhase_OutOfRange(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/engine/skip-to", `{"index":5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}

// ─── Output Endpoint Tests ─────────────────────────────────────────

func TestListOutputs(t *testing.T) {
	srv, bank, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/outputs", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	resp := decodeMap(t, w)
	if int(resp["count"].(float64)) != bank.Lines() {
		t.Errorf("count = %v, want %d", resp["count"], bank.Lines())
	}
}

func TestSetOutput(t *testing.T) {
	srv, bank, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPut, "/api/v1/outputs/Cold%20Valve", `{"on":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}

	line, ok := bank.Resolve("Cold Valve")
	if !ok {
		t.Fatal("Cold Valve not in bank")
	}
	if bank.Get(line) != gpio.LevelOn {
		t.Error("Cold Valve not energised after PUT")
	}

	// Turn it back off
	w = doJSON(t, router, http.MethodPut, "/api/v1/outputs/Cold%20Valve", `{"on":false}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if bank.Get(line) != gpio.LevelOff {
		t.Error("Cold Valve still energised after off PUT")
	}
}

func TestSetOutput_UnknownRole(t *testing.T) {
	srv, _, _ := testServer(t)
	router := srv.buildRouter()

	w := doJSON(t, router, http.MethodPut, "/api/v1/outputs/Flux%20Capacitor", `{"on":true}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusNotFound, w.Body.String())
	}
}

func TestAllOutputsOff(t *testing.T) {
	srv, bank, _ := testServer(t)
	router := srv.buildRouter()

	line, _ := bank.Resolve(gpio.MotorRole)
	bank.Set(line, gpio.LevelOn)

	w := doJSON(t, router, http.MethodPost, "/api/v1/outputs/all-off", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	for _, ls := range bank.Snapshot() {
		if ls.Level != gpio.LevelOff {
			t.Errorf("line %q level = %v, want off", ls.Role, ls.Level)
		}
	}
}
