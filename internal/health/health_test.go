// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChecker struct {
	name   string
	result CheckResult
}

func (s stubChecker) Name() string                      { return s.name }
func (s stubChecker) Check(context.Context) CheckResult { return s.result }

func TestHealthAlwaysHealthyWithoutVerbose(t *testing.T) {
	m := NewManager("1.2.3")
	m.RegisterChecker(stubChecker{name: "hub", result: CheckResult{Status: StatusUnhealthy, Error: "down"}})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Nil(t, resp.Checks)
}

func TestHealthVerboseAggregatesCheckers(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(stubChecker{name: "hub", result: CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(stubChecker{name: "poller", result: CheckResult{Status: StatusDegraded, Message: "stale"}})

	resp := m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	require.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["poller"].Status)
}

func TestReadyFailsOnUnhealthyChecker(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(stubChecker{name: "hub", result: CheckResult{Status: StatusHealthy}})
	m.RegisterChecker(stubChecker{name: "manifests", result: CheckResult{Status: StatusUnhealthy, Error: "missing"}})

	resp := m.Ready(context.Background())
	assert.False(t, resp.Ready)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestReadyDegradedIsStillReady(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(stubChecker{name: "poller", result: CheckResult{Status: StatusDegraded}})

	resp := m.Ready(context.Background())
	assert.True(t, resp.Ready)
	assert.Equal(t, StatusDegraded, resp.Status)
}

func TestServeHealthAlwaysReturns200(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(stubChecker{name: "hub", result: CheckResult{Status: StatusUnhealthy}})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest("GET", "/healthz?verbose=true", nil))

	assert.Equal(t, 200, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, StatusUnhealthy, resp.Checks["hub"].Status)
}

func TestServeReadyReturns503WhenNotReady(t *testing.T) {
	m := NewManager("dev")
	m.RegisterChecker(stubChecker{name: "hub", result: CheckResult{Status: StatusUnhealthy}})

	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, 503, rec.Code)

	m2 := NewManager("dev")
	rec2 := httptest.NewRecorder()
	m2.ServeReady(rec2, httptest.NewRequest("GET", "/readyz", nil))
	assert.Equal(t, 200, rec2.Code)
}

func TestLastPollChecker(t *testing.T) {
	var last time.Time
	c := NewLastPollChecker(func() time.Time { return last }, time.Minute)

	assert.Equal(t, StatusUnhealthy, c.Check(context.Background()).Status)

	last = time.Now()
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	last = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, StatusDegraded, c.Check(context.Background()).Status)
}

func TestDirChecker(t *testing.T) {
	dir := t.TempDir()
	c := NewDirChecker("manifests", dir)
	assert.Equal(t, StatusHealthy, c.Check(context.Background()).Status)

	missing := NewDirChecker("manifests", filepath.Join(dir, "nope"))
	assert.Equal(t, StatusUnhealthy, missing.Check(context.Background()).Status)

	file := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	notDir := NewDirChecker("manifests", file)
	assert.Equal(t, StatusUnhealthy, notDir.Check(context.Background()).Status)
}
