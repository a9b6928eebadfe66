// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/Thermoquad/gantry/pkg/motion"
	"github.com/Thermoquad/gantry/pkg/stepper"
	"github.com/Thermoquad/gantry/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoExchanger answers each frame with "OK<payload>\r\n", or with errs[payload].
type echoExchanger struct {
	mu       sync.Mutex
	payloads []string
	errs     map[string]error
}

func (e *echoExchanger) Exchange(ctx context.Context, channel string, frame stepper.Frame, opts ...transport.Option) (*stepper.Response, error) {
	payload, _ := frame.Payload()
	e.mu.Lock()
	e.payloads = append(e.payloads, payload)
	e.mu.Unlock()

	resp := &stepper.Response{Channel: channel, Sent: frame}
	if err := e.errs[payload]; err != nil {
		resp.Outcome = stepper.OutcomeTimeout
		return resp, err
	}
	resp.Data = []byte("OK" + payload + "\r\n")
	resp.Outcome = stepper.OutcomeComplete
	return resp, nil
}

func newTestServer(t *testing.T, ex motion.Exchanger) *httptest.Server {
	t.Helper()
	table := stepper.DefaultAxisTable().WithChannels(map[stepper.Axis]string{
		stepper.AxisX: "COM3",
		stepper.AxisY: "COM3",
		stepper.AxisZ: "COM4",
	})
	ctrl := motion.NewController(stepper.NewBuilder(table), ex)
	srv := httptest.NewServer(NewServer(ctrl, Version{Version: "test", BuildDate: "today"}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp, raw
}

func TestServer_Version(t *testing.T) {
	srv := newTestServer(t, &echoExchanger{})

	resp, body := do(t, srv, "GET", "/version", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"version":"test","build_date":"today"}`, string(body))
}

func TestServer_AxisEndpoints(t *testing.T) {
	ex := &echoExchanger{}
	srv := newTestServer(t, ex)

	tests := []struct {
		method, path, body string
		command            string
	}{
		{"GET", "/axes/x/position", "", "RDP2"},
		{"POST", "/axes/X/move", `{"speed":4,"position":500}`, "APS2/4/500/0"},
		{"POST", "/axes/y/move", `{"position":10}`, "APS1/4/10/0"},
		{"POST", "/axes/z/origin", "", "ORG1/4/0"},
		{"POST", "/axes/z/origin-mode", "", "WSY1/2/4"},
		{"GET", "/axes/y/settings/66", "", "RSY1/66"},
		{"PUT", "/axes/y/settings/9", `{"value":3}`, "WSY1/9/3"},
		{"PUT", "/axes/x/microstep", `{"value":16}`, "WSY2/66/16"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

			var res Result
			require.NoError(t, json.Unmarshal(body, &res))
			assert.Equal(t, tt.command, res.Command)
			assert.Equal(t, "OK"+tt.command, res.Response)
			assert.Equal(t, "COMPLETE", res.Outcome)
			assert.Empty(t, res.Error)
		})
	}
}

func TestServer_Errors(t *testing.T) {
	ex := &echoExchanger{errs: map[string]error{
		"RDP1": stepper.ErrTimeout,
		"RSY2/5": &stepper.TransportError{Channel: "COM3", Op: "read", Err: assert.AnError},
	}}
	srv := newTestServer(t, ex)

	tests := []struct {
		name, method, path, body string
		status                   int
	}{
		{"unknown axis", "GET", "/axes/w/position", "", http.StatusNotFound},
		{"out of bounds", "POST", "/axes/x/move", `{"speed":4,"position":1001}`, http.StatusBadRequest},
		{"missing position", "POST", "/axes/x/move", `{"speed":4}`, http.StatusBadRequest},
		{"bad json", "PUT", "/axes/x/microstep", `{`, http.StatusBadRequest},
		{"missing value", "PUT", "/axes/x/microstep", `{}`, http.StatusBadRequest},
		{"timeout", "GET", "/axes/y/position", "", http.StatusGatewayTimeout},
		{"transport", "GET", "/axes/x/settings/5", "", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, string(body))

			var res Result
			require.NoError(t, json.Unmarshal(body, &res))
			assert.NotEmpty(t, res.Error)
		})
	}

	// rejected requests never reach the exchanger
	assert.ElementsMatch(t, []string{"RDP1", "RSY2/5"}, ex.payloads)
}

func TestServer_ChannelUnavailable(t *testing.T) {
	ctrl := motion.NewController(stepper.NewBuilder(stepper.DefaultAxisTable()), &echoExchanger{})
	srv := httptest.NewServer(NewServer(ctrl, Version{}))
	defer srv.Close()

	resp, _ := do(t, srv, "GET", "/axes/x/position", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_Broadcasts(t *testing.T) {
	ex := &echoExchanger{}
	srv := newTestServer(t, ex)

	resp, body := do(t, srv, "POST", "/reset", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []Result
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 2)
	assert.Equal(t, "COM3", results[0].Channel)
	assert.Equal(t, "COM4", results[1].Channel)

	resp, body = do(t, srv, "POST", "/home?speed=8", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 3)
	assert.Equal(t, []string{"X", "Y", "Z"}, []string{results[0].Axis, results[1].Axis, results[2].Axis})
	assert.Equal(t, "APS2/8/0/0", results[0].Command)

	resp, _ = do(t, srv, "POST", "/home?speed=fast", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_BroadcastPartialFailure(t *testing.T) {
	ex := &echoExchanger{errs: map[string]error{"APS1/4/0/0": stepper.ErrTimeout}}
	srv := newTestServer(t, ex)

	resp, body := do(t, srv, "POST", "/home", "")
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	var results []Result
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 3)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
}

func TestServer_StatsAndAxes(t *testing.T) {
	srv := newTestServer(t, &echoExchanger{})

	do(t, srv, "GET", "/axes/x/position", "")
	do(t, srv, "POST", "/axes/x/move", `{"position":5000}`)

	resp, body := do(t, srv, "GET", "/stats", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var snap stepper.StatisticsSnapshot
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Equal(t, uint64(1), snap.Completed)
	assert.Equal(t, uint64(1), snap.CallerErrors)

	resp, body = do(t, srv, "GET", "/axes", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var axes []map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &axes))
	require.Len(t, axes, 3)
	assert.Equal(t, "X", axes[0]["axis"])
	assert.Equal(t, "COM4", axes[2]["channel"])
	assert.EqualValues(t, 1000, axes[0]["max"])
}
