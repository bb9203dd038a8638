package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/devgianlu/go-hostctl/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startApiServer answers every request with reply.
func startApiServer(t *testing.T, reply func(ApiRequest) (any, error)) (*ApiServer, string, <-chan ApiRequest) {
	t.Helper()
	return startApiServerWithToken(t, "", reply)
}

func startApiServerWithToken(t *testing.T, token string, reply func(ApiRequest) (any, error)) (*ApiServer, string, <-chan ApiRequest) {
	t.Helper()

	s, err := NewApiServer("127.0.0.1", 0, "", "", "", token)
	require.NoError(t, err)

	seen := make(chan ApiRequest, 8)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case req := <-s.Receive():
				seen <- req
				req.Reply(reply(req))
			}
		}
	}()

	t.Cleanup(func() {
		close(done)
		s.Close()
	})

	return s, fmt.Sprintf("http://127.0.0.1:%d", s.Port()), seen
}

func post(t *testing.T, url string, body string) *http.Response {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestApiServerShutdown(t *testing.T) {
	_, base, seen := startApiServer(t, func(ApiRequest) (any, error) { return nil, nil })

	resp := post(t, base+"/host/shutdown", `{"type":"force_reboot"}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	req := <-seen
	assert.Equal(t, ApiRequestTypeShutdown, req.Type)
	assert.Equal(t, host.ShutdownForceReboot, req.Data)

	resp = post(t, base+"/host/shutdown", `{"type":"explode"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = post(t, base+"/host/shutdown", `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestApiServerMethodNotAllowed(t *testing.T) {
	_, base, _ := startApiServer(t, func(ApiRequest) (any, error) { return nil, nil })

	resp, err := http.Get(base + "/host/lock")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp = post(t, base+"/status", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestApiServerStatus(t *testing.T) {
	_, base, _ := startApiServer(t, func(ApiRequest) (any, error) {
		return &ApiResponseStatus{Version: "1.2.3", PowerSaving: true}, nil
	})

	resp, err := http.Get(base + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status ApiResponseStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "1.2.3", status.Version)
	assert.True(t, status.PowerSaving)
}

func TestApiServerErrors(t *testing.T) {
	errs := map[string]error{
		"/host/lock":    hostctl.ErrUnsupportedOS,
		"/host/standby": host.ErrPrivilegeNotHeld,
	}

	_, base, _ := startApiServer(t, func(req ApiRequest) (any, error) {
		switch req.Type {
		case ApiRequestTypeLock:
			return nil, errs["/host/lock"]
		default:
			return nil, errs["/host/standby"]
		}
	})

	resp := post(t, base+"/host/lock", "")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)

	var result ApiResponseResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, hostctl.CodeUnsupportedOS, result.Code)

	resp = post(t, base+"/host/standby", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestApiServerPowerSavingAndLogin(t *testing.T) {
	_, base, seen := startApiServer(t, func(req ApiRequest) (any, error) {
		if req.Type == ApiRequestTypeLogin {
			return NewApiResponseResult(hostctl.ErrLogonFailure), nil
		}

		return nil, nil
	})

	resp := post(t, base+"/host/power_saving", `{"enabled":true}`)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, true, (<-seen).Data)

	resp = post(t, base+"/host/login", `{"username":"alice","password":"pw","domain":"HOME"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ApiRequestDataLogin{Username: "alice", Password: "pw", Domain: "HOME"}, (<-seen).Data)

	var result ApiResponseResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, hostctl.CodeLogonFailure, result.Code)
}

func TestApiServerRequiresToken(t *testing.T) {
	_, base, seen := startApiServerWithToken(t, "t0ken", func(ApiRequest) (any, error) { return nil, nil })

	resp := post(t, base+"/host/shutdown", `{"type":"force_reboot"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))

	req, err := http.NewRequest("POST", base+"/host/lock", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// the query parameter is only honoured on the events endpoint
	resp = post(t, base+"/host/lock?token=t0ken", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, seen)

	req, err = http.NewRequest("POST", base+"/host/lock", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer t0ken")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, ApiRequestTypeLock, (<-seen).Type)
}

func TestApiServerEventsTokenQuery(t *testing.T) {
	s := &ApiServer{token: "t0ken"}

	r := httptest.NewRequest("GET", "/events?token=t0ken", nil)
	assert.True(t, s.authorized(r))

	r = httptest.NewRequest("GET", "/events?token=nope", nil)
	assert.False(t, s.authorized(r))

	r = httptest.NewRequest("GET", "/status?token=t0ken", nil)
	assert.False(t, s.authorized(r))
}

func TestApiServerClosedRejectsRequests(t *testing.T) {
	s, err := NewStubApiServer()
	require.NoError(t, err)

	s.Close()
	s.Close()

	rec := httptest.NewRecorder()
	s.handleRequest(ApiRequest{Type: ApiRequestTypeLock}, rec)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
