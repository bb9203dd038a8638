package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/devgianlu/go-hostctl/host"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const timeout = 10 * time.Second

type ApiServer struct {
	allowOrigin string
	certFile    string
	keyFile     string
	token       string

	close     atomic.Bool
	closeOnce sync.Once
	done      chan struct{}
	listener net.Listener

	requests chan ApiRequest

	clients     []*websocket.Conn
	clientsLock sync.RWMutex
}

var (
	ErrBadRequest       = errors.New("bad request")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

type ApiRequestType string

const (
	ApiRequestTypeStatus         ApiRequestType = "status"
	ApiRequestTypeShutdown       ApiRequestType = "shutdown"
	ApiRequestTypeShutdownTypes  ApiRequestType = "shutdown_types"
	ApiRequestTypeStandby        ApiRequestType = "standby"
	ApiRequestTypeLock           ApiRequestType = "lock"
	ApiRequestTypeSetPowerSaving ApiRequestType = "set_power_saving"
	ApiRequestTypeLogin          ApiRequestType = "login"
)

type ApiEventType string

const (
	ApiEventTypeBluetoothConnection ApiEventType = "bluetooth_connection"
	ApiEventTypeLogin               ApiEventType = "login"
	ApiEventTypeLock                ApiEventType = "lock"
	ApiEventTypePowerSaving         ApiEventType = "power_saving"
	ApiEventTypeShutdown            ApiEventType = "shutdown"
	ApiEventTypeStandby             ApiEventType = "standby"
)

type ApiRequest struct {
	Type ApiRequestType
	Data any

	resp chan apiResponse
}

func (r *ApiRequest) Reply(data any, err error) {
	r.resp <- apiResponse{data, err}
}

type ApiRequestDataShutdown struct {
	Type host.ShutdownType `json:"type"`
}

type ApiRequestDataPowerSaving struct {
	Enabled bool `json:"enabled"`
}

type ApiRequestDataLogin struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Domain   string `json:"domain"`
}

type apiResponse struct {
	data any
	err  error
}

type ApiResponseStatusBluetooth struct {
	Enabled bool   `json:"enabled"`
	Address string `json:"address,omitempty"`
}

type ApiResponseStatus struct {
	Version       string                     `json:"version"`
	Platform      string                     `json:"platform"`
	Supported     bool                       `json:"supported"`
	RemoteSession bool                       `json:"remote_session"`
	SessionLocked *bool                      `json:"session_locked"`
	PowerSaving   bool                       `json:"power_saving"`
	Bluetooth     ApiResponseStatusBluetooth `json:"bluetooth"`
}

type ApiResponseResult struct {
	Code hostctl.Code `json:"code"`
	Msg  string       `json:"msg"`
}

func NewApiResponseResult(err error) *ApiResponseResult {
	if err == nil {
		return &ApiResponseResult{Code: hostctl.CodeSuccess, Msg: "success"}
	}

	var herr *hostctl.Error
	if errors.As(err, &herr) {
		return &ApiResponseResult{Code: herr.Code, Msg: herr.Msg}
	}

	return &ApiResponseResult{Code: hostctl.CodeUnknown, Msg: err.Error()}
}

type ApiEvent struct {
	Type ApiEventType `json:"type"`
	Data any          `json:"data"`
}

type ApiEventDataBluetoothConnection struct {
	Remote string `json:"remote"`
}

type ApiEventDataLogin struct {
	Source   string       `json:"source"`
	Username string       `json:"username"`
	Code     hostctl.Code `json:"code"`
}

type ApiEventDataPowerSaving struct {
	Enabled bool `json:"enabled"`
}

type ApiEventDataShutdown struct {
	Type host.ShutdownType `json:"type"`
}

func NewApiServer(address string, port int, allowOrigin string, certFile string, keyFile string, token string) (_ *ApiServer, err error) {
	s := &ApiServer{allowOrigin: allowOrigin, certFile: certFile, keyFile: keyFile, token: token}
	s.requests = make(chan ApiRequest)
	s.done = make(chan struct{})

	s.listener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, fmt.Errorf("failed starting api listener: %w", err)
	}

	log.Infof("api server listening on %s", s.listener.Addr())

	go s.serve()
	return s, nil
}

func NewStubApiServer() (*ApiServer, error) {
	s := &ApiServer{}
	s.requests = make(chan ApiRequest)
	s.done = make(chan struct{})
	return s, nil
}

// Port is the TCP port the server listens on, zero for the stub server.
func (s *ApiServer) Port() int {
	if s.listener == nil {
		return 0
	}

	return s.listener.Addr().(*net.TCPAddr).Port
}

func (s *ApiServer) handleRequest(req ApiRequest, w http.ResponseWriter) {
	req.resp = make(chan apiResponse, 1)
	select {
	case s.requests <- req:
	case <-s.done:
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	resp := <-req.resp

	if resp.err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(resp.err, ErrForbidden), errors.Is(resp.err, host.ErrPrivilegeNotHeld):
			status = http.StatusForbidden
		case errors.Is(resp.err, ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(resp.err, ErrMethodNotAllowed):
			status = http.StatusMethodNotAllowed
		case errors.Is(resp.err, ErrBadRequest), errors.Is(resp.err, hostctl.ErrParameter):
			status = http.StatusBadRequest
		case errors.Is(resp.err, hostctl.ErrUnsupportedOS):
			status = http.StatusNotImplemented
		default:
			log.WithError(resp.err).Errorf("failed handling request %s", req.Type)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(NewApiResponseResult(resp.err))
		return
	}

	if resp.data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp.data)
}

// authorized checks the bearer token. The events endpoint also takes it as
// the token query parameter.
func (s *ApiServer) authorized(r *http.Request) bool {
	if len(s.token) == 0 {
		return true
	}

	given, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok && r.URL.Path == "/events" {
		given, ok = r.URL.Query().Get("token"), true
	}

	return ok && subtle.ConstantTimeCompare([]byte(given), []byte(s.token)) == 1
}

func (s *ApiServer) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *ApiServer) handler() http.Handler {
	m := http.NewServeMux()
	m.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))
	})
	m.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		s.handleRequest(ApiRequest{Type: ApiRequestTypeStatus}, w)
	})
	m.HandleFunc("/host/shutdown", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "GET" {
			s.handleRequest(ApiRequest{Type: ApiRequestTypeShutdownTypes}, w)
			return
		} else if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var data ApiRequestDataShutdown
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		typ, err := host.ParseShutdownType(string(data.Type))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.handleRequest(ApiRequest{Type: ApiRequestTypeShutdown, Data: typ}, w)
	})
	m.HandleFunc("/host/standby", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		s.handleRequest(ApiRequest{Type: ApiRequestTypeStandby}, w)
	})
	m.HandleFunc("/host/lock", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		s.handleRequest(ApiRequest{Type: ApiRequestTypeLock}, w)
	})
	m.HandleFunc("/host/power_saving", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var data ApiRequestDataPowerSaving
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.handleRequest(ApiRequest{Type: ApiRequestTypeSetPowerSaving, Data: data.Enabled}, w)
	})
	m.HandleFunc("/host/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var data ApiRequestDataLogin
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		s.handleRequest(ApiRequest{Type: ApiRequestTypeLogin, Data: data}, w)
	})
	m.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		opts := &websocket.AcceptOptions{}
		if len(s.allowOrigin) > 0 {
			allow := s.allowOrigin
			allow = strings.TrimPrefix(allow, "http://")
			allow = strings.TrimPrefix(allow, "https://")
			allow = strings.TrimSuffix(allow, "/")
			opts.OriginPatterns = []string{allow}
		}

		c, err := websocket.Accept(w, r, opts)
		if err != nil {
			log.WithError(err).Error("failed accepting websocket connection")
			return
		}

		// add the client to the list
		s.clientsLock.Lock()
		s.clients = append(s.clients, c)
		s.clientsLock.Unlock()

		log.Debugf("new websocket client")

		for {
			_, _, err := c.Read(context.Background())
			if s.close.Load() {
				return
			} else if err != nil {
				log.WithError(err).Debug("websocket connection closed")

				// remove the client from the list
				s.clientsLock.Lock()
				for i, cc := range s.clients {
					if cc == c {
						s.clients = append(s.clients[:i], s.clients[i+1:]...)
						break
					}
				}
				s.clientsLock.Unlock()
				return
			}
		}
	})

	c := cors.New(cors.Options{
		AllowedOrigins:      []string{s.allowOrigin},
		AllowPrivateNetwork: true,
		AllowCredentials:    true,
	})

	return c.Handler(s.requireToken(m))
}

func (s *ApiServer) serve() {
	var err error
	if len(s.certFile) > 0 && len(s.keyFile) > 0 {
		err = http.ServeTLS(s.listener, s.handler(), s.certFile, s.keyFile)
	} else {
		err = http.Serve(s.listener, s.handler())
	}

	if s.close.Load() {
		return
	} else if err != nil {
		log.WithError(err).Fatal("failed serving api")
	}
}

func (s *ApiServer) Emit(ev *ApiEvent) {
	s.clientsLock.RLock()
	defer s.clientsLock.RUnlock()

	log.Tracef("emitting websocket event: %s", ev.Type)

	for _, client := range s.clients {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		err := wsjson.Write(ctx, client, ev)
		cancel()
		if err != nil {
			// purposely do not propagate this to the caller
			log.WithError(err).Error("failed communicating with websocket client")
		}
	}
}

func (s *ApiServer) Receive() <-chan ApiRequest {
	return s.requests
}

func (s *ApiServer) Close() {
	s.close.Store(true)
	s.closeOnce.Do(func() { close(s.done) })

	// close all websocket clients
	s.clientsLock.RLock()
	for _, client := range s.clients {
		_ = client.Close(websocket.StatusGoingAway, "")
	}
	s.clientsLock.RUnlock()

	if s.listener != nil {
		_ = s.listener.Close()
	}
}
