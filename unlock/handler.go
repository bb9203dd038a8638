package unlock

import (
	"net"
	"time"

	hostctl "github.com/devgianlu/go-hostctl"
)

const DefaultTimeout = 30 * time.Second

// Verifier checks credentials, host.Controller is the production one.
type Verifier interface {
	TryLogin(username, password, domain string) error
}

// Result describes a served request.
type Result struct {
	Remote   string
	Username string
	Err      error
}

type Handler struct {
	log      hostctl.Logger
	verifier Verifier
	sealer   *Sealer
	timeout  time.Duration

	// OnResult, if set, is called after every served request.
	OnResult func(Result)
}

// NewHandler returns a handler for the given verifier. sealer may be nil
// to accept plain JSON requests.
func NewHandler(log hostctl.Logger, verifier Verifier, sealer *Sealer) *Handler {
	return &Handler{log: log, verifier: verifier, sealer: sealer, timeout: DefaultTimeout}
}

// ServeConn reads one request from conn, verifies it and writes back the
// outcome. conn is closed on return.
func (h *Handler) ServeConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	remote := "unknown"
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	log := h.log.WithField("remote", remote)
	log.Infof("new unlock connection")

	if h.timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(h.timeout))
	}

	var req Request
	if err := readMessage(conn, h.sealer, adRequest, &req); err != nil {
		log.WithError(err).Warn("failed reading unlock request")
		h.respond(conn, log, Result{Remote: remote, Err: hostctl.ErrParameter})
		return
	}

	res := Result{Remote: remote, Username: req.Username}
	if err := req.validate(); err != nil {
		res.Err = err
	} else {
		res.Err = h.verifier.TryLogin(req.Username, req.Password, req.Domain)
	}

	log = log.WithField("username", hostctl.ObfuscateUsername(req.Username))
	if res.Err != nil {
		log.WithError(res.Err).Info("unlock request rejected")
	} else {
		log.Info("unlock request accepted")
	}

	h.respond(conn, log, res)
}

func (h *Handler) respond(conn net.Conn, log hostctl.Logger, res Result) {
	if err := writeMessage(conn, h.sealer, adResponse, responseFor(res.Err)); err != nil {
		log.WithError(err).Warn("failed writing unlock response")
	}

	if h.OnResult != nil {
		h.OnResult(res)
	}
}
