package bluetooth

import (
	"errors"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	hostctl "github.com/devgianlu/go-hostctl"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testServiceClass = uuid.MustParse("4e5877c0-8297-4aae-b7bd-73a8cbc1edaf")

type ListenerSuite struct {
	suite.Suite

	api  *fakeAPI
	desc ServiceDescriptor
}

func (suite *ListenerSuite) SetupTest() {
	suite.api = newFakeAPI()
	suite.desc = ServiceDescriptor{
		ClassID:      testServiceClass,
		InstanceName: "Remote Unlock Service",
		Comment:      "Remote Unlock Service",
	}
}

func (suite *ListenerSuite) listen() *Listener {
	l, err := listen(&hostctl.NullLogger{}, suite.api, suite.desc)
	suite.Require().NoError(err)
	suite.T().Cleanup(func() { _ = l.Close() })
	return l
}

func (suite *ListenerSuite) TestListenSequence() {
	l := suite.listen()

	suite.Equal([]string{"startup", "socket", "bind", "getsockname", "register", "listen"}, suite.api.Calls())
	suite.Contains(suite.api.registered, testServiceClass.String())

	addr := l.Addr().(*Addr)
	suite.Equal(uint32(5), addr.Port)
	suite.Equal(testServiceClass, addr.ServiceClass)
	suite.Equal(Network, addr.Network())
	suite.Equal("00:11:22:33:44:55/5", addr.String())
}

func (suite *ListenerSuite) TestListenRollsBackInReverseOrder() {
	tests := map[string][]string{
		"startup":     {"startup"},
		"socket":      {"startup", "socket", "cleanup"},
		"bind":        {"startup", "socket", "bind", "closesocket", "cleanup"},
		"getsockname": {"startup", "socket", "bind", "getsockname", "closesocket", "cleanup"},
		"register":    {"startup", "socket", "bind", "getsockname", "register", "closesocket", "cleanup"},
		"listen":      {"startup", "socket", "bind", "getsockname", "register", "listen", "deregister", "closesocket", "cleanup"},
	}

	for failing, calls := range tests {
		suite.Run(failing, func() {
			api := newFakeAPI()
			api.failOn = failing

			l, err := listen(&hostctl.NullLogger{}, api, suite.desc)
			suite.Nil(l)

			var setupErr *SetupError
			suite.Require().ErrorAs(err, &setupErr)
			suite.Equal(failing, setupErr.Step)
			suite.ErrorIs(err, hostctl.ErrBluetoothInit)

			suite.Equal(calls, api.Calls())
			suite.Zero(api.OpenHandles())
			suite.Zero(api.started)
			suite.Empty(api.registered)
		})
	}
}

func (suite *ListenerSuite) TestListenRejectsInvalidDescriptor() {
	tests := map[string]ServiceDescriptor{
		"nil class":      {InstanceName: "name", Comment: "comment"},
		"empty name":     {ClassID: testServiceClass, Comment: "comment"},
		"empty comment":  {ClassID: testServiceClass, InstanceName: "name"},
		"long name":      {ClassID: testServiceClass, InstanceName: strings.Repeat("n", MaxServiceNameLength+1), Comment: "comment"},
		"long comment":   {ClassID: testServiceClass, InstanceName: "name", Comment: strings.Repeat("c", MaxCommentLength+1)},
		"nul in comment": {ClassID: testServiceClass, InstanceName: "name", Comment: "com\x00ment"},
	}

	for name, desc := range tests {
		suite.Run(name, func() {
			api := newFakeAPI()

			_, err := listen(&hostctl.NullLogger{}, api, desc)
			suite.ErrorIs(err, ErrInvalidDescriptor)
			suite.Empty(api.Calls())
		})
	}
}

func (suite *ListenerSuite) TestAcceptAndExchange() {
	l := suite.listen()

	suite.api.incoming <- 500
	suite.api.data[500] = []byte("hello")

	conn, err := l.Accept()
	suite.Require().NoError(err)
	suite.Equal(Handle(500), conn.(*Conn).Handle())
	suite.Equal("AA:BB:CC:DD:EE:FF/5", conn.RemoteAddr().String())

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	suite.Require().NoError(err)
	suite.Equal("hello", string(buf[:n]))

	_, err = conn.Read(buf)
	suite.ErrorIs(err, io.EOF)

	n, err = conn.Write([]byte("response"))
	suite.Require().NoError(err)
	suite.Equal(8, n)
	suite.Equal("response", string(suite.api.sent[500]))

	suite.Require().NoError(conn.Close())
	suite.Require().NoError(conn.Close())

	_, err = conn.Read(buf)
	suite.ErrorIs(err, net.ErrClosed)
}

func (suite *ListenerSuite) TestReadDeadline() {
	l := suite.listen()
	suite.api.incoming <- 501

	conn, err := l.Accept()
	suite.Require().NoError(err)
	defer func() { _ = conn.Close() }()

	suite.Require().NoError(conn.SetDeadline(time.Now().Add(-time.Second)))
	suite.Equal([2]time.Duration{time.Millisecond, time.Millisecond}, suite.api.timeouts[501])

	_, err = conn.Read(make([]byte, 4))
	suite.ErrorIs(err, os.ErrDeadlineExceeded)

	suite.Require().NoError(conn.SetReadDeadline(time.Time{}))
	suite.Zero(suite.api.timeouts[501][timeoutRecv])
}

func (suite *ListenerSuite) TestCloseUnblocksAccept() {
	l, err := listen(&hostctl.NullLogger{}, suite.api, suite.desc)
	suite.Require().NoError(err)

	done := make(chan error)
	go func() {
		_, err := l.Accept()
		done <- err
	}()

	suite.Require().NoError(l.Close())

	select {
	case err := <-done:
		suite.ErrorIs(err, net.ErrClosed)
	case <-time.After(5 * time.Second):
		suite.FailNow("accept did not return after close")
	}

	calls := suite.api.Calls()
	suite.Equal([]string{"deregister", "closesocket", "cleanup"}, calls[len(calls)-3:])
	suite.Zero(suite.api.OpenHandles())
	suite.Empty(suite.api.registered)

	// closing again is a no-op
	suite.Require().NoError(l.Close())
	suite.Len(suite.api.Calls(), len(calls))

	_, err = l.Accept()
	suite.ErrorIs(err, net.ErrClosed)
}

func (suite *ListenerSuite) TestAcceptError() {
	l := suite.listen()

	suite.api.mu.Lock()
	close(suite.api.closing[l.sock])
	suite.api.closing[l.sock] = make(chan struct{})
	suite.api.mu.Unlock()

	_, err := l.Accept()

	var opErr *net.OpError
	suite.Require().ErrorAs(err, &opErr)
	suite.Equal("accept", opErr.Op)
	suite.True(errors.Is(err, errFakeClosed))
}

func TestListenerSuite(t *testing.T) {
	suite.Run(t, new(ListenerSuite))
}
