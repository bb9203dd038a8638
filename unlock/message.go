// Package unlock serves credential verification requests sent by a paired
// device over an RFCOMM connection.
//
// A plain request is a single JSON object. When a shared secret is
// configured every message travels as a sealed frame instead: a big-endian
// uint16 length followed by nonce and ChaCha20-Poly1305 ciphertext of the
// JSON object.
package unlock

import (
	"encoding/json"
	"errors"
	"fmt"

	hostctl "github.com/devgianlu/go-hostctl"
)

// MaxMessageSize bounds the JSON body of every message.
const MaxMessageSize = 4 * 1024

var ErrMessageTooLarge = errors.New("message too large")

type Request struct {
	Username string `json:"username"`
	Password string `json:"passwd"`
	Domain   string `json:"domain,omitempty"`
}

func (r *Request) validate() error {
	if len(r.Username) == 0 || len(r.Password) == 0 {
		return hostctl.ErrCredentialsEmpty
	}

	return nil
}

type Response struct {
	Code hostctl.Code `json:"code"`
	Msg  string       `json:"msg"`
}

func responseFor(err error) Response {
	if err == nil {
		return Response{Code: hostctl.CodeSuccess, Msg: "success"}
	}

	var herr *hostctl.Error
	if errors.As(err, &herr) {
		return Response{Code: herr.Code, Msg: herr.Msg}
	}

	return Response{Code: hostctl.CodeUnknown, Msg: hostctl.ErrUnknown.Msg}
}

// Err returns the taxonomy error carried by the response.
func (r Response) Err() error {
	if e := hostctl.ErrorByCode(r.Code); e != nil {
		return e
	}

	return nil
}

func marshalMessage(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(data))
	}

	return data, nil
}
