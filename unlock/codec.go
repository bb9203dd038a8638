package unlock

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

func writeMessage(w io.Writer, sealer *Sealer, ad []byte, v any) error {
	data, err := marshalMessage(v)
	if err != nil {
		return err
	}

	if sealer == nil {
		_, err = w.Write(data)
		return err
	}

	frame, err := sealer.Seal(data, ad)
	if err != nil {
		return err
	}

	buf := make([]byte, 2, 2+len(frame))
	binary.BigEndian.PutUint16(buf, uint16(len(frame)))
	_, err = w.Write(append(buf, frame...))
	return err
}

func readMessage(r io.Reader, sealer *Sealer, ad []byte, v any) error {
	if sealer == nil {
		dec := json.NewDecoder(io.LimitReader(r, MaxMessageSize))
		if err := dec.Decode(v); err != nil {
			return fmt.Errorf("failed decoding message: %w", err)
		}

		return nil
	}

	var size [2]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return fmt.Errorf("failed reading frame size: %w", err)
	}

	n := int(binary.BigEndian.Uint16(size[:]))
	if n > MaxMessageSize+sealer.Overhead() {
		return fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, n)
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return fmt.Errorf("failed reading frame: %w", err)
	}

	data, err := sealer.Open(frame, ad)
	if err != nil {
		return err
	}

	// some clients pad the payload with NULs
	data = bytes.TrimRight(data, "\x00")
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed decoding message: %w", err)
	}

	return nil
}

// WriteRequest sends req as a client would. sealer may be nil.
func WriteRequest(w io.Writer, sealer *Sealer, req Request) error {
	return writeMessage(w, sealer, adRequest, req)
}

// ReadResponse reads the answer to a request sent with WriteRequest.
func ReadResponse(r io.Reader, sealer *Sealer) (Response, error) {
	var resp Response
	if err := readMessage(r, sealer, adResponse, &resp); err != nil {
		return Response{}, err
	}

	return resp, nil
}
