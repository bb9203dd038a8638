package bluetooth

import (
	"errors"
	"fmt"

	"github.com/devgianlu/go-hostctl/wstr"
	"github.com/google/uuid"
)

const (
	MaxServiceNameLength = 256
	MaxCommentLength     = 256
)

var ErrInvalidDescriptor = errors.New("invalid service descriptor")

// ServiceDescriptor is what gets advertised in the service discovery
// registry for the lifetime of a Listener.
type ServiceDescriptor struct {
	ClassID      uuid.UUID
	InstanceName string
	Comment      string
}

func (d ServiceDescriptor) Validate() error {
	_, err := d.encode()
	return err
}

// registration holds the wide-character form of a descriptor and the bound
// address, both of which must outlive the registry entry.
type registration struct {
	classID uuid.UUID
	name    []uint16
	comment []uint16
	local   *Addr
}

func (d ServiceDescriptor) encode() (*registration, error) {
	if d.ClassID == uuid.Nil {
		return nil, fmt.Errorf("%w: nil service class id", ErrInvalidDescriptor)
	}

	name, err := wstr.Encode(d.InstanceName, MaxServiceNameLength)
	if err != nil {
		return nil, fmt.Errorf("%w: instance name: %w", ErrInvalidDescriptor, err)
	}

	comment, err := wstr.Encode(d.Comment, MaxCommentLength)
	if err != nil {
		return nil, fmt.Errorf("%w: comment: %w", ErrInvalidDescriptor, err)
	}

	return &registration{classID: d.ClassID, name: name, comment: comment}, nil
}
