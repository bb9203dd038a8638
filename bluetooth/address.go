package bluetooth

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

const Network = "bluetooth"

const (
	afBTH          = 32
	bthprotoRFCOMM = 3

	// PortAny asks the stack to pick a free RFCOMM channel (BT_PORT_ANY).
	PortAny = ^uint32(0)

	// sockaddrBthLen is the size of the packed SOCKADDR_BTH structure:
	// family(2) + address(8) + service class GUID(16) + port(4).
	sockaddrBthLen = 30
)

// Addr is an RFCOMM endpoint address.
type Addr struct {
	Device       uint64
	ServiceClass uuid.UUID
	Port         uint32
}

func (a *Addr) Network() string {
	return Network
}

func (a *Addr) String() string {
	d := a.Device
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X/%d",
		byte(d>>40), byte(d>>32), byte(d>>24), byte(d>>16), byte(d>>8), byte(d), a.Port)
}

// marshal encodes a into the packed SOCKADDR_BTH layout.
func (a *Addr) marshal() [sockaddrBthLen]byte {
	var raw [sockaddrBthLen]byte
	binary.LittleEndian.PutUint16(raw[0:2], afBTH)
	binary.LittleEndian.PutUint64(raw[2:10], a.Device)
	guid := guidBytes(a.ServiceClass)
	copy(raw[10:26], guid[:])
	binary.LittleEndian.PutUint32(raw[26:30], a.Port)
	return raw
}

func unmarshalAddr(raw []byte) (*Addr, error) {
	if len(raw) < sockaddrBthLen {
		return nil, fmt.Errorf("short bluetooth address: %d bytes", len(raw))
	} else if family := binary.LittleEndian.Uint16(raw[0:2]); family != afBTH {
		return nil, fmt.Errorf("unexpected address family: %d", family)
	}

	var guid [16]byte
	copy(guid[:], raw[10:26])

	return &Addr{
		Device:       binary.LittleEndian.Uint64(raw[2:10]),
		ServiceClass: uuidFromGuidBytes(guid),
		Port:         binary.LittleEndian.Uint32(raw[26:30]),
	}, nil
}

// guidBytes converts an RFC 4122 UUID into the in-memory GUID layout, whose
// first three fields are little endian.
func guidBytes(u uuid.UUID) [16]byte {
	var g [16]byte
	binary.LittleEndian.PutUint32(g[0:4], binary.BigEndian.Uint32(u[0:4]))
	binary.LittleEndian.PutUint16(g[4:6], binary.BigEndian.Uint16(u[4:6]))
	binary.LittleEndian.PutUint16(g[6:8], binary.BigEndian.Uint16(u[6:8]))
	copy(g[8:], u[8:])
	return g
}

func uuidFromGuidBytes(g [16]byte) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:4], binary.LittleEndian.Uint32(g[0:4]))
	binary.BigEndian.PutUint16(u[4:6], binary.LittleEndian.Uint16(g[4:6]))
	binary.BigEndian.PutUint16(u[6:8], binary.LittleEndian.Uint16(g[6:8]))
	copy(u[8:], g[8:])
	return u
}
