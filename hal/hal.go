package hal

import "context"

// SetupPacket represents a USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// ParseSetupPacket parses raw bytes into a SetupPacket.
// Returns false if data is too short.
func ParseSetupPacket(data []byte, out *SetupPacket) bool {
	if len(data) < SetupPacketSize {
		return false
	}
	out.RequestType = data[0]
	out.Request = data[1]
	out.Value = uint16(data[2]) | uint16(data[3])<<8
	out.Index = uint16(data[4]) | uint16(data[5])<<8
	out.Length = uint16(data[6]) | uint16(data[7])<<8
	return true
}

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	buf[2] = byte(s.Value)
	buf[3] = byte(s.Value >> 8)
	buf[4] = byte(s.Index)
	buf[5] = byte(s.Index >> 8)
	buf[6] = byte(s.Length)
	buf[7] = byte(s.Length >> 8)
	return SetupPacketSize
}

// IsIn returns true if the data phase is device to host.
func (s *SetupPacket) IsIn() bool {
	return s.RequestType&RequestTypeIn != 0
}

// IsClass returns true if this is a class-specific request.
func (s *SetupPacket) IsClass() bool {
	return s.RequestType&0x60 == RequestTypeClass
}

// Recipient returns the request recipient (device, interface, endpoint, other).
func (s *SetupPacket) Recipient() uint8 {
	return s.RequestType & 0x1F
}

// Device is an already-enumerated USB device as seen by a class driver.
//
// The underlying device handle is externally owned: implementations open
// and close it; the driver only configures and exercises it. All methods
// block until the underlying transport completes or errors, honoring
// context cancellation where the transport supports it.
type Device interface {
	// ConfigurationDescriptor returns the raw configuration descriptor
	// byte sequence for the device's active (or only) configuration,
	// including all interface, endpoint, and class-specific descriptors.
	ConfigurationDescriptor(ctx context.Context) ([]byte, error)

	// SetConfiguration selects the configuration with the given value.
	// After it returns, the device operates under that configuration.
	SetConfiguration(ctx context.Context, value uint8) error

	// ControlTransfer performs a control transfer.
	// For OUT transfers, data contains the data to send.
	// For IN transfers, data is filled with received data.
	// Returns the number of bytes transferred in the data phase.
	// A protocol stall is reported as an error matching pkg.ErrStall.
	ControlTransfer(ctx context.Context, setup *SetupPacket, data []byte) (int, error)

	// BulkTransfer performs a bulk transfer to or from an endpoint.
	// The direction is taken from the endpoint address direction bit:
	// for IN endpoints, data is filled with received data; for OUT
	// endpoints, data contains the data to send.
	// Returns the number of bytes transferred.
	BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error)
}
