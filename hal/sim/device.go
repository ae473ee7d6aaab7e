package sim

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/ardnew/usbdisk/hal"
	"github.com/ardnew/usbdisk/msc"
	"github.com/ardnew/usbdisk/pkg"
)

// Bulk endpoint addresses exposed by the simulated device.
const (
	BulkInEndpoint  = 0x81
	BulkOutEndpoint = 0x02
)

// Config holds simulated device construction parameters. The zero value
// is a well-behaved single-LUN device with generic identity strings.
type Config struct {
	Vendor   string // INQUIRY vendor identification (max 8 chars)
	Product  string // INQUIRY product identification (max 16 chars)
	Revision string // INQUIRY product revision (max 4 chars)

	// MaxLUN is the highest LUN number reported by Get Max LUN.
	MaxLUN uint8

	// StallGetMaxLUN makes the device stall the Get Max LUN request,
	// the behavior of devices that do not support it.
	StallGetMaxLUN bool

	// NotReadyCount is the number of TEST UNIT READY probes the device
	// fails with "not ready, becoming ready" before coming up.
	NotReadyCount int

	// Removable sets the removable media bit in INQUIRY data.
	Removable bool
}

// Device is a simulated bulk-only mass storage device.
//
// The bulk state machine mirrors a real device: a CBW on the OUT
// endpoint starts a command, IN transfers drain queued response data
// and then the status wrapper, and WRITE (10) latches until its data
// phase arrives on the OUT endpoint.
type Device struct {
	mu      sync.Mutex
	storage Storage
	cfg     Config

	configured uint8
	notReady   int

	senseKey  uint8
	senseASC  uint8
	senseASCQ uint8

	pending []byte
	csw     [msc.CSWSize]byte

	// WRITE (10) data phase state
	awaiting    int
	writeLBA    uint32
	writeTag    uint32
	writeStatus uint8

	opcodes []uint8
}

// New creates a simulated device over the given storage backend.
func New(storage Storage, cfg Config) *Device {
	if cfg.Vendor == "" {
		cfg.Vendor = "USBDISK"
	}
	if cfg.Product == "" {
		cfg.Product = "SIMULATED DISK"
	}
	if cfg.Revision == "" {
		cfg.Revision = "1.0"
	}
	return &Device{
		storage:  storage,
		cfg:      cfg,
		notReady: cfg.NotReadyCount,
	}
}

func (d *Device) ConfigurationDescriptor(ctx context.Context) ([]byte, error) {
	total := hal.ConfigurationDescriptorSize +
		hal.InterfaceDescriptorSize +
		2*hal.EndpointDescriptorSize
	buf := make([]byte, total)
	n := 0

	conf := hal.ConfigurationDescriptor{
		TotalLength:        uint16(total),
		NumInterfaces:      1,
		ConfigurationValue: 1,
		Attributes:         0x80, // bus powered
		MaxPower:           50,   // 100 mA
	}
	n += conf.MarshalTo(buf[n:])

	iface := hal.InterfaceDescriptor{
		NumEndpoints:      2,
		InterfaceClass:    msc.ClassMSC,
		InterfaceSubClass: msc.SubclassSCSI,
		InterfaceProtocol: msc.ProtocolBulkOnly,
	}
	n += iface.MarshalTo(buf[n:])

	for _, addr := range [2]uint8{BulkInEndpoint, BulkOutEndpoint} {
		ep := hal.EndpointDescriptor{
			EndpointAddress: addr,
			Attributes:      hal.EndpointTypeBulk,
			MaxPacketSize:   512,
		}
		n += ep.MarshalTo(buf[n:])
	}

	return buf[:n], nil
}

func (d *Device) SetConfiguration(ctx context.Context, value uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.configured = value
	return nil
}

func (d *Device) ControlTransfer(ctx context.Context, setup *hal.SetupPacket, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if setup.IsClass() {
		switch setup.Request {
		case msc.RequestGetMaxLUN:
			if d.cfg.StallGetMaxLUN {
				return 0, pkg.ErrStall
			}
			if len(data) < 1 {
				return 0, pkg.ErrBufferTooSmall
			}
			data[0] = d.cfg.MaxLUN
			return 1, nil

		case msc.RequestBulkOnlyMassStorageReset:
			d.pending = nil
			d.awaiting = 0
			d.clearSense()
			return 0, nil
		}
		return 0, pkg.ErrStall
	}

	if setup.Request == hal.RequestClearFeature && setup.Value == hal.FeatureEndpointHalt {
		return 0, nil
	}
	return 0, pkg.ErrStall
}

func (d *Device) BulkTransfer(ctx context.Context, endpoint uint8, data []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if endpoint == BulkInEndpoint {
		if d.pending != nil {
			n := copy(data, d.pending)
			d.pending = nil
			return n, nil
		}
		return copy(data, d.csw[:]), nil
	}

	if endpoint != BulkOutEndpoint {
		return 0, pkg.ErrInvalidEndpoint
	}

	if d.awaiting > 0 {
		return d.writeData(data), nil
	}

	var cbw msc.CommandBlockWrapper
	if !msc.ParseCBW(data, &cbw) {
		return 0, pkg.ErrStall
	}
	d.dispatch(&cbw)
	return len(data), nil
}

// writeData consumes the WRITE (10) data phase and queues the status.
func (d *Device) writeData(data []byte) int {
	if d.writeStatus == msc.CSWStatusGood {
		if err := d.storage.WriteBlocks(uint64(d.writeLBA), data); err != nil {
			d.setSense(msc.SenseMediumError, msc.ASCNoAdditionalInfo, 0)
			d.writeStatus = msc.CSWStatusFailed
		}
	}
	d.queueCSW(d.writeTag, d.writeStatus)
	d.awaiting = 0
	return len(data)
}

func (d *Device) dispatch(cbw *msc.CommandBlockWrapper) {
	op := cbw.CB[0]
	d.opcodes = append(d.opcodes, op)

	pkg.LogDebug(pkg.ComponentSim, "command",
		"opcode", op,
		"tag", cbw.Tag,
		"dataLen", cbw.DataTransferLength)

	status := uint8(msc.CSWStatusGood)

	switch op {
	case msc.SCSITestUnitReady:
		if d.notReady > 0 {
			d.notReady--
			d.setSense(msc.SenseNotReady, msc.ASCLogicalUnitNotReady, 0x01)
			status = msc.CSWStatusFailed
		}

	case msc.SCSIRequestSense:
		d.pending = d.senseData()
		d.clearSense()

	case msc.SCSIInquiry:
		d.pending = d.inquiryData()

	case msc.SCSIReadCapacity10:
		buf := make([]byte, msc.ReadCapacity10Size)
		binary.BigEndian.PutUint32(buf[0:4], uint32(d.storage.BlockCount()-1))
		binary.BigEndian.PutUint32(buf[4:8], d.storage.BlockSize())
		d.pending = buf

	case msc.SCSIRead10:
		lba := binary.BigEndian.Uint32(cbw.CB[2:6])
		count := binary.BigEndian.Uint16(cbw.CB[7:9])
		if uint64(lba)+uint64(count) > d.storage.BlockCount() {
			d.setSense(msc.SenseIllegalRequest, msc.ASCLBAOutOfRange, 0)
			status = msc.CSWStatusFailed
			break
		}
		buf := make([]byte, uint32(count)*d.storage.BlockSize())
		if err := d.storage.ReadBlocks(uint64(lba), buf); err != nil {
			d.setSense(msc.SenseMediumError, msc.ASCNoAdditionalInfo, 0)
			status = msc.CSWStatusFailed
			break
		}
		d.pending = buf

	case msc.SCSIWrite10:
		lba := binary.BigEndian.Uint32(cbw.CB[2:6])
		count := binary.BigEndian.Uint16(cbw.CB[7:9])
		d.writeLBA = lba
		d.writeTag = cbw.Tag
		d.writeStatus = msc.CSWStatusGood
		d.awaiting = int(count) * int(d.storage.BlockSize())
		switch {
		case d.storage.ReadOnly():
			d.setSense(msc.SenseDataProtect, msc.ASCWriteProtected, 0)
			d.writeStatus = msc.CSWStatusFailed
		case uint64(lba)+uint64(count) > d.storage.BlockCount():
			d.setSense(msc.SenseIllegalRequest, msc.ASCLBAOutOfRange, 0)
			d.writeStatus = msc.CSWStatusFailed
		}
		// CSW is queued when the data phase arrives.
		return

	case msc.SCSISynchronizeCache10:
		if err := d.storage.Sync(); err != nil {
			d.setSense(msc.SenseMediumError, msc.ASCNoAdditionalInfo, 0)
			status = msc.CSWStatusFailed
		}

	default:
		d.setSense(msc.SenseIllegalRequest, msc.ASCInvalidCommand, 0)
		status = msc.CSWStatusFailed
	}

	d.queueCSW(cbw.Tag, status)
}

func (d *Device) queueCSW(tag uint32, status uint8) {
	msc.NewCSW(tag, 0, status).MarshalTo(d.csw[:])
}

func (d *Device) setSense(key, asc, ascq uint8) {
	d.senseKey = key
	d.senseASC = asc
	d.senseASCQ = ascq
}

func (d *Device) clearSense() {
	d.setSense(msc.SenseNoSense, msc.ASCNoAdditionalInfo, 0)
}

// senseData builds a fixed-format REQUEST SENSE response from the
// current sense state.
func (d *Device) senseData() []byte {
	buf := make([]byte, msc.SenseResponseSize)
	buf[0] = 0x70 // current errors, fixed format
	buf[2] = d.senseKey & 0x0F
	buf[7] = msc.SenseResponseSize - 8
	buf[12] = d.senseASC
	buf[13] = d.senseASCQ
	return buf
}

// inquiryData builds a standard INQUIRY response.
func (d *Device) inquiryData() []byte {
	buf := make([]byte, msc.InquiryStandardSize)
	buf[0] = 0x00 // direct access block device
	if d.cfg.Removable {
		buf[1] = msc.InquiryRMB
	}
	buf[2] = 0x04 // SPC-2
	buf[3] = 0x02 // response data format
	buf[4] = msc.InquiryStandardSize - 5
	pad(buf[8:16], d.cfg.Vendor)
	pad(buf[16:32], d.cfg.Product)
	pad(buf[32:36], d.cfg.Revision)
	return buf
}

// pad copies s into dst, space-padded or truncated to len(dst).
func pad(dst []byte, s string) {
	for i := range dst {
		if i < len(s) {
			dst[i] = s[i]
		} else {
			dst[i] = ' '
		}
	}
}

// Configured returns the configuration value last selected, or 0.
func (d *Device) Configured() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

// Opcodes returns the SCSI opcodes dispatched so far, in order.
func (d *Device) Opcodes() []uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint8, len(d.opcodes))
	copy(out, d.opcodes)
	return out
}

// CommandCount returns how many times the given opcode was dispatched.
func (d *Device) CommandCount(op uint8) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, o := range d.opcodes {
		if o == op {
			n++
		}
	}
	return n
}
