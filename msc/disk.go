package msc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ardnew/usbdisk/hal"
	"github.com/ardnew/usbdisk/pkg"
)

// Driver errors.
var (
	// ErrDeviceNotReady indicates the readiness retry budget was
	// exhausted without the device reporting ready.
	ErrDeviceNotReady = errors.New("device not ready")

	// ErrCommandFailed indicates the device returned a status wrapper
	// with an invalid signature, mismatched tag, or failure status.
	ErrCommandFailed = errors.New("command failed")
)

// Default readiness polling parameters.
const (
	DefaultReadyAttempts = 100                    // Recovery attempts before giving up
	DefaultReadyInterval = 100 * time.Millisecond // Pause between attempts
)

// Config holds optional Disk construction parameters.
// The zero value of each field selects its default.
type Config struct {
	// LUN is the logical unit to address (default 0). It must not
	// exceed the device's reported max LUN; this is assumed, not
	// enforced.
	LUN uint8

	// ReadyAttempts bounds the number of sense-drain/retry cycles the
	// readiness loop performs after the initial probe (default 100).
	ReadyAttempts int

	// ReadyInterval is the pause between readiness attempts
	// (default 100ms).
	ReadyInterval time.Duration
}

// Disk is a logical block device backed by a USB mass storage device.
//
// A Disk owns its CBW/CSW buffers and reuses them for every command, and
// BOT itself forbids more than one outstanding command per device, so all
// operations on a Disk must be externally serialized. The underlying
// hal.Device handle is externally owned; the Disk configures and
// exercises it but never opens or closes it.
type Disk struct {
	dev hal.Device

	scan   ScanResult
	lun    uint8
	maxLUN uint8
	tag    uint32

	// Command buffers, reused for every exchange
	cbwBuf [CBWSize]byte
	cswBuf [CSWSize]byte
	csw    CommandStatusWrapper

	inquiry InquiryData

	capacity     Capacity
	haveCapacity bool

	readyAttempts int
	readyInterval time.Duration
}

// Open configures the given device as a mass storage block device.
//
// It scans the configuration descriptor for the mass storage interface
// and its bulk endpoints, selects that configuration, queries the max
// LUN (treating a stall as "only LUN 0"), confirms the device answers
// with an INQUIRY, and waits for the media to report ready.
//
// cfg may be nil to accept all defaults. Open either returns a ready,
// addressable Disk or an error; there is no partially constructed state.
func Open(ctx context.Context, dev hal.Device, cfg *Config) (*Disk, error) {
	d := &Disk{
		dev:           dev,
		tag:           1,
		readyAttempts: DefaultReadyAttempts,
		readyInterval: DefaultReadyInterval,
	}
	if cfg != nil {
		d.lun = cfg.LUN
		if cfg.ReadyAttempts > 0 {
			d.readyAttempts = cfg.ReadyAttempts
		}
		if cfg.ReadyInterval > 0 {
			d.readyInterval = cfg.ReadyInterval
		}
	}

	desc, err := dev.ConfigurationDescriptor(ctx)
	if err != nil {
		return nil, err
	}
	if err := ScanConfiguration(desc, &d.scan); err != nil {
		return nil, err
	}

	if err := dev.SetConfiguration(ctx, d.scan.ConfigurationValue); err != nil {
		return nil, err
	}

	if err := d.getMaxLUN(ctx); err != nil {
		return nil, err
	}
	if d.lun > d.maxLUN {
		pkg.LogWarn(pkg.ComponentDisk, "LUN exceeds device max LUN",
			"lun", d.lun,
			"maxLUN", d.maxLUN)
	}

	if err := d.inquire(ctx); err != nil {
		return nil, err
	}

	if err := d.waitReady(ctx); err != nil {
		return nil, err
	}

	pkg.LogInfo(pkg.ComponentDisk, "disk ready",
		"vendor", d.inquiry.VendorID,
		"product", d.inquiry.ProductID,
		"lun", d.lun)

	return d, nil
}

// getMaxLUN issues the class-specific Get Max LUN request. A protocol
// stall is the documented "not supported" signal and means the device
// has exactly one logical unit, number 0.
func (d *Disk) getMaxLUN(ctx context.Context) error {
	setup := hal.SetupPacket{
		RequestType: hal.RequestTypeIn | hal.RequestTypeClass | hal.RequestTypeInterface,
		Request:     RequestGetMaxLUN,
		Value:       0,
		Index:       uint16(d.scan.InterfaceNumber),
		Length:      1,
	}

	var buf [1]byte
	n, err := d.dev.ControlTransfer(ctx, &setup, buf[:])
	switch {
	case errors.Is(err, pkg.ErrStall):
		d.maxLUN = 0
	case err != nil:
		return err
	case n < 1:
		d.maxLUN = 0
	default:
		d.maxLUN = buf[0]
	}

	pkg.LogDebug(pkg.ComponentDisk, "max LUN", "maxLUN", d.maxLUN)
	return nil
}

// command executes one three-phase BOT exchange: CBW out, optional data
// phase, then exactly CSWSize bytes of status in. The parsed status
// wrapper is left in d.csw without being judged; callers that need
// pass/fail semantics inspect it (or use execute).
//
// Mutates the shared command buffers; not safe for concurrent use. Any
// transport-level I/O error propagates unretried, since BOT offers no
// mid-command recovery.
func (d *Disk) command(ctx context.Context, direction uint8, cdb []byte, data []byte) error {
	if len(cdb) == 0 || len(cdb) > CBWCBLengthMax {
		return pkg.ErrInvalidRequest
	}

	cbw := CommandBlockWrapper{
		Signature:          CBWSignature,
		Tag:                d.tag,
		DataTransferLength: uint32(len(data)),
		Flags:              direction,
		LUN:                d.lun,
		CBLength:           uint8(len(cdb)),
	}
	copy(cbw.CB[:], cdb)
	cbw.MarshalTo(d.cbwBuf[:])

	pkg.LogDebug(pkg.ComponentTransport, "CBW",
		"opcode", cdb[0],
		"dataLen", len(data),
		"flags", direction)

	if _, err := d.dev.BulkTransfer(ctx, d.scan.OutEndpoint, d.cbwBuf[:]); err != nil {
		return err
	}

	if len(data) > 0 {
		ep := d.scan.OutEndpoint
		if direction == CBWFlagDataIn {
			ep = d.scan.InEndpoint
		}
		if _, err := d.dev.BulkTransfer(ctx, ep, data); err != nil {
			return err
		}
	}

	if _, err := d.dev.BulkTransfer(ctx, d.scan.InEndpoint, d.cswBuf[:]); err != nil {
		return err
	}
	ParseCSW(d.cswBuf[:], &d.csw)

	pkg.LogDebug(pkg.ComponentTransport, "CSW",
		"status", d.csw.Status,
		"residue", d.csw.DataResidue)

	return nil
}

// execute runs command and validates the returned status wrapper.
func (d *Disk) execute(ctx context.Context, direction uint8, cdb []byte, data []byte) error {
	if err := d.command(ctx, direction, cdb, data); err != nil {
		return err
	}
	if !d.csw.Ok(d.tag) {
		return fmt.Errorf("%w: opcode 0x%02X, status %d",
			ErrCommandFailed, cdb[0], d.csw.Status)
	}
	return nil
}

// inquire issues a standard INQUIRY and retains the decoded response.
func (d *Disk) inquire(ctx context.Context) error {
	var buf [InquiryStandardSize]byte
	cdb := InquiryCDB(InquiryStandardSize)
	if err := d.execute(ctx, CBWFlagDataIn, cdb[:], buf[:]); err != nil {
		return err
	}
	ParseInquiry(buf[:], &d.inquiry)
	return nil
}

// readCapacity issues READ CAPACITY (10) and caches the result for the
// lifetime of the Disk.
func (d *Disk) readCapacity(ctx context.Context) error {
	var buf [ReadCapacity10Size]byte
	cdb := ReadCapacity10CDB()
	if err := d.execute(ctx, CBWFlagDataIn, cdb[:], buf[:]); err != nil {
		return err
	}
	if !ParseReadCapacity10(buf[:], &d.capacity) {
		return pkg.ErrBufferTooSmall
	}
	d.haveCapacity = true

	pkg.LogDebug(pkg.ComponentDisk, "capacity",
		"sectors", d.capacity.SectorCount,
		"blockSize", d.capacity.BlockSize)

	return nil
}

// ReadBlocks reads blocks starting at block into buf.
//
// len(buf) must be a multiple of BlockSizeBytes; a remainder is
// silently truncated by integer division. This is a documented
// precondition, not a runtime-checked invariant.
func (d *Disk) ReadBlocks(ctx context.Context, block uint32, buf []byte) error {
	cdb := Read10CDB(d.lun, block, uint16(len(buf)/BlockSizeBytes))
	return d.execute(ctx, CBWFlagDataIn, cdb[:], buf)
}

// WriteBlocks writes blocks from buf starting at block.
//
// len(buf) must be a multiple of BlockSizeBytes; a remainder is
// silently truncated by integer division. This is a documented
// precondition, not a runtime-checked invariant.
func (d *Disk) WriteBlocks(ctx context.Context, block uint32, buf []byte) error {
	cdb := Write10CDB(d.lun, block, uint16(len(buf)/BlockSizeBytes))
	return d.execute(ctx, CBWFlagDataOut, cdb[:], buf)
}

// Flush asks the device to commit its cached writes to media via
// SYNCHRONIZE CACHE (10).
func (d *Disk) Flush(ctx context.Context) error {
	cdb := SynchronizeCache10CDB()
	return d.execute(ctx, CBWFlagDataOut, cdb[:], nil)
}

// Capacity returns the device geometry, fetching it via
// READ CAPACITY (10) on first use and caching it thereafter. The cache
// is never invalidated; a media change requires reopening the Disk.
func (d *Disk) Capacity(ctx context.Context) (Capacity, error) {
	if !d.haveCapacity {
		if err := d.readCapacity(ctx); err != nil {
			return Capacity{}, err
		}
	}
	return d.capacity, nil
}

// BlockCount returns the total number of logical blocks.
func (d *Disk) BlockCount(ctx context.Context) (uint64, error) {
	geo, err := d.Capacity(ctx)
	if err != nil {
		return 0, err
	}
	return geo.SectorCount, nil
}

// BlockSize returns the device's block length in bytes.
func (d *Disk) BlockSize(ctx context.Context) (uint32, error) {
	geo, err := d.Capacity(ctx)
	if err != nil {
		return 0, err
	}
	return geo.BlockSize, nil
}

// Ioctl performs a block-device control operation. Operation
// IoctlBlockCount returns the total block count; any other operation
// fails with pkg.ErrNotSupported. The argument is accepted for
// interface compatibility and ignored.
func (d *Disk) Ioctl(ctx context.Context, op int, arg int) (int64, error) {
	_ = arg
	switch op {
	case IoctlBlockCount:
		count, err := d.BlockCount(ctx)
		if err != nil {
			return 0, err
		}
		return int64(count), nil
	default:
		return 0, pkg.ErrNotSupported
	}
}

// Reset issues the class-specific Bulk-Only Mass Storage Reset request
// and clears the halt condition on both bulk endpoints. It is never
// called automatically; callers that own error policy may use it to
// return a wedged device to a known state.
func (d *Disk) Reset(ctx context.Context) error {
	setup := hal.SetupPacket{
		RequestType: hal.RequestTypeOut | hal.RequestTypeClass | hal.RequestTypeInterface,
		Request:     RequestBulkOnlyMassStorageReset,
		Value:       0,
		Index:       uint16(d.scan.InterfaceNumber),
		Length:      0,
	}
	if _, err := d.dev.ControlTransfer(ctx, &setup, nil); err != nil {
		return err
	}

	for _, ep := range [2]uint8{d.scan.InEndpoint, d.scan.OutEndpoint} {
		clear := hal.SetupPacket{
			RequestType: hal.RequestTypeOut | hal.RequestTypeStandard | hal.RequestTypeEndpoint,
			Request:     hal.RequestClearFeature,
			Value:       hal.FeatureEndpointHalt,
			Index:       uint16(ep),
			Length:      0,
		}
		if _, err := d.dev.ControlTransfer(ctx, &clear, nil); err != nil {
			return err
		}
	}
	return nil
}

// Inquiry returns the decoded INQUIRY data captured at construction.
func (d *Disk) Inquiry() InquiryData {
	return d.inquiry
}

// LUN returns the logical unit this Disk addresses.
func (d *Disk) LUN() uint8 {
	return d.lun
}

// MaxLUN returns the highest logical unit number the device reported,
// or 0 if the device stalled the Get Max LUN request.
func (d *Disk) MaxLUN() uint8 {
	return d.maxLUN
}

// Endpoints returns the discovered bulk IN and OUT endpoint addresses.
func (d *Disk) Endpoints() (in, out uint8) {
	return d.scan.InEndpoint, d.scan.OutEndpoint
}
