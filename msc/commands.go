package msc

import (
	"encoding/binary"
	"strings"
)

// TestUnitReadyCDB builds a TEST UNIT READY command descriptor block.
func TestUnitReadyCDB(lun uint8) [6]byte {
	var cdb [6]byte
	cdb[0] = SCSITestUnitReady
	cdb[1] = lun
	return cdb
}

// RequestSenseCDB builds a REQUEST SENSE command descriptor block
// requesting allocLength bytes of fixed-format sense data.
func RequestSenseCDB(allocLength uint8) [6]byte {
	var cdb [6]byte
	cdb[0] = SCSIRequestSense
	cdb[4] = allocLength
	return cdb
}

// InquiryCDB builds an INQUIRY command descriptor block requesting
// allocLength bytes of standard inquiry data.
func InquiryCDB(allocLength uint8) [6]byte {
	var cdb [6]byte
	cdb[0] = SCSIInquiry
	cdb[4] = allocLength
	return cdb
}

// ReadCapacity10CDB builds a READ CAPACITY (10) command descriptor block.
func ReadCapacity10CDB() [10]byte {
	var cdb [10]byte
	cdb[0] = SCSIReadCapacity10
	return cdb
}

// Read10CDB builds a READ (10) command descriptor block: opcode, LUN in
// the low bits of byte 1, big-endian logical block address, reserved
// byte, big-endian transfer length in blocks.
func Read10CDB(lun uint8, lba uint32, blocks uint16) [10]byte {
	var cdb [10]byte
	cdb[0] = SCSIRead10
	cdb[1] = lun
	binary.BigEndian.PutUint32(cdb[2:6], lba)
	binary.BigEndian.PutUint16(cdb[7:9], blocks)
	return cdb
}

// Write10CDB builds a WRITE (10) command descriptor block with the same
// parameter layout as Read10CDB.
func Write10CDB(lun uint8, lba uint32, blocks uint16) [10]byte {
	var cdb [10]byte
	cdb[0] = SCSIWrite10
	cdb[1] = lun
	binary.BigEndian.PutUint32(cdb[2:6], lba)
	binary.BigEndian.PutUint16(cdb[7:9], blocks)
	return cdb
}

// SynchronizeCache10CDB builds a SYNCHRONIZE CACHE (10) command
// descriptor block flushing the device's entire cache.
func SynchronizeCache10CDB() [10]byte {
	var cdb [10]byte
	cdb[0] = SCSISynchronizeCache10
	return cdb
}

// Capacity holds the geometry reported by READ CAPACITY (10).
type Capacity struct {
	SectorCount uint64 // Total number of logical blocks
	BlockSize   uint32 // Block length in bytes
}

// ParseReadCapacity10 decodes a READ CAPACITY (10) response: 8 bytes of
// big-endian (last LBA, block length). The sector count is the last
// valid logical block address plus one.
// Returns false if data is too short.
func ParseReadCapacity10(data []byte, out *Capacity) bool {
	if len(data) < ReadCapacity10Size {
		return false
	}
	lastLBA := binary.BigEndian.Uint32(data[0:4])
	out.SectorCount = uint64(lastLBA) + 1
	out.BlockSize = binary.BigEndian.Uint32(data[4:8])
	return true
}

// InquiryData holds the decoded fields of a standard INQUIRY response.
type InquiryData struct {
	DeviceType uint8  // Peripheral device type
	Removable  bool   // Removable media bit
	Version    uint8  // SCSI version
	VendorID   string // Vendor identification, trailing spaces trimmed
	ProductID  string // Product identification, trailing spaces trimmed
	ProductRev string // Product revision, trailing spaces trimmed
}

// ParseInquiry decodes standard INQUIRY data.
// Returns false if data is too short.
func ParseInquiry(data []byte, out *InquiryData) bool {
	if len(data) < InquiryStandardSize {
		return false
	}
	out.DeviceType = data[0] & 0x1F
	out.Removable = data[1]&InquiryRMB != 0
	out.Version = data[2]
	out.VendorID = strings.TrimRight(string(data[8:16]), " ")
	out.ProductID = strings.TrimRight(string(data[16:32]), " ")
	out.ProductRev = strings.TrimRight(string(data[32:36]), " ")
	return true
}

// SenseData holds the decoded fields of a fixed-format REQUEST SENSE
// response.
type SenseData struct {
	ResponseCode uint8  // Response code (0x70 = current errors)
	SenseKey     uint8  // Sense key (bits 0-3 of byte 2)
	Information  uint32 // Information field
	ASC          uint8  // Additional sense code
	ASCQ         uint8  // Additional sense code qualifier
}

// ParseSense decodes fixed-format sense data.
// Returns false if data is too short.
func ParseSense(data []byte, out *SenseData) bool {
	if len(data) < 14 {
		return false
	}
	out.ResponseCode = data[0] & 0x7F
	out.SenseKey = data[2] & 0x0F
	out.Information = binary.BigEndian.Uint32(data[3:7])
	out.ASC = data[12]
	out.ASCQ = data[13]
	return true
}
