package msc

// USB Mass Storage Class codes.
const (
	ClassMSC = 0x08 // Mass Storage Class
)

// MSC Subclass codes.
const (
	SubclassRBC  = 0x01 // Reduced Block Commands
	SubclassMMC5 = 0x02 // Multi-Media Commands (CD/DVD)
	SubclassUFI  = 0x04 // USB Floppy Interface
	SubclassSCSI = 0x06 // SCSI Transparent Command Set
)

// MSC Protocol codes.
const (
	ProtocolCBI      = 0x00 // Control/Bulk/Interrupt
	ProtocolBulkOnly = 0x50 // Bulk-Only Transport (BOT)
	ProtocolUAS      = 0x62 // USB Attached SCSI
)

// Bulk-Only Transport request codes.
const (
	RequestBulkOnlyMassStorageReset = 0xFF // Reset the MSC device
	RequestGetMaxLUN                = 0xFE // Get maximum Logical Unit Number
)

// Command Block Wrapper (CBW) constants.
const (
	CBWSignature    = 0x43425355 // "USBC" signature
	CBWSize         = 31         // Fixed CBW size in bytes
	CBWCBLengthMax  = 16         // Maximum command block length
	CBWFlagDataOut  = 0x00       // Data transfer: host to device
	CBWFlagDataIn   = 0x80       // Data transfer: device to host
)

// Command Status Wrapper (CSW) constants.
const (
	CSWSignature        = 0x53425355 // "USBS" signature
	CSWSize             = 13         // Fixed CSW size in bytes
	CSWStatusGood       = 0x00       // Command passed
	CSWStatusFailed     = 0x01       // Command failed
	CSWStatusPhaseError = 0x02       // Phase error occurred
)

// SCSI operation codes issued by this driver.
const (
	SCSITestUnitReady      = 0x00 // Test if unit is ready
	SCSIRequestSense       = 0x03 // Request sense data
	SCSIInquiry            = 0x12 // Get device information
	SCSIModeSense6         = 0x1A // Get mode parameters (6-byte)
	SCSIReadCapacity10     = 0x25 // Read capacity (10-byte)
	SCSIRead10             = 0x28 // Read blocks (10-byte)
	SCSIWrite10            = 0x2A // Write blocks (10-byte)
	SCSISynchronizeCache10 = 0x35 // Synchronize cache (10-byte)
)

// SCSI sense keys.
const (
	SenseNoSense        = 0x00 // No error
	SenseRecoveredError = 0x01 // Recovered error
	SenseNotReady       = 0x02 // Device not ready
	SenseMediumError    = 0x03 // Medium error
	SenseHardwareError  = 0x04 // Hardware error
	SenseIllegalRequest = 0x05 // Illegal request
	SenseUnitAttention  = 0x06 // Unit attention
	SenseDataProtect    = 0x07 // Data protect
)

// Additional Sense Codes (ASC).
const (
	ASCNoAdditionalInfo      = 0x00 // No additional sense information
	ASCLogicalUnitNotReady   = 0x04 // Logical unit not ready
	ASCInvalidCommand        = 0x20 // Invalid command operation code
	ASCLBAOutOfRange         = 0x21 // Logical block address out of range
	ASCInvalidFieldInCDB     = 0x24 // Invalid field in CDB
	ASCWriteProtected        = 0x27 // Write protected
	ASCNotReadyToReadyChange = 0x28 // Not ready to ready change
	ASCMediumNotPresent      = 0x3A // Medium not present
)

// INQUIRY response constants.
const (
	InquiryStandardSize = 36   // Standard INQUIRY data length
	InquiryRMB          = 0x80 // Removable media bit
)

// SenseResponseSize is the fixed-format REQUEST SENSE response length
// requested by the readiness loop.
const SenseResponseSize = 18

// ReadCapacity10Size is the READ CAPACITY (10) response length.
const ReadCapacity10Size = 8

// BlockSizeBytes is the logical block size assumed by ReadBlocks and
// WriteBlocks when converting buffer lengths to block counts.
const BlockSizeBytes = 512

// Block device ioctl operation codes.
const (
	// IoctlBlockCount queries the total number of blocks on the device.
	IoctlBlockCount = 4
)
