// Package msc implements a host-side USB Mass Storage Class (MSC) driver
// using the Bulk-Only Transport (BOT) protocol with the SCSI transparent
// command set.
//
// The driver exposes a USB mass storage device (for example a thumb drive)
// as a fixed-size logical block device. It discovers the device's bulk
// endpoints from the raw configuration descriptor, selects the
// configuration, negotiates logical-unit addressing, waits for the media
// to become ready, and translates block-level read/write/capacity requests
// into SCSI commands framed as CBW/CSW exchanges.
//
// # Bulk-Only Transport (BOT) Protocol
//
// Every command is a three-phase exchange:
//
//  1. Command Phase - Host sends Command Block Wrapper (CBW)
//  2. Data Phase - Optional unidirectional data transfer
//  3. Status Phase - Device sends Command Status Wrapper (CSW)
//
// BOT permits exactly one command in flight per device: the status phase
// must complete before the next command is sent.
//
// # SCSI Command Support
//
// The driver issues the subset of SCSI commands needed for block device
// operation:
//
//   - INQUIRY - Device identification
//   - TEST UNIT READY - Media readiness probe
//   - REQUEST SENSE - Drain pending error state
//   - READ CAPACITY (10) - Get disk geometry
//   - READ (10) / WRITE (10) - Block transfer
//   - SYNCHRONIZE CACHE (10) - Flush device write cache
//
// # Transport Abstraction
//
// The driver performs all device I/O through the [hal.Device] interface,
// so the protocol engine runs unchanged against any host stack and can be
// tested with the simulated device in
// [github.com/ardnew/usbdisk/hal/sim] without real hardware.
//
// # Concurrency
//
// A Disk is fully synchronous and reuses its CBW/CSW buffers for every
// command. Callers must serialize all operations on a Disk (one goroutine
// at a time, or an external mutex); the driver provides no internal
// locking.
//
// # Usage Example
//
//	disk, err := msc.Open(ctx, dev, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	count, err := disk.BlockCount(ctx)
//
//	buf := make([]byte, 4*msc.BlockSizeBytes)
//	err = disk.ReadBlocks(ctx, 0, buf)
//
// # References
//
//   - USB Mass Storage Class Specification 1.0
//   - USB Mass Storage Bulk-Only Transport 1.0
//   - SCSI Primary Commands (SPC-4)
//   - SCSI Block Commands (SBC-3)
package msc
