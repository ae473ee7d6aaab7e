// Package sim provides a simulated USB mass storage device implementing
// the hal.Device interface.
//
// The simulated device answers the bulk-only transport protocol against
// a pluggable block storage backend: an in-memory buffer for tests, or a
// disk image file for tooling. It maintains SCSI sense state across
// commands, so driver behavior like the not-ready recovery loop and
// error reporting can be exercised without hardware.
//
// Fault injection is controlled through Config: a device can stall the
// Get Max LUN request, report not-ready for a number of probes before
// coming up, or expose read-only media.
//
// # Usage
//
//	store := sim.NewMemoryStorage(1<<20, 512)
//	dev := sim.New(store, sim.Config{Vendor: "SIM", Product: "DISK"})
//	disk, err := msc.Open(ctx, dev, nil)
//
// A sim.Device serializes its own state internally, but the bulk-only
// protocol itself is stateful across transfers, so a single device must
// not be driven by more than one driver at a time.
package sim
