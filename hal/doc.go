// Package hal defines the USB host transport capability set consumed by
// the usbdisk driver.
//
// The driver never talks to hardware directly. It is handed a [Device],
// an already-enumerated USB device whose owner performs the raw control
// and bulk transfers. Any host stack can satisfy the interface: a usbfs
// or libusb binding, a software USB stack, or the simulated mass-storage
// device in [github.com/ardnew/usbdisk/hal/sim] used for testing.
//
// The package also provides the standard descriptor-type and request
// constants plus typed Configuration/Interface/Endpoint descriptor records
// with Parse functions, so consumers can walk a raw configuration
// descriptor without re-deriving the byte layout.
//
// # Stall signaling
//
// A Device implementation must report a protocol stall on a control
// transfer by returning an error matching [pkg.ErrStall] with [errors.Is].
// The driver relies on this to distinguish "request not supported" from a
// transport failure.
package hal
