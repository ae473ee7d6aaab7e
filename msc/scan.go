package msc

import (
	"errors"

	"github.com/ardnew/usbdisk/hal"
	"github.com/ardnew/usbdisk/pkg"
)

// ErrNoMassStorageInterface indicates the configuration descriptor does
// not contain a mass storage interface with both bulk endpoint directions.
var ErrNoMassStorageInterface = errors.New("no mass storage interface found")

// ScanResult holds the discovery output of ScanConfiguration.
type ScanResult struct {
	ConfigurationValue uint8 // Selector for SET_CONFIGURATION
	InterfaceNumber    uint8 // Mass storage interface number
	InEndpoint         uint8 // Bulk IN endpoint address (direction bit set)
	OutEndpoint        uint8 // Bulk OUT endpoint address
}

// ScanConfiguration walks a raw configuration descriptor byte sequence
// and extracts the configuration value, the mass storage interface
// number, and the addresses of its bulk IN and OUT endpoints.
//
// Endpoint records are honored only while inside an interface whose
// class is mass storage (8) and subclass is SCSI transparent (6); all
// other interfaces are skipped along with their endpoints. If more than
// one matching interface exists, the first complete match wins.
//
// Returns ErrNoMassStorageInterface if either endpoint direction is
// missing.
func ScanConfiguration(desc []byte, out *ScanResult) error {
	*out = ScanResult{}

	inMSC := false
	found := false

	for i := 0; i+2 <= len(desc); {
		length := int(desc[i])
		descType := desc[i+1]

		if length < 2 || i+length > len(desc) {
			break
		}

		switch descType {
		case hal.DescriptorTypeConfiguration:
			if length >= hal.ConfigurationDescriptorSize {
				out.ConfigurationValue = desc[i+5]
			}

		case hal.DescriptorTypeInterface:
			if found {
				// First complete match wins; later interfaces,
				// matching or not, are ignored.
				inMSC = false
				break
			}
			var iface hal.InterfaceDescriptor
			if !hal.ParseInterfaceDescriptor(desc[i:], &iface) {
				inMSC = false
				break
			}
			inMSC = iface.InterfaceClass == ClassMSC &&
				iface.InterfaceSubClass == SubclassSCSI
			if inMSC {
				out.InterfaceNumber = iface.InterfaceNumber
				out.InEndpoint = 0
				out.OutEndpoint = 0
				pkg.LogDebug(pkg.ComponentScanner, "mass storage interface",
					"number", iface.InterfaceNumber,
					"protocol", iface.InterfaceProtocol)
			}

		case hal.DescriptorTypeEndpoint:
			if !inMSC || found {
				break
			}
			var ep hal.EndpointDescriptor
			if !hal.ParseEndpointDescriptor(desc[i:], &ep) || !ep.IsBulk() {
				break
			}
			if ep.IsIn() {
				if out.InEndpoint == 0 {
					out.InEndpoint = ep.EndpointAddress
				}
			} else {
				if out.OutEndpoint == 0 {
					out.OutEndpoint = ep.EndpointAddress
				}
			}
			if out.InEndpoint != 0 && out.OutEndpoint != 0 {
				found = true
			}
		}

		i += length
	}

	if out.InEndpoint == 0 || out.OutEndpoint == 0 {
		return ErrNoMassStorageInterface
	}

	pkg.LogDebug(pkg.ComponentScanner, "endpoints discovered",
		"config", out.ConfigurationValue,
		"interface", out.InterfaceNumber,
		"bulkIn", out.InEndpoint,
		"bulkOut", out.OutEndpoint)

	return nil
}
