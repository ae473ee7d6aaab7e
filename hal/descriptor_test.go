package hal

import "testing"

func TestParseInterfaceDescriptor(t *testing.T) {
	data := []byte{9, DescriptorTypeInterface, 0, 0, 2, 0x08, 0x06, 0x50, 0}

	var iface InterfaceDescriptor
	if !ParseInterfaceDescriptor(data, &iface) {
		t.Fatal("ParseInterfaceDescriptor failed")
	}

	if iface.InterfaceClass != 0x08 {
		t.Errorf("InterfaceClass = 0x%02X, want 0x08", iface.InterfaceClass)
	}
	if iface.InterfaceSubClass != 0x06 {
		t.Errorf("InterfaceSubClass = 0x%02X, want 0x06", iface.InterfaceSubClass)
	}
	if iface.InterfaceProtocol != 0x50 {
		t.Errorf("InterfaceProtocol = 0x%02X, want 0x50", iface.InterfaceProtocol)
	}
	if iface.NumEndpoints != 2 {
		t.Errorf("NumEndpoints = %d, want 2", iface.NumEndpoints)
	}
}

func TestParseEndpointDescriptor(t *testing.T) {
	data := []byte{7, DescriptorTypeEndpoint, 0x81, EndpointTypeBulk, 0x00, 0x02, 0}

	var ep EndpointDescriptor
	if !ParseEndpointDescriptor(data, &ep) {
		t.Fatal("ParseEndpointDescriptor failed")
	}

	if ep.EndpointAddress != 0x81 {
		t.Errorf("EndpointAddress = 0x%02X, want 0x81", ep.EndpointAddress)
	}
	if !ep.IsIn() {
		t.Error("IsIn() = false, want true")
	}
	if !ep.IsBulk() {
		t.Error("IsBulk() = false, want true")
	}
	if ep.Number() != 1 {
		t.Errorf("Number() = %d, want 1", ep.Number())
	}
	if ep.MaxPacketSize != 512 {
		t.Errorf("MaxPacketSize = %d, want 512", ep.MaxPacketSize)
	}
}

func TestConfigurationDescriptor_RoundTrip(t *testing.T) {
	original := ConfigurationDescriptor{
		TotalLength:        32,
		NumInterfaces:      1,
		ConfigurationValue: 1,
		Attributes:         0x80,
		MaxPower:           50,
	}

	var buf [ConfigurationDescriptorSize]byte
	if n := original.MarshalTo(buf[:]); n != ConfigurationDescriptorSize {
		t.Fatalf("MarshalTo = %d, want %d", n, ConfigurationDescriptorSize)
	}

	var parsed ConfigurationDescriptor
	if !ParseConfigurationDescriptor(buf[:], &parsed) {
		t.Fatal("ParseConfigurationDescriptor failed")
	}
	if parsed.TotalLength != original.TotalLength {
		t.Errorf("TotalLength = %d, want %d", parsed.TotalLength, original.TotalLength)
	}
	if parsed.ConfigurationValue != original.ConfigurationValue {
		t.Errorf("ConfigurationValue = %d, want %d", parsed.ConfigurationValue, original.ConfigurationValue)
	}
}

func TestParseDescriptor_TooShort(t *testing.T) {
	var cfg ConfigurationDescriptor
	if ParseConfigurationDescriptor(make([]byte, 5), &cfg) {
		t.Error("expected failure for short configuration descriptor")
	}
	var iface InterfaceDescriptor
	if ParseInterfaceDescriptor(make([]byte, 5), &iface) {
		t.Error("expected failure for short interface descriptor")
	}
	var ep EndpointDescriptor
	if ParseEndpointDescriptor(make([]byte, 5), &ep) {
		t.Error("expected failure for short endpoint descriptor")
	}
}
