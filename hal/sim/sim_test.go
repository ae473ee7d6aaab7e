package sim

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ardnew/usbdisk/msc"
)

const (
	testBlockSize = 512
	testBlocks    = 64
)

func newTestStorage() *MemoryStorage {
	return NewMemoryStorage(testBlocks*testBlockSize, testBlockSize)
}

func TestMemoryStorage(t *testing.T) {
	s := newTestStorage()

	if s.BlockSize() != testBlockSize {
		t.Errorf("BlockSize = %d, want %d", s.BlockSize(), testBlockSize)
	}
	if s.BlockCount() != testBlocks {
		t.Errorf("BlockCount = %d, want %d", s.BlockCount(), testBlocks)
	}

	want := bytes.Repeat([]byte{0xAB}, testBlockSize)
	if err := s.WriteBlocks(5, want); err != nil {
		t.Fatalf("WriteBlocks failed: %v", err)
	}

	got := make([]byte, testBlockSize)
	if err := s.ReadBlocks(5, got); err != nil {
		t.Fatalf("ReadBlocks failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("read data differs from written data")
	}
}

func TestMemoryStorageBounds(t *testing.T) {
	s := newTestStorage()
	buf := make([]byte, testBlockSize)

	if err := s.ReadBlocks(testBlocks, buf); !errors.Is(err, io.EOF) {
		t.Errorf("read past end: error = %v, want io.EOF", err)
	}
	if err := s.WriteBlocks(testBlocks, buf); !errors.Is(err, io.EOF) {
		t.Errorf("write past end: error = %v, want io.EOF", err)
	}
}

func TestMemoryStorageReadOnly(t *testing.T) {
	s := newTestStorage()
	s.SetReadOnly(true)

	err := s.WriteBlocks(0, make([]byte, testBlockSize))
	if !errors.Is(err, os.ErrPermission) {
		t.Errorf("error = %v, want os.ErrPermission", err)
	}
}

func TestFileStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	if err := os.WriteFile(path, make([]byte, testBlocks*testBlockSize), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := NewFileStorage(path, testBlockSize, false)
	if err != nil {
		t.Fatalf("NewFileStorage failed: %v", err)
	}
	defer s.Close()

	if s.BlockCount() != testBlocks {
		t.Errorf("BlockCount = %d, want %d", s.BlockCount(), testBlocks)
	}

	want := bytes.Repeat([]byte{0xCD}, 2*testBlockSize)
	if err := s.WriteBlocks(3, want); err != nil {
		t.Fatalf("WriteBlocks failed: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	got := make([]byte, len(want))
	if err := s.ReadBlocks(3, got); err != nil {
		t.Fatalf("ReadBlocks failed: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("read data differs from written data")
	}
}

func TestDeviceOpen(t *testing.T) {
	dev := New(newTestStorage(), Config{
		Vendor:    "SIM",
		Product:   "TEST DISK",
		Revision:  "0.1",
		Removable: true,
	})

	d, err := msc.Open(context.Background(), dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if dev.Configured() != 1 {
		t.Errorf("configured value = %d, want 1", dev.Configured())
	}

	inq := d.Inquiry()
	if inq.VendorID != "SIM" {
		t.Errorf("VendorID = %q, want %q", inq.VendorID, "SIM")
	}
	if inq.ProductID != "TEST DISK" {
		t.Errorf("ProductID = %q, want %q", inq.ProductID, "TEST DISK")
	}
	if !inq.Removable {
		t.Error("Removable = false, want true")
	}

	count, err := d.BlockCount(context.Background())
	if err != nil {
		t.Fatalf("BlockCount failed: %v", err)
	}
	if count != testBlocks {
		t.Errorf("BlockCount = %d, want %d", count, testBlocks)
	}
}

func TestDeviceRoundTrip(t *testing.T) {
	store := newTestStorage()
	dev := New(store, Config{})
	ctx := context.Background()

	d, err := msc.Open(ctx, dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	out := make([]byte, 4*testBlockSize)
	for i := range out {
		out[i] = byte(i * 7)
	}
	if err := d.WriteBlocks(ctx, 8, out); err != nil {
		t.Fatalf("WriteBlocks failed: %v", err)
	}
	if err := d.Flush(ctx); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	in := make([]byte, len(out))
	if err := d.ReadBlocks(ctx, 8, in); err != nil {
		t.Fatalf("ReadBlocks failed: %v", err)
	}
	if !bytes.Equal(in, out) {
		t.Error("read data differs from written data")
	}

	// The data must also land in the backing storage.
	direct := make([]byte, len(out))
	if err := store.ReadBlocks(8, direct); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(direct, out) {
		t.Error("backing storage differs from written data")
	}
}

func TestDeviceNotReadyRecovery(t *testing.T) {
	dev := New(newTestStorage(), Config{NotReadyCount: 3})

	_, err := msc.Open(context.Background(), dev, &msc.Config{
		ReadyInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if n := dev.CommandCount(msc.SCSITestUnitReady); n != 4 {
		t.Errorf("TEST UNIT READY count = %d, want 4", n)
	}
	if n := dev.CommandCount(msc.SCSIRequestSense); n != 3 {
		t.Errorf("REQUEST SENSE count = %d, want 3", n)
	}
}

func TestDeviceNeverReady(t *testing.T) {
	dev := New(newTestStorage(), Config{NotReadyCount: 1 << 20})

	_, err := msc.Open(context.Background(), dev, &msc.Config{
		ReadyAttempts: 5,
		ReadyInterval: time.Millisecond,
	})
	if !errors.Is(err, msc.ErrDeviceNotReady) {
		t.Errorf("error = %v, want msc.ErrDeviceNotReady", err)
	}
}

func TestDeviceStallGetMaxLUN(t *testing.T) {
	dev := New(newTestStorage(), Config{StallGetMaxLUN: true})

	d, err := msc.Open(context.Background(), dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if d.MaxLUN() != 0 {
		t.Errorf("MaxLUN = %d, want 0 after stall", d.MaxLUN())
	}
}

func TestDeviceReadOutOfRange(t *testing.T) {
	dev := New(newTestStorage(), Config{})
	ctx := context.Background()

	d, err := msc.Open(ctx, dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	err = d.ReadBlocks(ctx, testBlocks, make([]byte, testBlockSize))
	if !errors.Is(err, msc.ErrCommandFailed) {
		t.Errorf("error = %v, want msc.ErrCommandFailed", err)
	}
}

func TestDeviceWriteProtected(t *testing.T) {
	store := newTestStorage()
	store.SetReadOnly(true)
	dev := New(store, Config{})
	ctx := context.Background()

	d, err := msc.Open(ctx, dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	err = d.WriteBlocks(ctx, 0, make([]byte, testBlockSize))
	if !errors.Is(err, msc.ErrCommandFailed) {
		t.Errorf("error = %v, want msc.ErrCommandFailed", err)
	}
}

func TestDeviceIoctl(t *testing.T) {
	dev := New(newTestStorage(), Config{})
	ctx := context.Background()

	d, err := msc.Open(ctx, dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	n, err := d.Ioctl(ctx, msc.IoctlBlockCount, 0)
	if err != nil {
		t.Fatalf("Ioctl failed: %v", err)
	}
	if n != testBlocks {
		t.Errorf("Ioctl(IoctlBlockCount) = %d, want %d", n, testBlocks)
	}
}

func TestDeviceReset(t *testing.T) {
	dev := New(newTestStorage(), Config{})
	ctx := context.Background()

	d, err := msc.Open(ctx, dev, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := d.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	// The device must still answer commands after a reset.
	if err := d.ReadBlocks(ctx, 0, make([]byte, testBlockSize)); err != nil {
		t.Fatalf("ReadBlocks after reset failed: %v", err)
	}
}
