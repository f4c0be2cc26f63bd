// Package pciesque is an optional secondary device bus (C13): a
// config-space-style address decomposition over a pair of MMIO windows,
// for target code that prefers modeling a handful of devices behind one
// addr/data register pair instead of registering one mmio.Range per
// device.
//
// Grounded on _examples/bobuhiro11-gokvm/pci/pci.go's PCI config
// mechanism #1 (bus/device/function/register decomposition, addr/data
// port pair, little-endian deviceHeader layout), generalized from that
// package's hardcoded two-device, x86-ioport-specific PCI bridge into a
// target-agnostic bus any machine.VM can mount over its mmio.Registry.
package pciesque

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pound-emu/pound/mmio"
)

// Address is a PCI-style configuration address: enable bit, bus,
// device, function, and register-within-function offset, packed the
// same way original_source's/teacher's CONFIG_ADDRESS register is.
type Address uint32

func (a Address) registerOffset() uint32 { return uint32(a) & 0xfc }
func (a Address) function() uint32       { return (uint32(a) >> 8) & 0x7 }
func (a Address) device() uint32         { return (uint32(a) >> 11) & 0x1f }
func (a Address) bus() uint32            { return (uint32(a) >> 16) & 0xff }
func (a Address) enabled() bool          { return uint32(a)>>31 == 1 }

// DeviceHeader is a type-0 PCI configuration header: the
// config-space-visible identity of one device on the bus.
type DeviceHeader struct {
	VendorID                uint16
	DeviceID                uint16
	Command                 uint16
	Status                  uint16
	RevisionID               uint8
	ClassCode                [3]uint8
	CacheLineSize            uint8
	LatencyTimer             uint8
	HeaderType               uint8
	BIST                     uint8
	BaseAddressRegister      [6]uint32
	CardbusCISPointer        uint32
	SubsystemVendorID        uint16
	SubsystemID              uint16
	ExpansionROMBaseAddress  uint32
	CapabilitiesPointer      uint8
	reserved                 [7]uint8
	InterruptLine            uint8
	InterruptPin             uint8
	MinGrant                 uint8
	MaxLatency               uint8
}

func (h *DeviceHeader) bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("pciesque: encoding device header: %w", err)
	}

	return buf.Bytes(), nil
}

// Bus is a config-space-addressed collection of devices, all on bus 0,
// function 0, each at the device number AddDevice returned for it — the
// flat topology the teacher's PCI bridge used, generalized to an
// arbitrary device count.
type Bus struct {
	addr    Address
	devices []*DeviceHeader
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}

// AddDevice appends h as the next device slot and returns its slot
// index, used as the PCI "device number" field.
func (b *Bus) AddDevice(h DeviceHeader) int {
	b.devices = append(b.devices, &h)
	return len(b.devices) - 1
}

// AddrRead implements mmio.ReadFunc for the config-address register:
// it reads back the last address latched by AddrWrite.
func (b *Bus) AddrRead(vm mmio.VM, gpa uint64, buf []byte) error {
	if len(buf) != 4 {
		return fmt.Errorf("pciesque: addr register read must be 4 bytes, got %d", len(buf))
	}

	binary.LittleEndian.PutUint32(buf, uint32(b.addr))

	return nil
}

// AddrWrite implements mmio.WriteFunc for the config-address register:
// it latches the bus/device/function/register selection subsequent
// DataRead/DataWrite calls resolve against.
func (b *Bus) AddrWrite(vm mmio.VM, gpa uint64, buf []byte) error {
	if len(buf) != 4 {
		return fmt.Errorf("pciesque: addr register write must be 4 bytes, got %d", len(buf))
	}

	b.addr = Address(binary.LittleEndian.Uint32(buf))

	return nil
}

// DataRead implements mmio.ReadFunc for the config-data register: it
// returns len(buf) bytes of the device header selected by the last
// AddrWrite, at the latched register offset.
func (b *Bus) DataRead(vm mmio.VM, gpa uint64, buf []byte) error {
	if b.addr.bus() != 0 || b.addr.function() != 0 {
		for i := range buf {
			buf[i] = 0xFF // no such bus/function: all-ones per PCI convention.
		}

		return nil
	}

	slot := int(b.addr.device())
	if slot >= len(b.devices) {
		for i := range buf {
			buf[i] = 0xFF
		}

		return nil
	}

	raw, err := b.devices[slot].bytes()
	if err != nil {
		return err
	}

	offset := int(b.addr.registerOffset())
	if offset+len(buf) > len(raw) {
		return fmt.Errorf("pciesque: register offset %#x+%d exceeds header size %d", offset, len(buf), len(raw))
	}

	copy(buf, raw[offset:offset+len(buf)])

	return nil
}

// DataWrite implements mmio.WriteFunc for the config-data register.
// Device headers in this bus are read-only from the guest's
// perspective; writes are accepted and discarded, matching the
// teacher's PciConfDataOut, which only logged.
func (b *Bus) DataWrite(vm mmio.VM, gpa uint64, buf []byte) error {
	return nil
}

// Mount registers this bus's address and data windows on registry, each
// exactly 4 bytes wide, mirroring CONFIG_ADDRESS/CONFIG_DATA.
func (b *Bus) Mount(registry *mmio.Registry, addrBase, dataBase uint64) error {
	if err := registry.Register(mmio.Range{Base: addrBase, End: addrBase + 4}, mmio.Handler{
		Read:  b.AddrRead,
		Write: b.AddrWrite,
	}); err != nil {
		return fmt.Errorf("pciesque: mounting addr register: %w", err)
	}

	if err := registry.Register(mmio.Range{Base: dataBase, End: dataBase + 4}, mmio.Handler{
		Read:  b.DataRead,
		Write: b.DataWrite,
	}); err != nil {
		return fmt.Errorf("pciesque: mounting data register: %w", err)
	}

	return nil
}
