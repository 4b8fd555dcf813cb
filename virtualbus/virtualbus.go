// Package virtualbus manages USB bus topology and auto-assigns device
// addresses for export over USB/IP.
package virtualbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/dlkj/usbd-human-interface-device/usb"
	"github.com/dlkj/usbd-human-interface-device/usbip"
)

// Sysfs-style path prefix reported to importing hosts. The Linux usbip
// client only displays it, but it must look like a real device path.
const basepath = "/sys/devices/pci0000:00/0000:00:08.1/0000:00:04:00.3/usb"

var (
	globalBusCounter uint32
	allocatedBusIDs  = make(map[uint32]bool)
	globalMutex      sync.Mutex
)

// VirtualBus holds the devices exported under one bus number. Device IDs
// are assigned at attach time and freed on removal.
type VirtualBus struct {
	mutex           sync.Mutex
	busID           uint32
	allocatedDevIDs map[uint32]bool
	devices         []busDevice
}

type busDevice struct {
	dev    usb.Device
	meta   usbip.ExportMeta
	ctx    context.Context
	cancel context.CancelFunc
}

// DeviceMeta pairs a registered device with its export metadata.
type DeviceMeta struct {
	Dev  usb.Device
	Meta usbip.ExportMeta
}

// New creates a bus with the next free auto-assigned bus number.
func New() *VirtualBus {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	busID := globalBusCounter
	if busID == 0 {
		busID = 1
	}
	// Numbers claimed through NewWithBusID may sit ahead of the counter.
	for allocatedBusIDs[busID] {
		busID++
	}
	globalBusCounter = busID + 1
	allocatedBusIDs[busID] = true

	return &VirtualBus{
		busID:           busID,
		allocatedDevIDs: make(map[uint32]bool),
	}
}

// NewWithBusID creates a bus with a specific bus number. It fails if the
// number is already allocated.
func NewWithBusID(busID uint32) (*VirtualBus, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	if allocatedBusIDs[busID] {
		return nil, fmt.Errorf("bus number %d already allocated", busID)
	}
	allocatedBusIDs[busID] = true

	return &VirtualBus{
		busID:           busID,
		allocatedDevIDs: make(map[uint32]bool),
	}, nil
}

// Add attaches a device to the bus, assigning it the lowest free device ID.
// The returned context is cancelled when the device is removed or the bus
// closed; URB streams serving the device watch it for teardown.
func (vb *VirtualBus) Add(dev usb.Device) (context.Context, error) {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()

	for _, d := range vb.devices {
		if d.dev == dev {
			return nil, fmt.Errorf("device already registered on this bus")
		}
	}
	var devID uint32
	for i := uint32(1); ; i++ {
		if !vb.allocatedDevIDs[i] {
			devID = i
			vb.allocatedDevIDs[i] = true
			break
		}
	}

	busDevID := fmt.Sprintf("%d-%d", vb.busID, devID)
	path := fmt.Sprintf("%s%d/%s", basepath, vb.busID, busDevID)

	var meta usbip.ExportMeta
	copy(meta.Path[:], path)
	copy(meta.USBBusID[:], busDevID)
	meta.BusID = vb.busID
	meta.DevID = devID

	ctx, cancel := context.WithCancel(context.Background())
	vb.devices = append(vb.devices, busDevice{dev: dev, meta: meta, ctx: ctx, cancel: cancel})
	return ctx, nil
}

// BusID returns this bus's number.
func (vb *VirtualBus) BusID() uint32 {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	return vb.busID
}

// Devices returns all attached devices.
func (vb *VirtualBus) Devices() []usb.Device {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	out := make([]usb.Device, 0, len(vb.devices))
	for _, d := range vb.devices {
		out = append(out, d.dev)
	}
	return out
}

// DeviceMetas returns a snapshot of all attached devices with their export
// metadata.
func (vb *VirtualBus) DeviceMetas() []DeviceMeta {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	out := make([]DeviceMeta, 0, len(vb.devices))
	for _, d := range vb.devices {
		out = append(out, DeviceMeta{Dev: d.dev, Meta: d.meta})
	}
	return out
}

// Context returns the lifecycle context for an attached device, or nil if
// the device is not on this bus.
func (vb *VirtualBus) Context(dev usb.Device) context.Context {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	for i := range vb.devices {
		if vb.devices[i].dev == dev {
			return vb.devices[i].ctx
		}
	}
	return nil
}

// Remove detaches a device, cancelling its context and freeing its device
// ID.
func (vb *VirtualBus) Remove(dev usb.Device) error {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	for i, d := range vb.devices {
		if d.dev == dev {
			d.cancel()
			delete(vb.allocatedDevIDs, d.meta.DevID)
			vb.devices = append(vb.devices[:i], vb.devices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("device not found")
}

// RemoveDeviceByID detaches the device with the given numeric device ID.
func (vb *VirtualBus) RemoveDeviceByID(deviceID string) error {
	vb.mutex.Lock()
	defer vb.mutex.Unlock()
	for i, d := range vb.devices {
		if fmt.Sprintf("%d", d.meta.DevID) == deviceID {
			d.cancel()
			delete(vb.allocatedDevIDs, d.meta.DevID)
			vb.devices = append(vb.devices[:i], vb.devices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("device with id %s not found on bus %d", deviceID, vb.busID)
}

// Close cancels all device contexts and frees the bus number for reuse.
// The bus must not be used afterwards.
func (vb *VirtualBus) Close() error {
	vb.mutex.Lock()
	for i := range vb.devices {
		vb.devices[i].cancel()
	}
	vb.devices = nil
	vb.mutex.Unlock()

	globalMutex.Lock()
	defer globalMutex.Unlock()
	delete(allocatedBusIDs, vb.busID)
	return nil
}
