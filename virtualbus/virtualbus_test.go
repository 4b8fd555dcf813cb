package virtualbus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlkj/usbd-human-interface-device/usb"
	"github.com/dlkj/usbd-human-interface-device/virtualbus"
)

type stubDevice struct {
	desc usb.Descriptor
}

func (d *stubDevice) HandleTransfer(ep uint32, dir uint32, out []byte) []byte { return nil }
func (d *stubDevice) GetDescriptor() *usb.Descriptor                          { return &d.desc }

func TestAddAssignsSequentialDeviceIDs(t *testing.T) {
	bus, err := virtualbus.NewWithBusID(70001)
	require.NoError(t, err)
	defer bus.Close()

	a, b := &stubDevice{}, &stubDevice{}
	_, err = bus.Add(a)
	require.NoError(t, err)
	_, err = bus.Add(b)
	require.NoError(t, err)

	metas := bus.DeviceMetas()
	require.Len(t, metas, 2)
	assert.Equal(t, "70001-1", metas[0].Meta.BusDeviceID())
	assert.Equal(t, "70001-2", metas[1].Meta.BusDeviceID())
	assert.Equal(t, uint32(70001), metas[0].Meta.BusID)
	assert.Contains(t, string(metas[0].Meta.Path[:]), "70001-1")
}

func TestAddRejectsDuplicateDevice(t *testing.T) {
	bus, err := virtualbus.NewWithBusID(70002)
	require.NoError(t, err)
	defer bus.Close()

	dev := &stubDevice{}
	_, err = bus.Add(dev)
	require.NoError(t, err)
	_, err = bus.Add(dev)
	assert.Error(t, err)
}

func TestRemoveFreesDeviceIDAndCancelsContext(t *testing.T) {
	bus, err := virtualbus.NewWithBusID(70003)
	require.NoError(t, err)
	defer bus.Close()

	a := &stubDevice{}
	ctx, err := bus.Add(a)
	require.NoError(t, err)

	require.NoError(t, bus.Remove(a))
	select {
	case <-ctx.Done():
	default:
		t.Fatal("context not cancelled on remove")
	}
	assert.Nil(t, bus.Context(a))

	// The freed ID is reused by the next attach.
	b := &stubDevice{}
	_, err = bus.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "70003-1", bus.DeviceMetas()[0].Meta.BusDeviceID())
}

func TestRemoveDeviceByID(t *testing.T) {
	bus, err := virtualbus.NewWithBusID(70004)
	require.NoError(t, err)
	defer bus.Close()

	_, err = bus.Add(&stubDevice{})
	require.NoError(t, err)

	require.Error(t, bus.RemoveDeviceByID("9"))
	require.NoError(t, bus.RemoveDeviceByID("1"))
	assert.Empty(t, bus.Devices())
}

func TestNewWithBusIDRejectsDuplicates(t *testing.T) {
	bus, err := virtualbus.NewWithBusID(70005)
	require.NoError(t, err)

	_, err = virtualbus.NewWithBusID(70005)
	assert.Error(t, err)

	// Close frees the number for reuse.
	require.NoError(t, bus.Close())
	again, err := virtualbus.NewWithBusID(70005)
	require.NoError(t, err)
	_ = again.Close()
}

func TestNewSkipsReservedBusNumbers(t *testing.T) {
	first := virtualbus.New()
	defer first.Close()

	reserved, err := virtualbus.NewWithBusID(first.BusID() + 1)
	require.NoError(t, err)
	defer reserved.Close()

	next := virtualbus.New()
	defer next.Close()
	assert.NotEqual(t, reserved.BusID(), next.BusID())
	assert.Equal(t, first.BusID()+2, next.BusID())
}

func TestCloseCancelsAllDevices(t *testing.T) {
	bus, err := virtualbus.NewWithBusID(70006)
	require.NoError(t, err)

	a, b := &stubDevice{}, &stubDevice{}
	ctxA, err := bus.Add(a)
	require.NoError(t, err)
	ctxB, err := bus.Add(b)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	for _, ctx := range []interface{ Done() <-chan struct{} }{ctxA, ctxB} {
		select {
		case <-ctx.Done():
		default:
			t.Fatal("context not cancelled on close")
		}
	}
}
