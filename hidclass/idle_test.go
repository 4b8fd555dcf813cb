package hidclass_test

import (
	"testing"

	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdleTimerSignalsOncePerWindow(t *testing.T) {
	type testCase struct {
		name  string
		rate  uint8
		ticks []uint32
	}

	cases := []testCase{
		{name: "single tick", rate: 10, ticks: []uint32{40}},
		{name: "millisecond ticks", rate: 10, ticks: repeat(1, 40)},
		{name: "uneven ticks", rate: 10, ticks: []uint32{7, 13, 3, 17}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var timer hidclass.IdleTimer
			timer.Reset(tc.rate)
			timer.NoteSent([]byte{0x00})

			due := 0
			for _, ms := range tc.ticks {
				if timer.Tick(ms) {
					due++
				}
			}
			assert.Equal(t, 1, due, "one idle window must signal exactly once")
		})
	}
}

func TestIdleTimerZeroRateNeverSignals(t *testing.T) {
	var timer hidclass.IdleTimer
	timer.Reset(0)
	timer.NoteSent([]byte{0x00})

	for i := 0; i < 1000; i++ {
		assert.False(t, timer.Tick(100))
	}
}

func TestIdleTimerTransmissionRestartsWindow(t *testing.T) {
	var timer hidclass.IdleTimer
	timer.Reset(10) // 40ms

	timer.NoteSent([]byte{0x01})
	assert.False(t, timer.Tick(39))
	timer.NoteSent([]byte{0x02})
	assert.False(t, timer.Tick(39), "fresh transmission must restart the countdown")
	assert.True(t, timer.Tick(1))
}

func TestIdleTimerSetRateCarriesElapsed(t *testing.T) {
	var timer hidclass.IdleTimer
	timer.Reset(125) // 500ms
	timer.NoteSent([]byte{0x00})

	require.False(t, timer.Tick(100))

	// 100ms already elapsed exceeds the new 40ms window.
	timer.SetRate(10)
	assert.True(t, timer.Tick(1), "overdue window must signal on the next tick")
	assert.False(t, timer.Tick(39))
	assert.True(t, timer.Tick(1), "subsequent windows follow the new rate")
}

func TestIdleTimerLastReport(t *testing.T) {
	var timer hidclass.IdleTimer
	timer.Reset(0)

	_, ok := timer.LastReport()
	assert.False(t, ok)

	timer.NoteSent([]byte{0xDE, 0xAD})
	last, ok := timer.LastReport()
	require.True(t, ok)
	assert.Equal(t, []byte{0xDE, 0xAD}, last)

	timer.Reset(0)
	_, ok = timer.LastReport()
	assert.False(t, ok, "reset must forget the last report")
}

func repeat(ms uint32, n int) []uint32 {
	out := make([]uint32, n)
	for i := range out {
		out[i] = ms
	}
	return out
}
