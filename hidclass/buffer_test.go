package hidclass_test

import (
	"testing"

	"github.com/dlkj/usbd-human-interface-device/hidclass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportBufferLatestWins(t *testing.T) {
	b := hidclass.NewReportBuffer([]hidclass.ReportDecl{{ID: 0, Size: 3}})

	require.NoError(t, b.Write([]byte{0x01, 0x00, 0x00}))
	require.NoError(t, b.Write([]byte{0x02, 0x00, 0x00}))

	buf := make([]byte, 8)
	n, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x00, 0x00}, buf[:n], "second write must replace the first")

	_, err = b.Read(buf)
	assert.ErrorIs(t, err, hidclass.ErrWouldBlock, "overwritten report must not reappear")
}

func TestReportBufferEmptyRead(t *testing.T) {
	b := hidclass.NewReportBuffer([]hidclass.ReportDecl{{ID: 0, Size: 4}})

	buf := make([]byte, 8)
	n, err := b.Read(buf)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, hidclass.ErrWouldBlock)
}

func TestReportBufferNumbered(t *testing.T) {
	type testCase struct {
		name     string
		decls    []hidclass.ReportDecl
		numbered bool
	}

	cases := []testCase{
		{
			name:     "single id zero report",
			decls:    []hidclass.ReportDecl{{ID: 0, Size: 8}},
			numbered: false,
		},
		{
			name:     "single non-zero id",
			decls:    []hidclass.ReportDecl{{ID: 1, Size: 8}},
			numbered: true,
		},
		{
			name:     "multiple reports",
			decls:    []hidclass.ReportDecl{{ID: 1, Size: 4}, {ID: 2, Size: 2}},
			numbered: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := hidclass.NewReportBuffer(tc.decls)
			assert.Equal(t, tc.numbered, b.Numbered())
		})
	}
}

func TestReportBufferPerIDSlots(t *testing.T) {
	b := hidclass.NewReportBuffer([]hidclass.ReportDecl{{ID: 1, Size: 3}, {ID: 2, Size: 3}})

	require.NoError(t, b.Write([]byte{0x01, 0xAA, 0xBB}))
	require.NoError(t, b.Write([]byte{0x02, 0xCC, 0xDD}))
	require.NoError(t, b.Write([]byte{0x01, 0xEE, 0xFF}), "rewrite of id 1 must not disturb id 2")

	buf := make([]byte, 8)
	n, ok := b.Take(1, buf)
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0xEE, 0xFF}, buf[:n])

	n, ok = b.Take(2, buf)
	require.True(t, ok)
	assert.Equal(t, []byte{0x02, 0xCC, 0xDD}, buf[:n])
}

func TestReportBufferRejectsUndeclaredID(t *testing.T) {
	b := hidclass.NewReportBuffer([]hidclass.ReportDecl{{ID: 1, Size: 3}})

	err := b.Write([]byte{0x07, 0x00, 0x00})
	assert.ErrorIs(t, err, hidclass.ErrUnsupportedReportID)
}

func TestReportBufferGetDoesNotConsume(t *testing.T) {
	b := hidclass.NewReportBuffer([]hidclass.ReportDecl{{ID: 0, Size: 2}})
	require.NoError(t, b.Write([]byte{0x12, 0x34}))

	buf := make([]byte, 8)
	for i := 0; i < 2; i++ {
		n, ok := b.Get(0, buf)
		require.True(t, ok)
		assert.Equal(t, []byte{0x12, 0x34}, buf[:n])
	}

	n, err := b.Read(buf)
	require.NoError(t, err, "Get must leave the report pending")
	assert.Equal(t, 2, n)
}
