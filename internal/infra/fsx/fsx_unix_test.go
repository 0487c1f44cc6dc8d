//go:build unix

package fsx

import (
	"errors"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRename_CrossDeviceEXDEV(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}
	defer func() { renameFunc = old }()

	err := Rename("/a/p_001.jpg", "/b/p/p_001.jpg")
	require.Error(t, err)
	assert.True(t, IsCrossDevice(err), "期望 CrossDeviceError，实际：%T %v", err, err)
	assert.True(t, errors.Is(err, syscall.EXDEV))

	var ce *CrossDeviceError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "/a/p_001.jpg", ce.Src)
	assert.Equal(t, "/b/p/p_001.jpg", ce.Dst)
}

func TestRename_OtherErrorsPassThrough(t *testing.T) {
	old := renameFunc
	renameFunc = func(oldpath, newpath string) error { return os.ErrPermission }
	defer func() { renameFunc = old }()

	err := Rename("/a", "/b")
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.False(t, IsCrossDevice(err))
}
