//go:build !linux
// +build !linux

package linux

import "io"

func newSocket(n int) (io.ReadWriteCloser, error) { return nil, ErrNotSupported }
