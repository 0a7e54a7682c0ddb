//go:build !linux

package main

import (
	"errors"
	"runtime"
)

func openI2CDev(name string, khz int) (transport, error) {
	return nil, errors.New("i2cdev transport is not available on " + runtime.GOOS)
}
