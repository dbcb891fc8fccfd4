//go:build !linux

package main

import "fmt"

// Placeholder so non-linux builds compile; raw CAN sockets are linux only.
var openCANDevice = func(cfg *appConfig) (canDevice, error) {
	return nil, fmt.Errorf("socketcan unsupported on this platform")
}
