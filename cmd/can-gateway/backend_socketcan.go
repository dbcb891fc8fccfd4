//go:build linux

package main

import (
	"errors"

	"github.com/canlink/go-can-gateway/internal/can"
	"github.com/canlink/go-can-gateway/internal/socketcan"
)

var errClassicFD = errors.New("classic socket cannot send an FD frame")

// classicDevice adapts a classic-frame socket to the canDevice surface.
type classicDevice struct {
	*socketcan.Socket
}

func (d classicDevice) ReadFrame() (can.AnyFrame, error) {
	fr, err := d.Socket.ReadFrame()
	if err != nil {
		return nil, err
	}
	return fr, nil
}

func (d classicDevice) WriteFrameInsist(f can.AnyFrame) error {
	cf, ok := f.(can.Frame)
	if !ok {
		return errClassicFD
	}
	return d.Socket.WriteFrameInsist(cf)
}

// openCANDevice is a hook for tests (overridden in unit tests).
var openCANDevice = func(cfg *appConfig) (canDevice, error) {
	if cfg.canFD {
		s, err := socketcan.OpenFD(cfg.canIf)
		if err != nil {
			return nil, err
		}
		if err := applySocketOptions(s, cfg); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	}
	s, err := socketcan.Open(cfg.canIf)
	if err != nil {
		return nil, err
	}
	if err := applySocketOptions(s, cfg); err != nil {
		_ = s.Close()
		return nil, err
	}
	return classicDevice{s}, nil
}

// busSocket is the option surface shared by classic and FD sockets.
type busSocket interface {
	SetFilters([]socketcan.Filter) error
	SetErrorMask(uint32) error
	SetLoopback(bool) error
	SetRecvOwnMsgs(bool) error
	SetJoinFilters(bool) error
}

func applySocketOptions(s busSocket, cfg *appConfig) error {
	specs, err := parseFilterSpec(cfg.canFilters)
	if err != nil {
		return err
	}
	if len(specs) > 0 {
		filters := make([]socketcan.Filter, 0, len(specs))
		for _, sp := range specs {
			f := socketcan.NewFilter(sp.id, sp.mask)
			if sp.inverted {
				f = socketcan.NewInvertedFilter(sp.id, sp.mask)
			}
			filters = append(filters, f)
		}
		if err := s.SetFilters(filters); err != nil {
			return err
		}
	}
	mask, err := parseErrMask(cfg.errMask)
	if err != nil {
		return err
	}
	if mask != 0 {
		if err := s.SetErrorMask(mask); err != nil {
			return err
		}
	}
	if !cfg.loopback {
		if err := s.SetLoopback(false); err != nil {
			return err
		}
	}
	if cfg.recvOwn {
		if err := s.SetRecvOwnMsgs(true); err != nil {
			return err
		}
	}
	if cfg.joinFilters {
		if err := s.SetJoinFilters(true); err != nil {
			return err
		}
	}
	return nil
}
