// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5bv3

import (
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// errorHandler runs a command sequence against the device and keeps the
// first error. Every step after a failure is a no-op.
type errorHandler struct {
	d   Dev
	err error
}

func (eh *errorHandler) out(p gpio.PinOut, l gpio.Level) {
	if eh.err == nil {
		eh.err = p.Out(l)
	}
}

func (eh *errorHandler) rstOut(l gpio.Level) {
	eh.out(eh.d.rst, l)
}

// write sends b with the data/command line at dc, in pieces no larger than
// the port accepts.
func (eh *errorHandler) write(dc gpio.Level, b []byte) {
	chunk := len(b)
	if l, ok := eh.d.c.(conn.Limits); ok && l.MaxTxSize() > 0 && l.MaxTxSize() < chunk {
		chunk = l.MaxTxSize()
	}

	eh.out(eh.d.dc, dc)
	eh.out(eh.d.cs, gpio.Low)
	for len(b) > 0 && eh.err == nil {
		n := len(b)
		if n > chunk {
			n = chunk
		}
		eh.err = eh.d.c.Tx(b[:n], nil)
		b = b[n:]
	}
	eh.out(eh.d.cs, gpio.High)
}

func (eh *errorHandler) sendCommand(cmd byte) {
	eh.write(gpio.Low, []byte{cmd})
}

func (eh *errorHandler) sendData(data []byte) {
	eh.write(gpio.High, data)
}

// waitUntilIdle polls the busy line, which the UC8179 holds low while it
// works.
func (eh *errorHandler) waitUntilIdle() {
	if eh.err != nil {
		return
	}

	deadline := time.Now().Add(eh.d.busyTimeout())
	for eh.d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			eh.err = ErrBusyTimeout
			return
		}
		time.Sleep(busyPollInterval)
	}
}
