// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package waveshare7in5bv3

import (
	"encoding/binary"
	"image"

	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type controller interface {
	sendCommand(byte)
	sendData([]byte)
	waitUntilIdle()
}

func initDisplay(ctrl controller, opts *Opts) {
	// VGH=20V, VGL=-20V, VDH=15V, VDL=-15V
	ctrl.sendCommand(powerSetting)
	ctrl.sendData([]byte{0x07, 0x07, 0x3F, 0x3F})

	ctrl.sendCommand(powerOn)
	ctrl.waitUntilIdle()

	// Tri-color, LUT from OTP.
	ctrl.sendCommand(panelSetting)
	ctrl.sendData([]byte{0x0F})

	res := [4]byte{}
	binary.BigEndian.PutUint16(res[0:], uint16(opts.Width))
	binary.BigEndian.PutUint16(res[2:], uint16(opts.Height))
	ctrl.sendCommand(resolutionSetting)
	ctrl.sendData(res[:])

	ctrl.sendCommand(dualSPI)
	ctrl.sendData([]byte{0x00})

	ctrl.sendCommand(vcomAndDataIntervalSetting)
	ctrl.sendData([]byte{0x11, 0x07})

	ctrl.sendCommand(tconSetting)
	ctrl.sendData([]byte{0x22})

	ctrl.sendCommand(gateSourceStartSetting)
	ctrl.sendData([]byte{0x00, 0x00, 0x00, 0x00})
}

func refreshDisplay(ctrl controller) {
	ctrl.sendCommand(displayRefresh)
	ctrl.waitUntilIdle()
}

func sleepDisplay(ctrl controller) {
	ctrl.sendCommand(powerOff)
	ctrl.waitUntilIdle()

	ctrl.sendCommand(deepSleep)
	ctrl.sendData([]byte{deepSleepCheckCode})
}

// sendPlane uploads the size.X x size.Y area of buf, one row per transfer,
// eight pixels per byte with the leftmost pixel in the most significant bit.
func sendPlane(ctrl controller, cmd byte, buf *image1bit.VerticalLSB, size image.Point) {
	ctrl.sendCommand(cmd)

	rowData := make([]byte, (size.X+7)/8)

	for y := 0; y < size.Y; y++ {
		for x := range rowData {
			rowData[x] = 0

			for bit := 0; bit < 8; bit++ {
				if buf.BitAt(x*8+bit, y) {
					rowData[x] |= 0x80 >> bit
				}
			}
		}

		ctrl.sendData(rowData)
	}
}

func uploadPlanes(ctrl controller, p *planes, size image.Point) {
	sendPlane(ctrl, dataStartTransmission1, p.black, size)
	sendPlane(ctrl, dataStartTransmission2, p.red, size)
}
