package scrubber

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// appIcon is a 32x32 slider glyph (track plus thumb), used for toasts and the tray
var appIcon = func() []byte {
	const size = 32

	var (
		track = color.NRGBA{R: 0x9e, G: 0x9e, B: 0x9e, A: 0xff}
		thumb = color.NRGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}
	)

	img := image.NewNRGBA(image.Rect(0, 0, size, size))

	for x := 2; x < size-2; x++ {
		img.Set(x, size/2-1, track)
		img.Set(x, size/2, track)
	}

	// round thumb, slightly left of centre
	const cx, cy, r = 12, size / 2, 7
	for y := cy - r; y <= cy+r; y++ {
		for x := cx - r; x <= cx+r; x++ {
			if (x-cx)*(x-cx)+(y-cy)*(y-cy) <= r*r {
				img.Set(x, y, thumb)
			}
		}
	}

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, img); err != nil {
		return nil
	}

	return buf.Bytes()
}()
