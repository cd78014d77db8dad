package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"ibl-prefilter/internal/raster"
)

// Radiance RGBE (.hdr) codec. Supports flat scanlines, the old run-length
// scheme (repeat markers 1,1,1,n) and the adaptive per-channel scheme.

const (
	hdrMagic  = "#?RADIANCE"
	hdrFormat = "FORMAT=32-bit_rle_rgbe"

	// Scanlines outside this width range cannot use the per-channel scheme.
	minRLEWidth = 8
	maxRLEWidth = 0x7fff

	maxHeaderLines = 1024
	maxPixels      = 1 << 28
)

var errCorrupt = errors.New("corrupt RGBE data")

// DecodeHDR reads a Radiance picture. Texels come back top-down with
// alpha 1.
func DecodeHDR(r io.Reader) (*raster.HDRImage, error) {
	br := bufio.NewReader(r)

	line, err := readLine(br)
	if err != nil {
		return nil, fmt.Errorf("imageio: hdr header: %w", err)
	}
	if !strings.HasPrefix(line, "#?") {
		return nil, fmt.Errorf("imageio: hdr: missing magic, got %q", line)
	}
	for i := 0; ; i++ {
		if i > maxHeaderLines {
			return nil, fmt.Errorf("imageio: hdr: header too long")
		}
		line, err = readLine(br)
		if err != nil {
			return nil, fmt.Errorf("imageio: hdr header: %w", err)
		}
		if line == "" {
			break
		}
		if v, ok := strings.CutPrefix(line, "FORMAT="); ok && v != "32-bit_rle_rgbe" {
			return nil, fmt.Errorf("imageio: hdr: unsupported format %q", v)
		}
	}

	line, err = readLine(br)
	if err != nil {
		return nil, fmt.Errorf("imageio: hdr resolution: %w", err)
	}
	w, h, flip, err := parseResolution(line)
	if err != nil {
		return nil, err
	}

	img := raster.NewHDRImage(w, h)
	scan := make([]byte, w*4)
	for y := 0; y < h; y++ {
		if err := readScanline(br, scan); err != nil {
			return nil, fmt.Errorf("imageio: hdr scanline %d: %w", y, err)
		}
		row := y
		if flip {
			row = h - 1 - y
		}
		for x := 0; x < w; x++ {
			p := scan[x*4 : x*4+4]
			img.Set(x, row, decodeRGBE(p[0], p[1], p[2], p[3]))
		}
	}
	return img, nil
}

func readLine(br *bufio.Reader) (string, error) {
	s, err := br.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	return strings.TrimRight(s, "\r\n"), nil
}

// parseResolution accepts "-Y h +X w" (top-down) and "+Y h +X w".
func parseResolution(line string) (w, h int, flip bool, err error) {
	f := strings.Fields(line)
	if len(f) != 4 || f[2] != "+X" || (f[0] != "-Y" && f[0] != "+Y") {
		return 0, 0, false, fmt.Errorf("imageio: hdr: unsupported resolution line %q", line)
	}
	h, err1 := strconv.Atoi(f[1])
	w, err2 := strconv.Atoi(f[3])
	if err1 != nil || err2 != nil || w <= 0 || h <= 0 || w > maxPixels || h > maxPixels/w {
		return 0, 0, false, fmt.Errorf("imageio: hdr: bad resolution line %q", line)
	}
	return w, h, f[0] == "+Y", nil
}

func readScanline(br *bufio.Reader, scan []byte) error {
	w := len(scan) / 4
	var head [4]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		return err
	}
	if w < minRLEWidth || w > maxRLEWidth || head[0] != 2 || head[1] != 2 || head[2]&0x80 != 0 {
		copy(scan, head[:])
		return readOldScanline(br, scan)
	}
	if int(head[2])<<8|int(head[3]) != w {
		return fmt.Errorf("scanline width mismatch: %w", errCorrupt)
	}

	for ch := 0; ch < 4; ch++ {
		for x := 0; x < w; {
			count, err := br.ReadByte()
			if err != nil {
				return err
			}
			if count > 128 {
				n := int(count) - 128
				if x+n > w {
					return fmt.Errorf("run overflows scanline: %w", errCorrupt)
				}
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				for ; n > 0; n-- {
					scan[x*4+ch] = v
					x++
				}
				continue
			}
			n := int(count)
			if n == 0 || x+n > w {
				return fmt.Errorf("literal overflows scanline: %w", errCorrupt)
			}
			for ; n > 0; n-- {
				v, err := br.ReadByte()
				if err != nil {
					return err
				}
				scan[x*4+ch] = v
				x++
			}
		}
	}
	return nil
}

// readOldScanline fills scan, whose first pixel is already present, using
// flat pixels and the 1,1,1,n repeat markers.
func readOldScanline(br *bufio.Reader, scan []byte) error {
	w := len(scan) / 4
	if w == 0 {
		return fmt.Errorf("empty scanline: %w", errCorrupt)
	}
	shift := uint(0)
	x := 0
	var p [4]byte
	copy(p[:], scan[:4])
	for {
		if p[0] == 1 && p[1] == 1 && p[2] == 1 {
			if x == 0 {
				return fmt.Errorf("repeat marker at scanline start: %w", errCorrupt)
			}
			n := int(p[3]) << shift
			if x+n > w {
				return fmt.Errorf("repeat overflows scanline: %w", errCorrupt)
			}
			prev := scan[(x-1)*4 : x*4]
			for ; n > 0; n-- {
				copy(scan[x*4:], prev)
				x++
			}
			shift += 8
		} else {
			copy(scan[x*4:], p[:])
			x++
			shift = 0
		}
		if x >= w {
			return nil
		}
		if _, err := io.ReadFull(br, p[:]); err != nil {
			return err
		}
	}
}

func decodeRGBE(r, g, b, e byte) raster.Color {
	if e == 0 {
		return raster.Color{0, 0, 0, 1}
	}
	f := math.Ldexp(1, int(e)-136)
	return raster.Color{
		float32((float64(r) + 0.5) * f),
		float32((float64(g) + 0.5) * f),
		float32((float64(b) + 0.5) * f),
		1,
	}
}

func encodeRGBE(c raster.Color) [4]byte {
	r, g, b := positive(c[0]), positive(c[1]), positive(c[2])
	v := math.Max(r, math.Max(g, b))
	if v < 1e-32 || math.IsInf(v, 0) {
		return [4]byte{}
	}
	m, e := math.Frexp(v)
	scale := m * 256 / v
	return [4]byte{byte(r * scale), byte(g * scale), byte(b * scale), byte(e + 128)}
}

// positive maps NaN and negative channels to zero.
func positive(v float32) float64 {
	if !(v > 0) {
		return 0
	}
	return float64(v)
}

// EncodeHDR writes img as a top-down Radiance picture, run-length encoding
// scanlines whose width allows it. Alpha is dropped.
func EncodeHDR(w io.Writer, img *raster.HDRImage) error {
	if img == nil || img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("imageio: hdr: empty image")
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s\n\n-Y %d +X %d\n", hdrMagic, hdrFormat, img.Height, img.Width)

	rle := img.Width >= minRLEWidth && img.Width <= maxRLEWidth
	scan := make([]byte, img.Width*4)
	channel := make([]byte, img.Width)
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			p := encodeRGBE(img.At(x, y))
			copy(scan[x*4:], p[:])
		}
		if !rle {
			if _, err := bw.Write(scan); err != nil {
				return fmt.Errorf("imageio: hdr: %w", err)
			}
			continue
		}
		bw.Write([]byte{2, 2, byte(img.Width >> 8), byte(img.Width)})
		for ch := 0; ch < 4; ch++ {
			for x := range channel {
				channel[x] = scan[x*4+ch]
			}
			writeRLE(bw, channel)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("imageio: hdr: %w", err)
	}
	return nil
}

// writeRLE emits one channel of a scanline: runs of at least four equal
// bytes as (128+n, v), everything else as literal blocks of up to 128.
func writeRLE(bw *bufio.Writer, data []byte) {
	const minRun = 4
	cur := 0
	for cur < len(data) {
		beg, run, prevRun := cur, 0, 0
		for run < minRun && beg < len(data) {
			beg += run
			prevRun = run
			run = 1
			for beg+run < len(data) && run < 127 && data[beg+run] == data[beg] {
				run++
			}
		}
		// A short run right before a long one is cheaper as a run.
		if prevRun > 1 && prevRun == beg-cur {
			bw.WriteByte(byte(128 + prevRun))
			bw.WriteByte(data[cur])
			cur = beg
		}
		for cur < beg {
			n := beg - cur
			if n > 128 {
				n = 128
			}
			bw.WriteByte(byte(n))
			bw.Write(data[cur : cur+n])
			cur += n
		}
		if run >= minRun {
			bw.WriteByte(byte(128 + run))
			bw.WriteByte(data[beg])
			cur += run
		}
	}
}
