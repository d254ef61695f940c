// Package device implements the QRFS visual block device: a durable
// mapping from block index to byte payload, backed by one PNG file per
// block (spec.md §4.1). Grounded on
// original_source/qrfs/crates/qrfs_lib/src/device.rs, translated into the
// Go ecosystem's QR libraries: github.com/nayuki/qrcodegen for encoding
// (the only QR-capable package retrieved in the example corpus) and
// github.com/makiuchi-d/gozxing for decoding (named, not grounded — no
// decode-capable QR package appears anywhere in the corpus).
package device

import (
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/ajrojasfuentes/qrfs"
	"github.com/ajrojasfuentes/qrfs/errors"
	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/nayuki/qrcodegen"
	"github.com/nayuki/qrcodegen/qrcodeecc"
	"github.com/nayuki/qrcodegen/qrsegment"
	"github.com/nayuki/qrcodegen/version"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// quietZoneModules is the number of blank modules of border drawn around
// the QR grid, matching the "quiet zone" spec.md §4.1 requires for
// reliable detection.
const quietZoneModules = 4

// upscaleFactor is how much a decoded PNG is enlarged (nearest-neighbor)
// before grid detection, giving the detector enough pixels per module to
// work with even though the source images are rendered at 1 pixel/module.
const upscaleFactor = 4

// Device is a durable block store backed by a directory of PNG images
// named qr_{index:05}.png. It has no seek, append, or partial-block write:
// each block is written and read as an independent, whole unit.
type Device struct {
	rootPath string
	log      *logrus.Entry
}

// New ensures the backing directory exists and returns a handle to it.
func New(path string) (*Device, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return &Device{
		rootPath: path,
		log:      logrus.WithField("component", "device").WithField("path", path),
	}, nil
}

func (d *Device) pathFor(blockID uint64) string {
	return filepath.Join(d.rootPath, fmt.Sprintf("qr_%05d.png", blockID))
}

// Write Base64-encodes data, renders it as a QR code at the highest
// standard version with low error correction, and writes it as a
// grayscale PNG. It rejects payloads larger than qrfs.BlockSize.
func (d *Device) Write(blockID uint64, data []byte) error {
	if len(data) > qrfs.BlockSize {
		return errors.ErrIOFailed.WithMessage(
			fmt.Sprintf("payload of %d bytes exceeds block size %d", len(data), qrfs.BlockSize))
	}

	encoded := base64.StdEncoding.EncodeToString(data)
	segs := qrsegment.MakeSegments([]rune(encoded))
	code, err := qrcodegen.EncodeSegmentsAdvanced(segs, qrcodeecc.Low, version.Max, version.Max, nil, true)
	if err != nil {
		d.log.WithError(err).WithField("block", blockID).Error("QR encoding failed")
		return errors.ErrIOFailed.WrapError(err)
	}

	img := renderQRCode(code)

	path := d.pathFor(blockID)
	file, err := os.Create(path)
	if err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return errors.ErrIOFailed.WrapError(err)
	}
	return nil
}

// Read loads the PNG for blockID, decodes its QR payload back to bytes. A
// missing file is not an error: the medium is sparse, and an absent block
// reads as qrfs.BlockSize zero bytes.
func (d *Device) Read(blockID uint64) ([]byte, error) {
	path := d.pathFor(blockID)

	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return make([]byte, qrfs.BlockSize), nil
	}
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	defer file.Close()

	img, err := png.Decode(file)
	if err != nil {
		d.log.WithError(err).WithField("block", blockID).Error("image decode failed")
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	scaled := upscale(img, upscaleFactor)

	bitmap, err := gozxing.NewBinaryBitmapFromImage(scaled)
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	reader := qrcode.NewQRCodeReader()
	result, err := reader.Decode(bitmap, nil)
	if err != nil {
		d.log.WithError(err).WithField("block", blockID).Error("QR decoding failed")
		return nil, errors.ErrIOFailed.WrapError(err)
	}

	data, err := base64.StdEncoding.DecodeString(result.GetText())
	if err != nil {
		return nil, errors.ErrIOFailed.WrapError(err)
	}
	return data, nil
}

// Count returns the number of qr_*.png files present, a diagnostic only.
func (d *Device) Count() (int, error) {
	entries, err := os.ReadDir(d.rootPath)
	if err != nil {
		return 0, errors.ErrIOFailed.WrapError(err)
	}

	count := 0
	for _, entry := range entries {
		if ok, _ := filepath.Match("qr_*.png", entry.Name()); ok {
			count++
		}
	}
	return count, nil
}

// Trim removes the backing files for block indices in [start, end), used
// by qrfs/volume.Resize to reclaim host disk space on shrink.
func (d *Device) Trim(start, end uint64) error {
	for i := start; i < end; i++ {
		path := d.pathFor(i)
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.ErrIOFailed.WrapError(err)
		}
	}
	return nil
}

// renderQRCode draws code as a 1-module-per-pixel grayscale image with a
// quiet-zone border.
func renderQRCode(code *qrcodegen.QrCode) *image.Gray {
	size := int(code.Size())
	dim := size + 2*quietZoneModules

	img := image.NewGray(image.Rect(0, 0, dim, dim))
	white := color.Gray{Y: 255}
	black := color.Gray{Y: 0}

	for y := 0; y < dim; y++ {
		for x := 0; x < dim; x++ {
			img.SetGray(x, y, white)
		}
	}

	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if code.GetModule(int32(x), int32(y)) {
				img.SetGray(x+quietZoneModules, y+quietZoneModules, black)
			}
		}
	}

	return img
}

// upscale enlarges img by factor using nearest-neighbor interpolation, the
// same "magnifying glass trick" the Rust original uses: the detector needs
// more pixels per module than a 1px/module render provides.
func upscale(img image.Image, factor int) image.Image {
	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx()*factor, bounds.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
