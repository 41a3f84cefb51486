package controller

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/dotbot-project/fleet-controller/internal/protocol"
)

// homographySize is the fixed byte length of the calibration homography
// matrix written by the calibration exporter, per
// original_source/dotbot/controller.py's load_calibration (4-byte LE index
// followed by a 36-byte homography).
const homographySize = 36

// LoadCalibration reads the calibration artifact from path: a 4-byte
// little-endian index followed by a fixed-size homography. A missing file is
// not an error — it means the controller has no calibration to hand off yet
// (nil, nil).
func LoadCalibration(path string) (*protocol.Lh2CalibrationBody, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 4+homographySize)
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	homography := make([]byte, homographySize)
	copy(homography, buf[4:])
	return &protocol.Lh2CalibrationBody{
		Index:      binary.LittleEndian.Uint32(buf[0:4]),
		Homography: homography,
	}, nil
}
