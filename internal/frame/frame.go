// Package frame decodes the JPEG data URLs posted by the extension's camera tab.
package frame

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// JPEGPrefix is the only data URL header accepted for a frame.
const JPEGPrefix = "data:image/jpeg;base64,"

// ErrInvalidEncoding is returned when the payload after JPEGPrefix is not valid base64.
var ErrInvalidEncoding = errors.New("invalid frame encoding")

// Submission is the JSON body of a frame upload.
type Submission struct {
	Image string `json:"image"`
}

// Decode returns the raw JPEG bytes of image.
// ok is false when image does not start with JPEGPrefix; nothing is decoded then.
func Decode(image string) (data []byte, ok bool, err error) {
	payload, found := strings.CutPrefix(image, JPEGPrefix)
	if !found {
		return nil, false, nil
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, true, fmt.Errorf("%w: %v", ErrInvalidEncoding, err)
	}
	return data, true, nil
}
