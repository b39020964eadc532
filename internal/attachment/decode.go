// Package attachment turns screenshot data URLs posted by the report widget
// into image files in the upload directory.
package attachment

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoUploadDir     = errors.New("attachment: upload directory not configured")
	ErrNotDataURL      = errors.New("attachment: not an image data URL")
	ErrUnsupportedType = errors.New("attachment: unsupported image type")
	ErrUndecodable     = errors.New("attachment: payload is not valid base64")
	ErrEmptyPayload    = errors.New("attachment: payload is empty")
)

var (
	dataURLPattern  = regexp.MustCompile(`^data:image/(\w+);base64,`)
	fileNamePattern = regexp.MustCompile(`^\d+\.(jpg|jpeg|gif|png)$`)
)

var allowedSubtypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"png":  true,
}

// Attachment is a screenshot written to disk. The file is owned by the
// caller once Decode returns.
type Attachment struct {
	Subtype string
	Path    string
	Size    int
}

// Decoder writes decoded screenshots into Dir.
type Decoder struct {
	Dir string
	Now func() time.Time
}

func NewDecoder(dir string) *Decoder {
	return &Decoder{Dir: dir, Now: time.Now}
}

// Decode validates a data:image/<subtype>;base64,<payload> URL and writes the
// payload to <Dir>/<unix-seconds>.<subtype>. Two screenshots decoded in the
// same second share a name and the later one wins.
//
// A nil Attachment is always paired with an error; nothing is written unless
// the URL passes every check.
func (d *Decoder) Decode(dataURL string) (*Attachment, error) {
	if d.Dir == "" {
		return nil, ErrNoUploadDir
	}

	m := dataURLPattern.FindStringSubmatch(dataURL)
	if m == nil {
		return nil, ErrNotDataURL
	}

	subtype := strings.ToLower(m[1])
	if !allowedSubtypes[subtype] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, subtype)
	}

	payload := dataURL[strings.IndexByte(dataURL, ',')+1:]
	data, err := decodePayload(payload)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(d.Dir, strconv.FormatInt(d.now().Unix(), 10)+"."+subtype)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("attachment: write %s: %w", path, err)
	}

	return &Attachment{Subtype: subtype, Path: path, Size: len(data)}, nil
}

// IsScreenshotName reports whether name has the form Decode writes.
func IsScreenshotName(name string) bool {
	return fileNamePattern.MatchString(name)
}

// Remove deletes a previously decoded attachment. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("attachment: remove %s: %w", path, err)
	}
	return nil
}

func (d *Decoder) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// decodePayload undoes form encoding that turned '+' into ' ' and accepts
// both padded and unpadded base64.
func decodePayload(payload string) ([]byte, error) {
	payload = strings.ReplaceAll(payload, " ", "+")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(payload)
		if err != nil {
			return nil, ErrUndecodable
		}
	}
	if len(data) == 0 {
		return nil, ErrEmptyPayload
	}
	return data, nil
}
