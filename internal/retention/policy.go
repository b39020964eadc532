// Package retention decides what happens to screenshot files once a report
// has been handed to the mail transport.
package retention

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bugreport/internal/attachment"
)

type Mode int

const (
	// Keep leaves files in the upload directory.
	Keep Mode = iota
	// DeleteAfterSend removes the file as soon as dispatch returns.
	DeleteAfterSend
	// MaxAge leaves files for the periodic sweep.
	MaxAge
)

var ErrInvalidPolicy = errors.New("retention: invalid policy")

type Policy struct {
	Mode   Mode
	MaxAge time.Duration
}

// ParsePolicy accepts "keep", "delete-after-send" or a max age such as
// "72h" or "30d".
func ParsePolicy(s string) (Policy, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "", "keep":
		return Policy{Mode: Keep}, nil
	case "delete-after-send":
		return Policy{Mode: DeleteAfterSend}, nil
	}

	age, err := parseAge(s)
	if err != nil || age <= 0 {
		return Policy{}, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
	return Policy{Mode: MaxAge, MaxAge: age}, nil
}

func parseAge(s string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}

// AfterSend applies the policy to an attachment path once dispatch has
// returned, whatever the outcome.
func (p Policy) AfterSend(path string) error {
	if p.Mode != DeleteAfterSend || path == "" {
		return nil
	}
	return attachment.Remove(path)
}

func (p Policy) String() string {
	switch p.Mode {
	case DeleteAfterSend:
		return "delete-after-send"
	case MaxAge:
		return "max-age " + p.MaxAge.String()
	default:
		return "keep"
	}
}
