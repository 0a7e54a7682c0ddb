package bus

import (
	"errors"
	"fmt"
	"strings"
)

// Address is a 7-bit bus address.
type Address uint8

const (
	MinAddress Address = 0x00
	MaxAddress Address = 0x7F

	// Addresses outside [FirstUsable, LastUsable] are reserved for special bus
	// operations (general call, CBUS, HS mode, 10-bit addressing).
	FirstUsable Address = 0x08
	LastUsable  Address = 0x77
)

// Status is the completion code of one bus transaction. The numbering follows
// the Wire library's endTransmission codes.
type Status uint8

const (
	StatusSuccess     Status = 0x00
	StatusDataTooLong Status = 0x01
	StatusNackAddress Status = 0x02
	StatusNackData    Status = 0x03
	StatusOther       Status = 0x04
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusDataTooLong:
		return "data too long"
	case StatusNackAddress:
		return "nack on address"
	case StatusNackData:
		return "nack on data"
	case StatusOther:
		return "other error"
	default:
		return "unknown"
	}
}

// Outcome folds a Status into what a probe needs to know.
func (s Status) Outcome() Outcome {
	switch s {
	case StatusSuccess:
		return Acknowledged
	case StatusNackAddress:
		return NotAcknowledged
	default:
		return TransportError
	}
}

type Outcome uint8

const (
	Acknowledged Outcome = iota
	NotAcknowledged
	TransportError
)

func (o Outcome) String() string {
	switch o {
	case Acknowledged:
		return "ack"
	case NotAcknowledged:
		return "nack"
	case TransportError:
		return "transport error"
	default:
		return "unknown"
	}
}

// Transport is a bus that can run a combined write/read transaction.
// machine.I2C satisfies it on TinyGo targets.
type Transport interface {
	Tx(addr uint16, w, r []byte) error
}

// StatusError carries the completion status of a failed transaction.
type StatusError struct {
	Addr   Address
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("i2c 0x%02X: %s: %v", uint8(e.Addr), e.Status, e.Err)
	}
	return fmt.Sprintf("i2c 0x%02X: %s", uint8(e.Addr), e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Classify recovers the completion status from an error returned by Tx.
func Classify(err error) Status {
	if err == nil {
		return StatusSuccess
	}

	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}

	// TinyGo's machine packages only expose NACKs as error text.
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "nack") && !strings.Contains(msg, "no ack") {
		return StatusOther
	}
	if strings.Contains(msg, "data") {
		return StatusNackData
	}
	return StatusNackAddress
}
