package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Outcome is the verdict of one security handler evaluation.
// The numeric values are the historical firmware return codes.
type Outcome uint8

const (
	OutcomeAccept         Outcome = 0x01 // BOOT_OK
	OutcomeReject         Outcome = 0xFF // AUTH_FAIL
	OutcomeMalformedInput Outcome = 0xEE // HARDWARE_ERR
)

// String returns the lower-case name of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeAccept:
		return "accept"
	case OutcomeReject:
		return "reject"
	case OutcomeMalformedInput:
		return "malformed"
	default:
		return fmt.Sprintf("outcome(0x%02X)", uint8(o))
	}
}

// Code returns the firmware return code.
func (o Outcome) Code() uint8 {
	return uint8(o)
}

// Valid returns true if the outcome is one of the three known verdicts.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeAccept, OutcomeReject, OutcomeMalformedInput:
		return true
	}
	return false
}

// ParseOutcome maps a name produced by String back to an Outcome.
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return OutcomeAccept, nil
	case "reject":
		return OutcomeReject, nil
	case "malformed":
		return OutcomeMalformedInput, nil
	}
	return 0, fmt.Errorf("unknown outcome %q (valid: accept, reject, malformed)", s)
}

// MarshalJSON encodes the outcome by name.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes an outcome name.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOutcome(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}
