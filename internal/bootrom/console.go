package bootrom

import (
	"fmt"
	"io"

	"github.com/nvandessel/glitchsim/internal/models"
)

// Console messages printed by the boot console.
const (
	MsgCorrupted = "[ERROR] Image Corrupted / Truncated."
	MsgVerifying = "[BOOT] Verifying Signature (Dilithium-3 Hardware Accel)..."
	MsgAccepted  = "[SUCCESS] BOOT SEQUENCE INITIATED."
	MsgRejected  = "[FAILURE] SECURITY VIOLATION DETECTED. SYSTEM HALTED."
	InputPrompt  = "[INPUT] Enter Stream (Hex): > "
)

var bannerLines = []string{
	"==========================================",
	"   SECURE BOOTLOADER v2.0 (HARDENED)      ",
	"==========================================",
	"[BOOT] Initializing Hardware Abstraction...",
	"[BOOT] Waiting for Signed Firmware Image...",
}

// WriteBanner writes the boot banner followed by the input prompt.
func WriteBanner(w io.Writer) error {
	for _, line := range bannerLines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, InputPrompt)
	return err
}

// Message returns the console line for an outcome.
func Message(o models.Outcome) string {
	switch o {
	case models.OutcomeAccept:
		return MsgAccepted
	case models.OutcomeReject:
		return MsgRejected
	default:
		return MsgCorrupted
	}
}
