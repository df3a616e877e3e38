package errs

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestKindMatching(t *testing.T) {
	err := Decode("audio", "cannot read header", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("run: %w", err)

	if !errors.Is(wrapped, ErrDecode) {
		t.Error("expected wrapped error to match ErrDecode")
	}
	if errors.Is(wrapped, ErrEncode) {
		t.Error("decode error must not match ErrEncode")
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("cause should stay reachable through Unwrap")
	}
	if got := KindOf(wrapped); got != KindDecode {
		t.Errorf("KindOf = %s, want %s", got, KindDecode)
	}
	if got := KindOf(io.EOF); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}

func TestErrorMessage(t *testing.T) {
	err := Encode("mux", "ffmpeg failed", &FFmpegError{ExitCode: 1, Stderr: "Unknown encoder"})
	msg := err.Error()
	for _, want := range []string{"ENCODE_ERROR", "stage=mux", "ffmpeg failed", "Unknown encoder"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q does not contain %q", msg, want)
		}
	}
}

func TestValidationField(t *testing.T) {
	err := Validation("smoothing_factor", 1.5, "must be in (0,1)")
	if err.Fields["field"] != "smoothing_factor" {
		t.Errorf("field = %v", err.Fields["field"])
	}
	if !errors.Is(err, ErrValidation) {
		t.Error("expected ErrValidation")
	}
}

func TestTruncateKeepsTail(t *testing.T) {
	s := strings.Repeat("a", 500) + "tail"
	got := truncate(s, 10)
	if !strings.HasSuffix(got, "tail") || len(got) != 13 {
		t.Errorf("truncate = %q", got)
	}
}
