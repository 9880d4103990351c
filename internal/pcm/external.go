package pcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"panako/internal/xerrors"
)

func init() {
	// "*" is the fallback opener consulted by Open for any extension that
	// has no dedicated Opener registered (MP3, FLAC, M4A, MPEG-TS, ...).
	// The core never writes temporary files for this path: ffmpeg's
	// stdout is read directly as raw interleaved PCM, matching the
	// optional TS-decoder collaborator contract in §6.
	Register("*", openExternal)
}

// externalDecodeRate is the rate requested from the external decoder.
// Decoding straight to the target rate avoids a second resample pass in
// the common case, but pcm.Open still runs samples through Resample/
// Downmix so behavior is identical regardless of which opener ran.
const externalDecodeRate = TargetSampleRate

func openExternal(path string) ([]float32, int, int, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, 0, 0, xerrors.Newf(xerrors.UnsupportedInput, "ffmpeg not available to decode %s", path)
	}

	cmd := exec.Command("ffmpeg",
		"-v", "error",
		"-i", path,
		"-f", "f32le",
		"-ar", fmt.Sprint(externalDecodeRate),
		"-ac", "1",
		"-",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, 0, 0, xerrors.Newf(xerrors.DecodeError, "ffmpeg decode of %s failed: %v (%s)", path, err, msg)
	}

	raw := stdout.Bytes()
	n := len(raw) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}

	return samples, externalDecodeRate, 1, nil
}
