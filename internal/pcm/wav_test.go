package pcm

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildWAV16 assembles a canonical 44-byte-header, 16-bit PCM mono WAV
// file from raw int16 samples.
func buildWAV16(t *testing.T, sampleRate int, samples []int16) []byte {
	t.Helper()

	var buf bytes.Buffer
	dataSize := len(samples) * 2
	byteRate := sampleRate * 2

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16)) // Subchunk1Size
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(1))  // mono
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(2)) // block align
	binary.Write(&buf, binary.LittleEndian, uint16(16))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	for _, s := range samples {
		binary.Write(&buf, binary.LittleEndian, s)
	}

	return buf.Bytes()
}

func TestOpenWAVRoundTripsPCM16(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := []int16{0, 16384, -16384, 32767, -32768}
	if err := os.WriteFile(path, buildWAV16(t, 44100, samples), 0o644); err != nil {
		t.Fatal(err)
	}

	out, sr, ch, err := openWAV(path)
	if err != nil {
		t.Fatalf("openWAV: %v", err)
	}
	if sr != 44100 || ch != 1 {
		t.Fatalf("sr=%d ch=%d, want sr=44100 ch=1", sr, ch)
	}
	if len(out) != len(samples) {
		t.Fatalf("got %d samples, want %d", len(out), len(samples))
	}

	want := []float32{0, 0.5, -0.5, 32767.0 / 32768.0, -1}
	for i, w := range want {
		if diff := out[i] - w; diff > 1e-4 || diff < -1e-4 {
			t.Fatalf("sample %d = %v, want %v", i, out[i], w)
		}
	}
}

func TestOpenWAVRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, _, err := openWAV(path); err == nil {
		t.Fatal("expected an error for a truncated file")
	}
}

func TestOpenWAVToleratesExtraChunks(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "withlist.wav")

	base := buildWAV16(t, 8000, []int16{100, -100})
	// Splice a LIST chunk between fmt and data.
	fmtEnd := 12 + 8 + 16 // RIFF header + "fmt " chunk header + body
	listChunk := append([]byte("LIST"), 0, 0, 0, 0)
	spliced := append(append(append([]byte{}, base[:fmtEnd]...), listChunk...), base[fmtEnd:]...)

	// Fix up the RIFF size for the inserted bytes.
	binary.LittleEndian.PutUint32(spliced[4:8], uint32(len(spliced)-8))

	if err := os.WriteFile(path, spliced, 0o644); err != nil {
		t.Fatal(err)
	}

	out, _, _, err := openWAV(path)
	if err != nil {
		t.Fatalf("openWAV: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d samples, want 2", len(out))
	}
}
