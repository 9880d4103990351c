package pcm

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"

	"panako/internal/xerrors"
)

func init() {
	Register(".wav", openWAV)
}

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BytesPerSec   uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// openWAV reads a canonical 44-byte-header PCM or IEEE-float WAV file and
// returns its samples as float32 in [-1, 1], with its native sample rate
// and channel count (not yet resampled or downmixed).
func openWAV(path string) ([]float32, int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, 0, xerrors.New(xerrors.IoError, err)
	}
	if len(data) < 44 {
		return nil, 0, 0, xerrors.Newf(xerrors.DecodeError, "%s: file too short to be a WAV", path)
	}

	var hdr wavHeader
	if err := binary.Read(bytes.NewReader(data[:36]), binary.LittleEndian, &hdr); err != nil {
		return nil, 0, 0, xerrors.New(xerrors.DecodeError, err)
	}
	if string(hdr.ChunkID[:]) != "RIFF" || string(hdr.Format[:]) != "WAVE" {
		return nil, 0, 0, xerrors.Newf(xerrors.UnsupportedInput, "%s: not a RIFF/WAVE file", path)
	}

	fmtFound := hdr.AudioFormat != 0
	dataBytes, err := findDataChunk(data[12:])
	if err != nil {
		return nil, 0, 0, err
	}
	if !fmtFound {
		return nil, 0, 0, xerrors.Newf(xerrors.DecodeError, "%s: missing fmt chunk", path)
	}

	samples, err := decodeSamples(dataBytes, int(hdr.BitsPerSample), hdr.AudioFormat)
	if err != nil {
		return nil, 0, 0, err
	}

	return samples, int(hdr.SampleRate), int(hdr.NumChannels), nil
}

// findDataChunk walks RIFF sub-chunks (starting right after "WAVE") to
// locate the "data" chunk's payload, tolerating extra chunks ("LIST",
// "fact", ...) that real-world encoders insert between fmt and data.
func findDataChunk(body []byte) ([]byte, error) {
	off := 0
	for off+8 <= len(body) {
		id := string(body[off : off+4])
		size := binary.LittleEndian.Uint32(body[off+4 : off+8])
		start := off + 8
		end := start + int(size)
		if end > len(body) {
			end = len(body)
		}
		if id == "data" {
			return body[start:end], nil
		}
		off = end
		if size%2 == 1 {
			off++ // chunks are word-aligned
		}
	}
	return nil, xerrors.Newf(xerrors.DecodeError, "no data chunk found")
}

func decodeSamples(data []byte, bitsPerSample int, audioFormat uint16) ([]float32, error) {
	const formatPCM = 1
	const formatIEEEFloat = 3

	switch {
	case audioFormat == formatIEEEFloat && bitsPerSample == 32:
		n := len(data) / 4
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			out[i] = math.Float32frombits(bits)
		}
		return out, nil

	case audioFormat == formatPCM && bitsPerSample == 16:
		n := len(data) / 2
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(data[i*2:]))
			out[i] = float32(v) / 32768.0
		}
		return out, nil

	case audioFormat == formatPCM && bitsPerSample == 24:
		n := len(data) / 3
		out := make([]float32, n)
		for i := 0; i < n; i++ {
			b0, b1, b2 := data[i*3], data[i*3+1], data[i*3+2]
			v := int32(b0) | int32(b1)<<8 | int32(b2)<<16
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF) // sign-extend
			}
			out[i] = float32(v) / 8388608.0
		}
		return out, nil

	case audioFormat == formatPCM && bitsPerSample == 8:
		out := make([]float32, len(data))
		for i, b := range data {
			out[i] = (float32(b) - 128) / 128.0
		}
		return out, nil

	default:
		return nil, xerrors.Newf(xerrors.DecodeError, "unsupported WAV encoding (format=%d bits=%d)", audioFormat, bitsPerSample)
	}
}

