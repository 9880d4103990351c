// Package container implements the FPAN binary fingerprint file format
// (§4.E): a fixed 64-byte header, a metadata block, and fixed-width
// 20-byte hash records, written atomically and checksummed with CRC32.
package container

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"os"
	"path/filepath"

	"panako/internal/fingerprint"
	"panako/internal/xerrors"
)

var magic = [4]byte{'F', 'P', 'A', 'N'}

const (
	formatVersion = uint16(1)
	headerSize    = 64
	recordSize    = 20

	// AlgorithmID identifies the hashing algorithm/parameters a document
	// was produced with, so a future format revision can coexist with
	// files already on disk.
	AlgorithmID = "panako-cqt-triplet-v1"
)

// Segment describes one window of a monitor-mode run, in absolute
// seconds from the start of the original source.
type Segment struct {
	StartS float64 `json:"start_s"`
	EndS   float64 `json:"end_s"`
}

// Metadata is the self-describing block following the fixed header.
type Metadata struct {
	Algorithm    string            `json:"algorithm"`
	Params       map[string]string `json:"params"`
	SourceFile   string            `json:"source_file"`
	DurationMs   int64             `json:"duration_ms"`
	SampleRate   int               `json:"sample_rate"`
	Channels     int               `json:"channels"`
	Segments     []Segment         `json:"segments,omitempty"`
}

// Record is one on-disk fingerprint entry.
type Record struct {
	Hash uint64
	T1   int32
	F1   int16
	M1   float32
}

// Document is a fully decoded (or to-be-encoded) fingerprint file.
type Document struct {
	Meta    Metadata
	Records []Record
}

// header is the fixed 64-byte record at the start of every FPAN file.
// binary.Write/Read serialize it field by field with no implicit
// padding, so the trailing Reserved block exists to make the encoded
// size exactly headerSize and to leave room for future fields.
type header struct {
	Magic        [4]byte
	Version      uint16
	_            uint16
	MetadataSize uint32
	PayloadSize  uint32
	RecordCount  uint32
	SampleRate   uint32
	DurationMs   uint64
	Channels     uint16
	_            uint16
	CRC32        uint32
	Reserved     [24]byte
}

// FromHashes builds a Document out of a triplet hash slice and its
// source metadata, for a single-segment (non-monitor) file.
func FromHashes(hashes []fingerprint.Hash, meta Metadata) Document {
	records := make([]Record, len(hashes))
	for i, h := range hashes {
		records[i] = Record{Hash: h.Value, T1: int32(h.T1), F1: int16(h.F1), M1: h.M1}
	}
	meta.Algorithm = AlgorithmID
	return Document{Meta: meta, Records: records}
}

// Write serializes doc to path atomically: it writes to a temp file in
// the same directory, fsyncs it, then renames it over path so a reader
// never observes a partially written file.
func Write(path string, doc Document) error {
	var metaBuf bytes.Buffer
	if err := encodeMetadata(&metaBuf, doc.Meta); err != nil {
		return xerrors.New(xerrors.MetadataDecodeError, err)
	}

	var payloadBuf bytes.Buffer
	for _, r := range doc.Records {
		if err := binary.Write(&payloadBuf, binary.LittleEndian, recordWire{
			Hash: r.Hash,
			T1:   r.T1,
			F1:   r.F1,
			M1:   r.M1,
		}); err != nil {
			return xerrors.New(xerrors.InternalInvariant, err)
		}
	}

	checksum := crc32.NewIEEE()
	checksum.Write(metaBuf.Bytes())
	checksum.Write(payloadBuf.Bytes())

	hdr := header{
		Magic:        magic,
		Version:      formatVersion,
		MetadataSize: uint32(metaBuf.Len()),
		PayloadSize:  uint32(payloadBuf.Len()),
		RecordCount:  uint32(len(doc.Records)),
		SampleRate:   uint32(doc.Meta.SampleRate),
		DurationMs:   uint64(doc.Meta.DurationMs),
		Channels:     uint16(doc.Meta.Channels),
		CRC32:        checksum.Sum32(),
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fp-tmp-*")
	if err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	ok := false
	defer func() {
		if !ok {
			tmp.Close()
		}
	}()

	if err := binary.Write(tmp, binary.LittleEndian, hdr); err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	if _, err := tmp.Write(metaBuf.Bytes()); err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	if _, err := tmp.Write(payloadBuf.Bytes()); err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	if err := tmp.Sync(); err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	if err := tmp.Close(); err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	ok = true

	if err := os.Rename(tmpPath, path); err != nil {
		return xerrors.New(xerrors.IoError, err)
	}
	return nil
}

// Read validates and decodes an FPAN file at path.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, xerrors.New(xerrors.IoError, err)
	}
	return Decode(data)
}

// Decode validates and decodes an in-memory FPAN document.
func Decode(data []byte) (Document, error) {
	if len(data) < headerSize {
		return Document{}, xerrors.Newf(xerrors.TruncatedFile, "file is %d bytes, shorter than the %d-byte header", len(data), headerSize)
	}

	var hdr header
	if err := binary.Read(bytes.NewReader(data[:headerSize]), binary.LittleEndian, &hdr); err != nil {
		return Document{}, xerrors.New(xerrors.IoError, err)
	}
	if hdr.Magic != magic {
		return Document{}, xerrors.Newf(xerrors.InvalidMagic, "bad magic %q, want %q", hdr.Magic[:], magic[:])
	}
	if hdr.Version != formatVersion {
		return Document{}, xerrors.Newf(xerrors.UnsupportedVersion, "unsupported format version %d", hdr.Version)
	}

	want := headerSize + int(hdr.MetadataSize) + int(hdr.PayloadSize)
	if len(data) < want {
		return Document{}, xerrors.Newf(xerrors.TruncatedFile, "file is %d bytes, expected at least %d", len(data), want)
	}
	if int(hdr.PayloadSize) != int(hdr.RecordCount)*recordSize {
		return Document{}, xerrors.Newf(xerrors.TruncatedFile, "payload size %d does not match record count %d * %d", hdr.PayloadSize, hdr.RecordCount, recordSize)
	}

	metaStart := headerSize
	metaEnd := metaStart + int(hdr.MetadataSize)
	payloadEnd := metaEnd + int(hdr.PayloadSize)

	checksum := crc32.NewIEEE()
	checksum.Write(data[metaStart:metaEnd])
	checksum.Write(data[metaEnd:payloadEnd])
	if checksum.Sum32() != hdr.CRC32 {
		return Document{}, xerrors.Newf(xerrors.ChecksumMismatch, "crc32 mismatch: header says 0x%08x, computed 0x%08x", hdr.CRC32, checksum.Sum32())
	}

	meta, err := decodeMetadata(data[metaStart:metaEnd])
	if err != nil {
		return Document{}, xerrors.New(xerrors.MetadataDecodeError, err)
	}

	records := make([]Record, hdr.RecordCount)
	r := bytes.NewReader(data[metaEnd:payloadEnd])
	for i := range records {
		var w recordWire
		if err := binary.Read(r, binary.LittleEndian, &w); err != nil {
			return Document{}, xerrors.New(xerrors.IoError, err)
		}
		records[i] = Record{Hash: w.Hash, T1: w.T1, F1: w.F1, M1: w.M1}
	}

	return Document{Meta: meta, Records: records}, nil
}

type recordWire struct {
	Hash uint64
	T1   int32
	F1   int16
	_    uint16
	M1   float32
}
