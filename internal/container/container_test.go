package container

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"panako/internal/fingerprint"
)

func sampleDoc() Document {
	hashes := []fingerprint.Hash{
		{Value: 123, T1: 10, F1: 5, M1: 0.5},
		{Value: 456, T1: 20, F1: 7, M1: 0.75},
	}
	meta := Metadata{
		SourceFile: "test.wav",
		DurationMs: 3000,
		SampleRate: 16000,
		Channels:   1,
		Params:     map[string]string{"bins_per_octave": "85"},
	}
	return FromHashes(hashes, meta)
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fp")

	doc := sampleDoc()
	require.NoError(t, Write(path, doc))

	got, err := Read(path)
	require.NoError(t, err)

	assert.Equal(t, doc.Meta.SourceFile, got.Meta.SourceFile)
	assert.Equal(t, AlgorithmID, got.Meta.Algorithm)
	require.Len(t, got.Records, len(doc.Records))
	for i, r := range got.Records {
		assert.Equal(t, doc.Records[i], r, "record %d", i)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fp")
	require.NoError(t, Write(path, sampleDoc()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[0] ^= 0xff

	_, err = Decode(data)
	assert.Error(t, err, "expected error decoding corrupted magic")
}

func TestReadRejectsChecksumMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fp")
	require.NoError(t, Write(path, sampleDoc()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	// Flip a byte inside the metadata block, well past the header.
	data[headerSize+2] ^= 0xff

	_, err = Decode(data)
	assert.Error(t, err, "expected checksum mismatch error")
}

func TestReadRejectsTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fp")
	require.NoError(t, Write(path, sampleDoc()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = Decode(data[:len(data)-5])
	assert.Error(t, err, "expected truncation error")

	_, err = Decode(data[:10])
	assert.Error(t, err, "expected truncation error for short header")
}

func TestWriteIsAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.fp")

	require.NoError(t, Write(path, sampleDoc()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.Equal(t, "out.fp", e.Name(), "unexpected leftover file after Write")
	}
}
