package container

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/buger/jsonparser"
	"github.com/tidwall/gjson"

	"panako/internal/xerrors"
)

var errInvalidJSON = errors.New("container: metadata block is not valid JSON")

// encodeMetadata serializes meta as its on-disk JSON representation,
// matching the plain encoding/json usage of the rest of the codebase.
func encodeMetadata(w io.Writer, meta Metadata) error {
	return json.NewEncoder(w).Encode(meta)
}

// decodeMetadata parses the metadata block without committing to
// encoding/json's reflection-based decode: gjson locates the segments
// array and jsonparser walks it field-by-field, which keeps a corrupt
// or forward-versioned metadata block from panicking a generic decoder.
func decodeMetadata(data []byte) (Metadata, error) {
	if !gjson.ValidBytes(data) {
		return Metadata{}, xerrors.New(xerrors.MetadataDecodeError, errInvalidJSON)
	}

	root := gjson.ParseBytes(data)

	meta := Metadata{
		Algorithm:  root.Get("algorithm").String(),
		SourceFile: root.Get("source_file").String(),
		DurationMs: root.Get("duration_ms").Int(),
		SampleRate: int(root.Get("sample_rate").Int()),
		Channels:   int(root.Get("channels").Int()),
	}

	if params := root.Get("params"); params.Exists() {
		meta.Params = make(map[string]string)
		params.ForEach(func(key, value gjson.Result) bool {
			meta.Params[key.String()] = value.String()
			return true
		})
	}

	if segs := root.Get("segments"); segs.Exists() && segs.IsArray() {
		_, err := jsonparser.ArrayEach([]byte(segs.Raw), func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
			if err != nil {
				return
			}
			startS, _ := jsonparser.GetFloat(value, "start_s")
			endS, _ := jsonparser.GetFloat(value, "end_s")
			meta.Segments = append(meta.Segments, Segment{StartS: startS, EndS: endS})
		})
		if err != nil {
			return Metadata{}, xerrors.New(xerrors.MetadataDecodeError, err)
		}
	}

	return meta, nil
}
