package toolcache

import (
	"bytes"
	"fmt"
	"os"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	dirPermissions    = 0o755
	markerPermissions = 0o644
)

// Record is the content of a completion marker.
type Record struct {
	Tool     string
	Version  string
	Arch     string
	CachedAt string
	Source   string
}

// readMarker loads the marker at path. An empty marker yields an empty record.
func readMarker(path string) (*Record, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(contents)) == 0 {
		return &Record{}, nil
	}

	var fields structpb.Struct
	if err = protojson.Unmarshal(contents, &fields); err != nil {
		return nil, fmt.Errorf("decode marker %s: %w", path, err)
	}

	values := fields.GetFields()

	return &Record{
		Tool:     values["tool"].GetStringValue(),
		Version:  values["version"].GetStringValue(),
		Arch:     values["arch"].GetStringValue(),
		CachedAt: values["cached_at"].GetStringValue(),
		Source:   values["source"].GetStringValue(),
	}, nil
}

// writeMarker stores record as protobuf JSON at path.
func writeMarker(path string, record *Record) error {
	fields, err := structpb.NewStruct(map[string]any{
		"tool":      record.Tool,
		"version":   record.Version,
		"arch":      record.Arch,
		"cached_at": record.CachedAt,
		"source":    record.Source,
	})
	if err != nil {
		return fmt.Errorf("build marker: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true}.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode marker: %w", err)
	}

	if err = os.WriteFile(path, data, markerPermissions); err != nil {
		return fmt.Errorf("write marker: %w", err)
	}

	return nil
}
