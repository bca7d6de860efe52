package main

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// writeOutput encodes v to w as json or yaml, gzip-compressed when
// compress is set.
func writeOutput(w io.Writer, v any, format string, compress bool) error {
	if !compress {
		return encode(w, v, format)
	}

	gzWriter := gzip.NewWriter(w)
	if err := encode(gzWriter, v, format); err != nil {
		gzWriter.Close()
		return err
	}
	if err := gzWriter.Close(); err != nil {
		return fmt.Errorf("close gzip writer: %w", err)
	}
	return nil
}

func encode(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "") // disable indent (reduces size by > 2x)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil

	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode YAML: %w", err)
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown format %q (want json or yaml)", format)
}
