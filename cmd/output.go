package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	outputJSON = "json"
	outputYAML = "yaml"
)

func writeOutput(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", outputJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	case outputYAML:
		data, err = yaml.Marshal(v)
	default:
		return fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	_, err = w.Write(data)
	return err
}
