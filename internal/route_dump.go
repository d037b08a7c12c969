package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route table dump formats.
const (
	DumpJSON = "json"
	DumpYAML = "yaml"
)

// routeDump is the serialized form of a RouteTable.
type routeDump struct {
	GlobalPrefix string       `json:"globalPrefix,omitempty" yaml:"globalPrefix,omitempty"`
	Routes       []RouteEntry `json:"routes" yaml:"routes"`
	Warnings     []string     `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Port         int          `json:"port" yaml:"port"`
	CORS         bool         `json:"cors" yaml:"cors"`
}

// Dump writes the table to w as "json" or "yaml".
func (t *RouteTable) Dump(w io.Writer, format string) error {
	_, corsOn := t.Config.CORSPolicy()
	d := routeDump{
		Port:         t.Config.ListenPort(),
		GlobalPrefix: t.Config.GlobalPrefix,
		CORS:         corsOn,
		Routes:       t.Entries(),
		Warnings:     t.Warnings(),
	}
	if d.Routes == nil {
		d.Routes = []RouteEntry{}
	}

	switch strings.ToLower(format) {
	case DumpJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case DumpYAML, "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(d); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported route dump format %q", format)
	}
}
