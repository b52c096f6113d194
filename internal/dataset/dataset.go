// Package dataset reads offline job and placement snapshots.
package dataset

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/inevitablesale/hubspot-trackerrms-revenue-attribution-app/internal/model"
)

// Dataset is a snapshot of jobs and placements.
type Dataset struct {
	Jobs       []model.Job       `json:"jobs" yaml:"jobs"`
	Placements []model.Placement `json:"placements" yaml:"placements"`
}

// Format is a dataset file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", eris.Errorf("dataset: unsupported file type %q", filepath.Ext(path))
	}
}

// Load reads a dataset from a .json, .yaml or .yml file.
func Load(path string) (*Dataset, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	ds, err := Parse(data, format)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse %s", path)
	}
	return ds, nil
}

// Parse decodes a dataset. Unknown JSON fields are rejected so typos in
// hand-written fixtures surface.
func Parse(data []byte, format Format) (*Dataset, error) {
	var ds Dataset
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&ds); err != nil {
			return nil, eris.Wrap(err, "dataset: decode json")
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &ds); err != nil {
			return nil, eris.Wrap(err, "dataset: decode yaml")
		}
	default:
		return nil, eris.Errorf("dataset: unsupported format %q", format)
	}
	return &ds, nil
}

// Attach returns the placements with their jobs embedded by job id.
func Attach(placements []model.Placement, jobs []model.Job) []model.Placement {
	return model.AttachJobs(placements, jobs)
}

// Attached returns the dataset's placements with jobs embedded.
func (d *Dataset) Attached() []model.Placement {
	return Attach(d.Placements, d.Jobs)
}
