package info

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Reference is the on-disk layout read by FileDirectory.
type Reference struct {
	CaseTypes    []CaseType                   `yaml:"case_types"`
	ExportFields map[string][]FieldDefinition `yaml:"export_fields"`
	Users        []User                       `yaml:"users"`
	Teams        []Team                       `yaml:"teams"`
	Topics       []Topic                      `yaml:"topics"`
}

// FileDirectory serves reference data from a YAML file. The file is re-read
// on every call so edits are picked up by the next export.
type FileDirectory struct {
	path string
}

// NewFileDirectory creates a directory backed by the YAML file at path.
func NewFileDirectory(path string) *FileDirectory {
	return &FileDirectory{path: path}
}

func (d *FileDirectory) load(resource string) (*Reference, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		return nil, NewDirectoryError("file", resource, 0, err)
	}

	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, NewDirectoryError("file", resource, 0, fmt.Errorf("failed to parse %s: %w", d.path, err))
	}
	return &ref, nil
}

// CaseTypes returns the configured case types.
func (d *FileDirectory) CaseTypes(ctx context.Context) ([]CaseType, error) {
	ref, err := d.load("case_types")
	if err != nil {
		return nil, err
	}
	return ref.CaseTypes, nil
}

// ExportFields returns the field definitions for caseTypeCode, or an empty
// list if none are configured.
func (d *FileDirectory) ExportFields(ctx context.Context, caseTypeCode string) ([]FieldDefinition, error) {
	ref, err := d.load("export_fields")
	if err != nil {
		return nil, err
	}
	return ref.ExportFields[caseTypeCode], nil
}

// Users returns the configured users.
func (d *FileDirectory) Users(ctx context.Context) ([]User, error) {
	ref, err := d.load("users")
	if err != nil {
		return nil, err
	}
	return ref.Users, nil
}

// Teams returns the configured teams.
func (d *FileDirectory) Teams(ctx context.Context) ([]Team, error) {
	ref, err := d.load("teams")
	if err != nil {
		return nil, err
	}
	return ref.Teams, nil
}

// CaseTopics returns the configured topics.
func (d *FileDirectory) CaseTopics(ctx context.Context) ([]Topic, error) {
	ref, err := d.load("topics")
	if err != nil {
		return nil, err
	}
	return ref.Topics, nil
}

// Ping checks that the file is readable and well formed.
func (d *FileDirectory) Ping(ctx context.Context) error {
	_, err := d.load("ping")
	return err
}
