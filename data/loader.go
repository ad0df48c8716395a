// Package data embeds the static data files that drive the test suite: the capability
// matrix and the mock hardware fixture documents. Files may be JSON or YAML.
package data

import (
	"embed"
	"fmt"
	"path/filepath"
)

//go:embed data-files
var dataFilesRoot embed.FS

const dataBasePath = "data-files"

// SourceInfo represents JSON or YAML data that was read from an embedded file.
type SourceInfo struct {
	FilePath string
	BaseName string
	Data     []byte
}

func (s SourceInfo) ParseInto(target interface{}) error {
	if err := ParseJSONOrYAML(s.Data, target); err != nil {
		return fmt.Errorf("error parsing %q: %w", s.BaseName, err)
	}
	return nil
}

// LoadDataFile reads one embedded data file. The path parameter is relative to
// data/data-files.
func LoadDataFile(path string) (SourceInfo, error) {
	data, err := dataFilesRoot.ReadFile(dataBasePath + "/" + path)
	if err != nil {
		return SourceInfo{}, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return SourceInfo{FilePath: path, BaseName: filepath.Base(path), Data: data}, nil
}

// LoadAllDataFiles reads all embedded data files in a directory. The path parameter is
// relative to data/data-files.
func LoadAllDataFiles(path string) ([]SourceInfo, error) {
	files, err := dataFilesRoot.ReadDir(dataBasePath + "/" + path)
	if err != nil {
		return nil, err
	}
	ret := make([]SourceInfo, 0, len(files))
	for _, file := range files {
		source, err := LoadDataFile(path + "/" + file.Name())
		if err != nil {
			return nil, err
		}
		ret = append(ret, source)
	}
	return ret, nil
}
