package export

import (
	"encoding/json"
	"io"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/flywheel.go/pkg/wheel"
)

// WriteArchive serializes records as an indented JSON array.
func WriteArchive(w io.Writer, records []wheel.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	return enc.Encode(records)
}

// SaveArchive writes records to a JSON file at path.
func SaveArchive(path string, records []wheel.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := WriteArchive(f, records); err != nil {
		return err
	}
	glog.Infof("archived %d telemetry records to %s", len(records), path)
	return nil
}
