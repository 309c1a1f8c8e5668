package score

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileEvent and fileScore mirror the on-disk YAML shape of a score file:
//
//	total: 5.0
//	events:
//	  - {start: 2.0, dur: 3.0, note: "x"}
//
// total may be omitted, in which case it is taken as the latest event end.
type fileEvent struct {
	Start float64 `yaml:"start"`
	Dur   float64 `yaml:"dur"`
	Note  string  `yaml:"note"`
}

type fileScore struct {
	Total  *float64    `yaml:"total,omitempty"`
	Events []fileEvent `yaml:"events"`
}

// Unmarshal parses a YAML score document into a note list.
func Unmarshal(data []byte) (List[string], error) {
	var fs fileScore
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return List[string]{}, fmt.Errorf("parse score: %w", err)
	}

	l := List[string]{Events: make([]Event[string], len(fs.Events))}
	for i, ev := range fs.Events {
		l.Events[i] = Event[string]{Start: ev.Start, Dur: ev.Dur, Content: ev.Note}
		if end := ev.Start + ev.Dur; end > l.Total {
			l.Total = end
		}
	}
	if fs.Total != nil {
		l.Total = *fs.Total
	}
	return l, nil
}

// Marshal serializes a note list to YAML with an explicit total.
func Marshal(l List[string]) ([]byte, error) {
	fs := fileScore{
		Total:  &l.Total,
		Events: make([]fileEvent, len(l.Events)),
	}
	for i, ev := range l.Events {
		fs.Events[i] = fileEvent{Start: ev.Start, Dur: ev.Dur, Note: ev.Content}
	}

	data, err := yaml.Marshal(fs)
	if err != nil {
		return nil, fmt.Errorf("serialize score: %w", err)
	}
	return data, nil
}

// Load reads a score file.
func Load(path string) (List[string], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return List[string]{}, fmt.Errorf("read score file: %w", err)
	}

	l, err := Unmarshal(data)
	if err != nil {
		return List[string]{}, fmt.Errorf("score file %s: %w", path, err)
	}
	return l, nil
}

// Save writes a score file.
func Save(path string, l List[string]) error {
	data, err := Marshal(l)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write score file: %w", err)
	}
	return nil
}
