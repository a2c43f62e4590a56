package slider

import (
	"gopkg.in/yaml.v3"
)

const (
	recordKeyScrubbingSpeeds               = "scrubbing_speeds"
	recordKeyScrubbingSpeedChangePositions = "scrubbing_speed_change_positions"
)

// Record is the persisted form of a slider's speed configuration.
// A nil field means the key was absent and the slider keeps its current list
type Record struct {
	Speeds          []float64 `yaml:"scrubbing_speeds" json:"scrubbingSpeeds"`
	ChangePositions []float64 `yaml:"scrubbing_speed_change_positions" json:"scrubbingSpeedChangePositions"`
}

// Record captures the slider's speed configuration
func (s *Slider) Record() Record {
	return Record{
		Speeds:          nonNil(s.scrubbingSpeeds),
		ChangePositions: nonNil(s.scrubbingSpeedChangePositions),
	}
}

// Restore replaces whichever lists are present in the record, then resets
// the current speed to the first tier if there is one. During a drag the
// current speed is left alone: listeners already heard it, and the next
// Continue picks the tier from the new lists
func (s *Slider) Restore(record Record) {
	if record.Speeds != nil {
		s.scrubbingSpeeds = copyFloats(record.Speeds)
	}

	if record.ChangePositions != nil {
		s.scrubbingSpeedChangePositions = copyFloats(record.ChangePositions)
	}

	s.syncIdleSpeed()
}

// UnmarshalYAML decodes each known key on its own, so that one malformed list
// doesn't discard the other. Malformed or null entries are left absent
func (r *Record) UnmarshalYAML(value *yaml.Node) error {
	var fields map[string]yaml.Node
	if err := value.Decode(&fields); err != nil {
		return nil
	}

	r.Speeds = decodeFloats(fields, recordKeyScrubbingSpeeds)
	r.ChangePositions = decodeFloats(fields, recordKeyScrubbingSpeedChangePositions)

	return nil
}

func decodeFloats(fields map[string]yaml.Node, key string) []float64 {
	node, ok := fields[key]
	if !ok || node.Kind != yaml.SequenceNode {
		return nil
	}

	result := []float64{}
	if err := node.Decode(&result); err != nil {
		return nil
	}

	return result
}

// an empty list must survive a round trip as "present and empty", not as "absent"
func nonNil(values []float64) []float64 {
	if values == nil {
		return []float64{}
	}

	return copyFloats(values)
}
