package uap

import (
	"fmt"
)

// Convention maps generator output indices to seconds for one dataset.
//
// An index i covers frames [(i+Offset)*Stride, (i+Offset+1)*Stride). With
// InclusiveEnd the end index names the last covered unit, so one unit is
// added to the end before scaling.
type Convention struct {
	Name         string  `yaml:"name"`
	Stride       float64 `yaml:"stride"`
	Offset       float64 `yaml:"offset"`
	InclusiveEnd bool    `yaml:"inclusive_end"`
}

// Built-in conventions for C3D features extracted every 16 frames.
var (
	ActivityNet = Convention{Name: "ActivityNet", Stride: 16}
	Thumos14    = Convention{Name: "Thumos14", Stride: 16}
	Charades    = Convention{Name: "Charades", Stride: 16, InclusiveEnd: true}
)

// ConventionFor returns the built-in convention for a dataset name.
func ConventionFor(dataset string) (Convention, error) {
	switch dataset {
	case ActivityNet.Name:
		return ActivityNet, nil
	case Thumos14.Name:
		return Thumos14, nil
	case Charades.Name:
		return Charades, nil
	}
	return Convention{}, fmt.Errorf("%w: %q", ErrUnknownConvention, dataset)
}

// ToTime converts frame-index segments to seconds. The result has the same
// length and order as frames.
func (c Convention) ToTime(frames []Segment, fps float64) ([]Segment, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFPS, fps)
	}
	stride := c.Stride
	if stride <= 0 {
		stride = 1
	}
	endShift := 0.0
	if c.InclusiveEnd {
		endShift = 1
	}

	out := make([]Segment, len(frames))
	for i, f := range frames {
		out[i] = Segment{
			Start: (f.Start + c.Offset) * stride / fps,
			End:   (f.End + c.Offset + endShift) * stride / fps,
		}
	}
	return out, nil
}
