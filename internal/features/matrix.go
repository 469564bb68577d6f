// Package features reads per-video feature matrices stored as protobuf
// messages:
//
//	message FeatureMatrix {
//	  string video_id = 1;
//	  double fps = 2;
//	  uint32 dim = 3;
//	  repeated float values = 4 [packed = true];
//	}
package features

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	fieldVideoID protowire.Number = 1
	fieldFPS     protowire.Number = 2
	fieldDim     protowire.Number = 3
	fieldValues  protowire.Number = 4
)

// ErrBadShape indicates the value count is not a multiple of the dimension.
var ErrBadShape = errors.New("features: values do not fill a whole number of rows")

// Matrix is a row-major [frames, Dim] feature matrix for one video.
type Matrix struct {
	VideoID string
	FPS     float64
	Dim     int
	Values  []float32
}

// Rows returns the matrix as one slice per frame, sharing Values.
func (m *Matrix) Rows() [][]float32 {
	if m.Dim <= 0 {
		return nil
	}
	n := len(m.Values) / m.Dim
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = m.Values[i*m.Dim : (i+1)*m.Dim : (i+1)*m.Dim]
	}
	return rows
}

// Decode parses a FeatureMatrix message.
func Decode(b []byte) (*Matrix, error) {
	m := &Matrix{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("reading tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldVideoID && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("reading video_id: %w", protowire.ParseError(n))
			}
			m.VideoID = v
			b = b[n:]
		case num == fieldFPS && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("reading fps: %w", protowire.ParseError(n))
			}
			m.FPS = math.Float64frombits(v)
			b = b[n:]
		case num == fieldDim && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("reading dim: %w", protowire.ParseError(n))
			}
			m.Dim = int(v)
			b = b[n:]
		case num == fieldValues && typ == protowire.BytesType:
			packed, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, fmt.Errorf("reading values: %w", protowire.ParseError(n))
			}
			if len(packed)%4 != 0 {
				return nil, fmt.Errorf("reading values: packed length %d", len(packed))
			}
			for len(packed) > 0 {
				v, k := protowire.ConsumeFixed32(packed)
				m.Values = append(m.Values, math.Float32frombits(v))
				packed = packed[k:]
			}
			b = b[n:]
		case num == fieldValues && typ == protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return nil, fmt.Errorf("reading values: %w", protowire.ParseError(n))
			}
			m.Values = append(m.Values, math.Float32frombits(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("skipping field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}

	if m.Dim <= 0 {
		if len(m.Values) > 0 {
			return nil, fmt.Errorf("%w: dim %d", ErrBadShape, m.Dim)
		}
		return m, nil
	}
	if len(m.Values)%m.Dim != 0 {
		return nil, fmt.Errorf("%w: %d values, dim %d", ErrBadShape, len(m.Values), m.Dim)
	}
	return m, nil
}

// Encode serializes m as a FeatureMatrix message.
func Encode(m *Matrix) []byte {
	var b []byte
	if m.VideoID != "" {
		b = protowire.AppendTag(b, fieldVideoID, protowire.BytesType)
		b = protowire.AppendString(b, m.VideoID)
	}
	if m.FPS != 0 {
		b = protowire.AppendTag(b, fieldFPS, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(m.FPS))
	}
	if m.Dim != 0 {
		b = protowire.AppendTag(b, fieldDim, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Dim))
	}
	if len(m.Values) > 0 {
		packed := make([]byte, 0, 4*len(m.Values))
		for _, v := range m.Values {
			packed = protowire.AppendFixed32(packed, math.Float32bits(v))
		}
		b = protowire.AppendTag(b, fieldValues, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}
