package features

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	uap "github.com/jamesainslie/go-uap"
)

// Ext is the file extension of feature files.
const Ext = ".pb"

// Store is a uap.FeatureSource over a directory of <video_id>.pb files.
type Store struct {
	dir      string
	fallback func(videoID string) float64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithFallbackFPS supplies a frame rate for feature files that carry none,
// typically the rate recorded in the ground-truth database.
func WithFallbackFPS(lookup func(videoID string) float64) StoreOption {
	return func(s *Store) {
		s.fallback = lookup
	}
}

var _ uap.FeatureSource = (*Store)(nil)

// NewStore returns a Store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the feature file path for a video.
func (s *Store) Path(videoID string) string {
	return filepath.Join(s.dir, videoID+Ext)
}

// Load reads and decodes the feature matrix of one video.
func (s *Store) Load(videoID string) (*Matrix, error) {
	data, err := os.ReadFile(s.Path(videoID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", uap.ErrFeaturesNotFound, videoID)
		}
		return nil, fmt.Errorf("read features: %w", err)
	}

	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode features %s: %w", videoID, err)
	}
	if m.VideoID != "" && m.VideoID != videoID {
		return nil, fmt.Errorf("decode features %s: file holds video %s", videoID, m.VideoID)
	}
	return m, nil
}

// Features implements uap.FeatureSource.
func (s *Store) Features(ctx context.Context, videoID string) ([][]float32, float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	m, err := s.Load(videoID)
	if err != nil {
		return nil, 0, err
	}
	fps := m.FPS
	if fps <= 0 && s.fallback != nil {
		fps = s.fallback(videoID)
	}
	if fps <= 0 {
		return nil, 0, fmt.Errorf("%w: %s has fps %v", uap.ErrInvalidFPS, videoID, fps)
	}
	return m.Rows(), fps, nil
}

// Write encodes m to the store, named after m.VideoID.
func (s *Store) Write(m *Matrix) error {
	if m.VideoID == "" {
		return errors.New("features: matrix has no video id")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create feature dir: %w", err)
	}
	return os.WriteFile(s.Path(m.VideoID), Encode(m), 0o644)
}
