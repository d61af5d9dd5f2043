package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/eigenface/internal/faces"
)

//go:embed default_pipeline.yaml
var defaultPipelineYAML []byte

// ErrInvalidPipeline is returned when a pipeline file fails validation.
var ErrInvalidPipeline = errors.New("invalid pipeline configuration")

type Config struct {
	Detector     DetectorConfig
	Database     DatabaseConfig
	Web          WebConfig
	ModelDir     string // defaults to models
	PipelinePath string // defaults to eigenface.yaml
}

type DetectorConfig struct {
	URL string // defaults to http://localhost:8000
}

type WebConfig struct {
	AllowedOrigins string // comma-separated CORS origins, localhost is always allowed
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, models are only kept on disk when empty
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
}

// Pipeline describes one train/test run.
type Pipeline struct {
	ROISize        ROISize   `yaml:"roi_size"`
	ComponentCount int       `yaml:"component_count"`
	DataDir        string    `yaml:"data_dir"`
	Subjects       []Subject `yaml:"subjects"`
}

type ROISize struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type Subject struct {
	Name  string   `yaml:"name"`
	Train []string `yaml:"train"`
	Test  []string `yaml:"test"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	return &Config{
		Detector: DetectorConfig{
			URL: envString("FACE_DETECTOR_URL", "http://localhost:8000"),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Web: WebConfig{
			AllowedOrigins: os.Getenv("WEB_ALLOWED_ORIGINS"),
		},
		ModelDir:     envString("MODEL_DIR", "models"),
		PipelinePath: envString("EIGENFACE_PIPELINE", "eigenface.yaml"),
	}
}

// DefaultPipeline returns the built-in two-subject pipeline.
func DefaultPipeline() *Pipeline {
	p, err := ParsePipeline(defaultPipelineYAML)
	if err != nil {
		// embedded file, covered by tests
		panic("failed to parse embedded default_pipeline.yaml: " + err.Error())
	}
	return p
}

// LoadPipeline reads and validates a pipeline file. A missing file at path
// falls back to the built-in pipeline.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultPipeline(), nil
		}
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	p, err := ParsePipeline(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParsePipeline decodes YAML over the defaults and validates the result.
// Keys present in data override the defaults even when they are zero.
func ParsePipeline(data []byte) (*Pipeline, error) {
	p := Pipeline{
		ROISize:        ROISize{Width: 50, Height: 50},
		ComponentCount: 5,
		DataDir:        "data",
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks sizes, subject uniqueness and that no identifier is in
// both the train and test list of a subject.
func (p *Pipeline) Validate() error {
	if p.ROISize.Width <= 0 || p.ROISize.Height <= 0 {
		return fmt.Errorf("%w: roi_size %dx%d", ErrInvalidPipeline, p.ROISize.Width, p.ROISize.Height)
	}
	if p.ComponentCount <= 0 {
		return fmt.Errorf("%w: component_count %d", ErrInvalidPipeline, p.ComponentCount)
	}
	if len(p.Subjects) == 0 {
		return fmt.Errorf("%w: no subjects", ErrInvalidPipeline)
	}

	seen := make(map[string]string, len(p.Subjects))
	for _, s := range p.Subjects {
		key := faces.NormalizeSubjectName(s.Name)
		if key == "" {
			return fmt.Errorf("%w: subject with empty name", ErrInvalidPipeline)
		}
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: subjects %q and %q have the same name", ErrInvalidPipeline, prev, s.Name)
		}
		seen[key] = s.Name

		if len(s.Train) == 0 {
			return fmt.Errorf("%w: subject %q has no training samples", ErrInvalidPipeline, s.Name)
		}
		train := make(map[string]bool, len(s.Train))
		for _, id := range s.Train {
			train[id] = true
		}
		for _, id := range s.Test {
			if train[id] {
				return fmt.Errorf("%w: subject %q uses sample %q for both training and testing", ErrInvalidPipeline, s.Name, id)
			}
		}
	}
	return nil
}

// Subject returns the subject whose normalized name matches name.
func (p *Pipeline) Subject(name string) (Subject, bool) {
	key := faces.NormalizeSubjectName(name)
	for _, s := range p.Subjects {
		if faces.NormalizeSubjectName(s.Name) == key {
			return s, true
		}
	}
	return Subject{}, false
}

// SubjectNames returns the subject names in file order.
func (p *Pipeline) SubjectNames() []string {
	names := make([]string, len(p.Subjects))
	for i, s := range p.Subjects {
		names[i] = s.Name
	}
	return names
}
