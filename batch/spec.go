package batch

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/chrisdreid/chronosynth/engine"
	"github.com/chrisdreid/chronosynth/errors"
)

// Output layouts for job results written to disk.
const (
	LayoutStructured = "structured"
	LayoutRaw        = "raw"
)

// Job is one independent generation run within a batch.
type Job struct {
	// Name identifies the job in logs and results. Required and unique
	// within the batch.
	Name string `yaml:"name" json:"name"`
	// Params is the full set of generation parameters for this job.
	Params engine.Params `yaml:"params" json:"params"`
	// Output, when set, is the file the dataset is saved to. The
	// extension picks the encoding (.json, .gob).
	Output string `yaml:"output,omitempty" json:"output,omitempty"`
	// Layout selects the on-disk document layout. Defaults to structured.
	Layout string `yaml:"layout,omitempty" json:"layout,omitempty"`
}

// Spec is a batch of generation jobs loaded from YAML.
type Spec struct {
	// Concurrency is the worker count. Defaults to 4.
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	// StopOnError aborts remaining jobs after the first failure. By
	// default a failed job is recorded and the rest of the batch runs.
	StopOnError bool `yaml:"stop_on_error,omitempty" json:"stop_on_error,omitempty"`
	// Seed, when set, derives a distinct seed for every job that does
	// not fix its own, keeping the whole batch reproducible.
	Seed *int64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	Jobs []Job `yaml:"jobs" json:"jobs"`
}

// LoadSpec reads a batch spec from a YAML file.
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapInvalid(err, "batch", "LoadSpec", "read spec file")
	}
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.WrapInvalid(err, "batch", "LoadSpec", "parse spec file")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// Validate checks the spec and applies defaults.
func (s *Spec) Validate() error {
	if len(s.Jobs) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "batch", "Validate",
			"batch has no jobs")
	}
	if s.Concurrency < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "batch", "Validate",
			"concurrency must not be negative")
	}
	if s.Concurrency == 0 {
		s.Concurrency = 4
	}

	seen := make(map[string]struct{}, len(s.Jobs))
	for i := range s.Jobs {
		job := &s.Jobs[i]
		if job.Name == "" {
			return errors.WrapInvalid(errors.ErrMissingConfig, "batch", "Validate",
				fmt.Sprintf("job %d has no name", i))
		}
		if _, dup := seen[job.Name]; dup {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "batch", "Validate",
				fmt.Sprintf("duplicate job name %q", job.Name))
		}
		seen[job.Name] = struct{}{}

		if job.Layout == "" {
			job.Layout = LayoutStructured
		}
		if job.Layout != LayoutStructured && job.Layout != LayoutRaw {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "batch", "Validate",
				fmt.Sprintf("job %q layout %q", job.Name, job.Layout))
		}
		if err := job.Params.Validate(); err != nil {
			return errors.WrapInvalid(err, "batch", "Validate",
				fmt.Sprintf("job %q parameters", job.Name))
		}
	}
	return nil
}

// deriveSeeds fills in per-job seeds from the batch seed so every job gets
// distinct but reproducible noise. Jobs that fix their own seed keep it.
func (s *Spec) deriveSeeds() {
	if s.Seed == nil {
		return
	}
	for i := range s.Jobs {
		if s.Jobs[i].Params.Seed == nil {
			seed := *s.Seed + int64(i)
			s.Jobs[i].Params.Seed = &seed
		}
	}
}
