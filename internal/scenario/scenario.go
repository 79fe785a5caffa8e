package scenario

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jfmyers9/playwait/pkg/playwait"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownOp is returned for a step naming no adapter operation.
	ErrUnknownOp = errors.New("unknown op")

	// ErrMissingArgument is returned for a step lacking a required field.
	ErrMissingArgument = errors.New("missing argument")

	// ErrExpectation is wrapped by every expectation mismatch.
	ErrExpectation = errors.New("expectation not met")
)

// Op names an adapter operation
type Op string

const (
	OpWaitForReady Op = "waitForReady"
	OpWaitForEvent Op = "waitForEvent"
	OpWaitForPlay  Op = "waitForPlay"
	OpWaitForTime  Op = "waitForTime"
	OpWaitForEnd   Op = "waitForEnd"
	OpPlay         Op = "play"
	OpPause        Op = "pause"
	OpMute         Op = "mute"
	OpUnmute       Op = "unmute"
	OpSetSource    Op = "setSource"
	OpSetVolume    Op = "setVolume"
	OpSetPoster    Op = "setPoster"
	OpReset        Op = "reset"
	OpSeekToTime   Op = "seekToTime"
	OpSeekToEnd    Op = "seekToEnd"
)

var knownOps = map[Op]bool{
	OpWaitForReady: true,
	OpWaitForEvent: true,
	OpWaitForPlay:  true,
	OpWaitForTime:  true,
	OpWaitForEnd:   true,
	OpPlay:         true,
	OpPause:        true,
	OpMute:         true,
	OpUnmute:       true,
	OpSetSource:    true,
	OpSetVolume:    true,
	OpSetPoster:    true,
	OpReset:        true,
	OpSeekToTime:   true,
	OpSeekToEnd:    true,
}

// Scenario is a named sequence of adapter operations
type Scenario struct {
	Name  string  `yaml:"name"`
	Media []Media `yaml:"media,omitempty"`
	Steps []Step  `yaml:"steps"`
}

// Media declares the duration of a source used by the scenario
type Media struct {
	Src      string        `yaml:"src"`
	Duration time.Duration `yaml:"duration"`
}

// Step is one operation plus the state expected once it settles
type Step struct {
	Op      Op             `yaml:"op"`
	Event   playwait.Event `yaml:"event,omitempty"`
	Src     string         `yaml:"src,omitempty"`
	Type    string         `yaml:"type,omitempty"`
	Volume  *float64       `yaml:"volume,omitempty"`
	Poster  *string        `yaml:"poster,omitempty"`
	Time    *time.Duration `yaml:"time,omitempty"`
	Timeout time.Duration  `yaml:"timeout,omitempty"` // overrides the runner's step timeout
	Expect  *Expect        `yaml:"expect,omitempty"`
}

// Expect lists player properties checked after a step. Unset fields are
// not checked.
type Expect struct {
	Paused  *bool          `yaml:"paused,omitempty"`
	Ended   *bool          `yaml:"ended,omitempty"`
	Muted   *bool          `yaml:"muted,omitempty"`
	Volume  *float64       `yaml:"volume,omitempty"`
	Poster  *string        `yaml:"poster,omitempty"`
	Source  *string        `yaml:"source,omitempty"`
	MinTime *time.Duration `yaml:"minTime,omitempty"`
}

// Load reads and validates a scenario file
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	sc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate reports every invalid step at once
func (sc *Scenario) Validate() error {
	var result *multierror.Error

	if len(sc.Steps) == 0 {
		result = multierror.Append(result, errors.New("scenario has no steps"))
	}

	for i, m := range sc.Media {
		if m.Src == "" {
			result = multierror.Append(result, fmt.Errorf("media %d: %w: src", i, ErrMissingArgument))
		}
		if m.Duration <= 0 {
			result = multierror.Append(result, fmt.Errorf("media %d: duration must be positive", i))
		}
	}

	for i, s := range sc.Steps {
		if err := s.validate(); err != nil {
			result = multierror.Append(result, fmt.Errorf("step %d: %w", i, err))
		}
	}

	if result != nil {
		result.ErrorFormat = joinErrors
	}
	return result.ErrorOrNil()
}

func (s Step) validate() error {
	if !knownOps[s.Op] {
		return fmt.Errorf("%w: %q", ErrUnknownOp, s.Op)
	}

	switch s.Op {
	case OpWaitForEvent:
		if s.Event == "" {
			return fmt.Errorf("%s: %w: event", s.Op, ErrMissingArgument)
		}
		if !playwait.IsLifecycleEvent(s.Event) {
			return fmt.Errorf("%s: %q is not a lifecycle event", s.Op, s.Event)
		}
	case OpSetSource:
		if s.Src == "" {
			return fmt.Errorf("%s: %w: src", s.Op, ErrMissingArgument)
		}
	case OpSetVolume:
		if s.Volume == nil {
			return fmt.Errorf("%s: %w: volume", s.Op, ErrMissingArgument)
		}
	case OpSetPoster:
		if s.Poster == nil {
			return fmt.Errorf("%s: %w: poster", s.Op, ErrMissingArgument)
		}
	case OpSeekToTime, OpWaitForTime:
		if s.Time == nil {
			return fmt.Errorf("%s: %w: time", s.Op, ErrMissingArgument)
		}
	}

	if s.Timeout < 0 {
		return fmt.Errorf("%s: timeout must not be negative", s.Op)
	}
	return nil
}

// Catalog returns the declared media durations keyed by src
func (sc *Scenario) Catalog() map[string]time.Duration {
	catalog := make(map[string]time.Duration, len(sc.Media))
	for _, m := range sc.Media {
		catalog[m.Src] = m.Duration
	}
	return catalog
}
