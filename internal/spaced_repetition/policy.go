package spaced_repetition

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the tunable constants of the forgetting-curve schedule.
type Policy struct {
	// CycleDays are the day offsets to the next review, indexed by cycle index.
	CycleDays []int `yaml:"cycle_days"`
	// OverdueGraceDays is how late a correct review may be and still advance the cycle.
	OverdueGraceDays int `yaml:"overdue_grace_days"`
	// RelapseDays is how long a mastered question may go unanswered before a
	// wrong answer sends it back to the cycle.
	RelapseDays int `yaml:"relapse_days"`
}

// DefaultPolicy returns the stock schedule: 0, 1, 3, 7, 14, 30 days with a
// 14-day overdue grace and a 120-day relapse window.
func DefaultPolicy() Policy {
	return Policy{
		CycleDays:        []int{0, 1, 3, 7, 14, 30},
		OverdueGraceDays: 14,
		RelapseDays:      120,
	}
}

// Validate checks that p describes a usable schedule.
func (p Policy) Validate() error {
	if len(p.CycleDays) == 0 {
		return fmt.Errorf("%w: cycle days must not be empty", ErrInvalidPolicy)
	}
	for i, d := range p.CycleDays {
		if d < 0 {
			return fmt.Errorf("%w: cycle day %d at index %d is negative", ErrInvalidPolicy, d, i)
		}
	}
	if p.OverdueGraceDays < 0 {
		return fmt.Errorf("%w: overdue grace days %d is negative", ErrInvalidPolicy, p.OverdueGraceDays)
	}
	if p.RelapseDays < 0 {
		return fmt.Errorf("%w: relapse days %d is negative", ErrInvalidPolicy, p.RelapseDays)
	}
	return nil
}

// LoadPolicyFile reads a YAML policy file. Fields missing from the file keep
// the values of base.
func LoadPolicyFile(path string, base Policy) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("failed to read policy file: %w", err)
	}
	p := base.clone()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (p Policy) clone() Policy {
	c := p
	c.CycleDays = append([]int(nil), p.CycleDays...)
	return c
}
