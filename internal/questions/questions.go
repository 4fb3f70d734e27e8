// Package questions loads the quiz question bank and scores how
// compatible two players' answers are.
package questions

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"pairquiz-backend/api"

	"gopkg.in/yaml.v3"
)

const (
	MinStage = 1
	MaxStage = 10
)

//go:embed bank.yaml
var defaultBankYAML []byte

type bankFile struct {
	Questions []api.Question `yaml:"questions"`
}

// Load reads a question bank file. An empty path loads the embedded bank.
func Load(path string) ([]api.Question, error) {
	data := defaultBankYAML
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read question bank %s: %w", path, err)
		}
	}
	return Parse(data)
}

// Parse decodes and validates a YAML question bank. Questions without a
// status are active.
func Parse(data []byte) ([]api.Question, error) {
	var bank bankFile
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return nil, fmt.Errorf("failed to parse question bank: %w", err)
	}

	var errs []error
	for i := range bank.Questions {
		q := &bank.Questions[i]
		if q.Status == "" {
			q.Status = api.QuestionStatusActive
		}
		if err := Validate(*q); err != nil {
			errs = append(errs, fmt.Errorf("question %d: %w", i+1, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return bank.Questions, nil
}

// Validate checks a single question.
func Validate(q api.Question) error {
	if q.Stage < MinStage || q.Stage > MaxStage {
		return fmt.Errorf("stage %d out of range [%d, %d]", q.Stage, MinStage, MaxStage)
	}
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) < 2 {
		return errors.New("at least two options are required")
	}
	for _, o := range q.Options {
		if strings.TrimSpace(o.Text) == "" {
			return errors.New("option text is required")
		}
	}
	switch q.Status {
	case api.QuestionStatusActive, api.QuestionStatusInactive:
	default:
		return fmt.Errorf("unknown status %q", q.Status)
	}
	return nil
}

// Categories maps an answer text to the category of its option.
type Categories map[string]string

func NewCategories(questions []api.Question) Categories {
	c := Categories{}
	for _, q := range questions {
		for _, o := range q.Options {
			if o.Category != "" {
				c[o.Text] = o.Category
			}
		}
	}
	return c
}

// Same reports if both answers belong to the same known category.
func (c Categories) Same(a, b string) bool {
	ca, ok := c[a]
	if !ok {
		return false
	}
	return ca == c[b]
}

const (
	sharedPoints   = 10
	categoryPoints = 5
)

// Match is the outcome of comparing two answer sheets.
type Match struct {
	Compatibility int
	Shared        int
	Total         int
	Points        [2]int
}

// Score compares two answer sheets question by question. Identical
// answers score 10 points for each player, answers from the same category
// score 5. A question left blank by either player scores nothing.
// Compatibility is the average score as a percentage of the maximum.
func Score(first, second []string, categories Categories) Match {
	m := Match{Total: max(len(first), len(second))}

	for i := range m.Total {
		if i >= len(first) || i >= len(second) {
			continue
		}
		a, b := first[i], second[i]
		if a == "" || b == "" {
			continue
		}
		switch {
		case a == b:
			m.Shared++
			m.Points[0] += sharedPoints
			m.Points[1] += sharedPoints
		case categories.Same(a, b):
			m.Points[0] += categoryPoints
			m.Points[1] += categoryPoints
		}
	}

	if m.Total > 0 {
		avg := float64(m.Points[0]+m.Points[1]) / 2
		m.Compatibility = int(math.Round(avg / float64(m.Total*sharedPoints) * 100))
	}
	return m
}
