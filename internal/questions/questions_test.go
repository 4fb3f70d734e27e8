package questions_test

import (
	"os"
	"path/filepath"
	"testing"

	"pairquiz-backend/api"
	"pairquiz-backend/internal/questions"

	"github.com/google/go-cmp/cmp"
)

func TestLoadEmbedded(t *testing.T) {
	qs, err := questions.Load("")
	assertNil(t, err)
	assertEqual(t, true, len(qs) > 0)

	stages := map[int]int{}
	for _, q := range qs {
		assertNil(t, questions.Validate(q))
		if q.Status == api.QuestionStatusActive {
			stages[q.Stage]++
		}
	}
	for stage := 1; stage <= 3; stage++ {
		assertEqual(t, 4, stages[stage])
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	content := `questions:
  - stage: 2
    question: Tea or coffee?
    options:
      - {text: Tea, category: Self Soothing}
      - {text: Coffee, category: Social Support}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := questions.Load(path)
	assertNil(t, err)

	want := []api.Question{{
		Stage:    2,
		Question: "Tea or coffee?",
		Options: []api.QuestionOption{
			{Text: "Tea", Category: "Self Soothing"},
			{Text: "Coffee", Category: "Social Support"},
		},
		Status: api.QuestionStatusActive,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("questions mismatch (-want +got):\n%s", diff)
	}

	_, err = questions.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assertEqual(t, true, err != nil)
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "stage out of range",
			content: "questions:\n  - {stage: 11, question: q, options: [{text: a}, {text: b}]}\n",
		},
		{
			name:    "missing text",
			content: "questions:\n  - {stage: 1, options: [{text: a}, {text: b}]}\n",
		},
		{
			name:    "single option",
			content: "questions:\n  - {stage: 1, question: q, options: [{text: a}]}\n",
		},
		{
			name:    "unknown status",
			content: "questions:\n  - {stage: 1, question: q, status: draft, options: [{text: a}, {text: b}]}\n",
		},
		{
			name:    "malformed yaml",
			content: "questions: [",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := questions.Parse([]byte(tt.content))
			if err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestScore(t *testing.T) {
	categories := questions.Categories{
		"Meditation or a solo walk in nature":            "Self Soothing",
		"Listening to music and getting lost in thought": "Self Soothing",
		"Going out with friends to clear your head":      "Social Support",
		"Talking it out with someone close":              "Social Support",
	}

	tests := []struct {
		name   string
		first  []string
		second []string
		want   questions.Match
	}{
		{
			name:   "identical",
			first:  []string{"a", "b"},
			second: []string{"a", "b"},
			want:   questions.Match{Compatibility: 100, Shared: 2, Total: 2, Points: [2]int{20, 20}},
		},
		{
			name:   "same category",
			first:  []string{"Meditation or a solo walk in nature"},
			second: []string{"Listening to music and getting lost in thought"},
			want:   questions.Match{Compatibility: 50, Total: 1, Points: [2]int{5, 5}},
		},
		{
			name:   "different category",
			first:  []string{"Meditation or a solo walk in nature"},
			second: []string{"Talking it out with someone close"},
			want:   questions.Match{Total: 1},
		},
		{
			name:   "unknown answers",
			first:  []string{"x"},
			second: []string{"y"},
			want:   questions.Match{Total: 1},
		},
		{
			name:   "uneven sheets",
			first:  []string{"a", "b", "c"},
			second: []string{"a"},
			want:   questions.Match{Compatibility: 33, Shared: 1, Total: 3, Points: [2]int{10, 10}},
		},
		{
			name:   "blank answers",
			first:  []string{"", "b"},
			second: []string{"", "b"},
			want:   questions.Match{Compatibility: 50, Shared: 1, Total: 2, Points: [2]int{10, 10}},
		},
		{
			name: "empty",
			want: questions.Match{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := questions.Score(tt.first, tt.second, categories)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("match mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCategoriesFromBank(t *testing.T) {
	qs, err := questions.Load("")
	assertNil(t, err)
	categories := questions.NewCategories(qs)

	assertEqual(t, true, categories.Same("Inner peace", "Personal growth"))
	assertEqual(t, false, categories.Same("Inner peace", "Helping others"))
	assertEqual(t, false, categories.Same("unknown", "unknown too"))
}

func assertEqual(t *testing.T, want, got any) {
	t.Helper()
	if want != got {
		t.Errorf("assert equal: got %v (type %T), want %v (type %T)", got, got, want, want)
	}
}

func assertNil(t *testing.T, got error) {
	t.Helper()
	if got != nil {
		t.Errorf("assert nil: got %v", got)
	}
}
