package assessment

import (
	"fmt"
	"strings"
)

// Kind identifies a questionnaire.
type Kind string

const (
	PHQ9 Kind = "phq9"
	GAD7 Kind = "gad7"
)

// MaxAnswer is the highest value a single question accepts.
const MaxAnswer = 3

// Band is a severity category with an inclusive upper score bound.
type Band struct {
	Max   int
	Label string
}

// Definition describes a questionnaire.
type Definition struct {
	Kind       Kind
	Title      string
	ScoreLabel string
	Questions  []string
	Bands      []Band
	Advice     string
}

// MaxScore is the highest reachable total.
func (d Definition) MaxScore() int {
	return len(d.Questions) * MaxAnswer
}

// BandFor returns the band label for score. Scores above the last threshold
// fall into the final band.
func (d Definition) BandFor(score int) string {
	for _, band := range d.Bands {
		if score <= band.Max {
			return band.Label
		}
	}
	return d.Bands[len(d.Bands)-1].Label
}

// Result scores a total. It rejects totals outside [0, MaxScore].
func (d Definition) Result(score int) (Result, error) {
	if score < 0 || score > d.MaxScore() {
		return Result{}, fmt.Errorf("%s score %d out of range 0-%d", d.Kind, score, d.MaxScore())
	}
	return Result{
		Kind:       d.Kind,
		Score:      score,
		Max:        d.MaxScore(),
		Band:       d.BandFor(score),
		ScoreLabel: d.ScoreLabel,
		Advice:     d.Advice,
	}, nil
}

const answerPrompt = "Over the last 2 weeks, how often have you been bothered by the following problems?"

// AnswerLabels name the values 0 through 3.
var AnswerLabels = [MaxAnswer + 1]string{
	"Not at all",
	"Several days",
	"More than half the days",
	"Nearly every day",
}

var definitions = map[Kind]Definition{
	PHQ9: {
		Kind:       PHQ9,
		Title:      "PHQ-9 depression check",
		ScoreLabel: "PHQ-9 score",
		Questions: []string{
			"Little interest or pleasure in doing things",
			"Feeling down, depressed, or hopeless",
			"Trouble falling or staying asleep, or sleeping too much",
			"Feeling tired or having little energy",
			"Poor appetite or overeating",
			"Feeling bad about yourself, or that you are a failure or have let yourself or your family down",
			"Trouble concentrating on things, such as reading the newspaper or watching television",
			"Moving or speaking so slowly that other people could have noticed, or being so fidgety or restless that you have been moving around a lot more than usual",
			"Thoughts that you would be better off dead, or of hurting yourself",
		},
		Bands: []Band{
			{Max: 4, Label: "Minimal"},
			{Max: 9, Label: "Mild"},
			{Max: 14, Label: "Moderate"},
			{Max: 19, Label: "Moderately severe"},
			{Max: 27, Label: "Severe"},
		},
		Advice: "This is a screening tool, not a diagnosis. If your mood is affecting daily life, consider talking with a health professional.",
	},
	GAD7: {
		Kind:       GAD7,
		Title:      "GAD-7 anxiety check",
		ScoreLabel: "GAD-7 score",
		Questions: []string{
			"Feeling nervous, anxious, or on edge",
			"Not being able to stop or control worrying",
			"Worrying too much about different things",
			"Trouble relaxing",
			"Being so restless that it is hard to sit still",
			"Becoming easily annoyed or irritable",
			"Feeling afraid, as if something awful might happen",
		},
		Bands: []Band{
			{Max: 4, Label: "Minimal"},
			{Max: 9, Label: "Mild"},
			{Max: 14, Label: "Moderate"},
			{Max: 21, Label: "Severe"},
		},
		Advice: "This is a screening tool, not a diagnosis. If worry is getting in the way, consider talking with a health professional.",
	},
}

// Prompt is the instruction shown above every questionnaire.
func Prompt() string {
	return answerPrompt
}

// Lookup returns the definition for kind. Matching ignores case and
// surrounding space.
func Lookup(kind string) (Definition, bool) {
	def, ok := definitions[Kind(strings.ToLower(strings.TrimSpace(kind)))]
	return def, ok
}

// Kinds lists the supported questionnaires in display order.
func Kinds() []Kind {
	return []Kind{PHQ9, GAD7}
}

// Score sums answer values. Order does not matter.
func Score(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
