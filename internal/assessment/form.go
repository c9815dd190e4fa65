package assessment

import "fmt"

// IncompleteError reports the first unanswered question (zero based). The
// caller should move focus there.
type IncompleteError struct {
	Question int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("question %d is unanswered", e.Question+1)
}

// Form collects one answer per question.
type Form struct {
	def     Definition
	answers []int
}

const unanswered = -1

// NewForm starts an empty form for kind.
func NewForm(kind string) (*Form, error) {
	def, ok := Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("unknown assessment kind %q", kind)
	}
	answers := make([]int, len(def.Questions))
	for i := range answers {
		answers[i] = unanswered
	}
	return &Form{def: def, answers: answers}, nil
}

// Definition returns the questionnaire the form is for.
func (f *Form) Definition() Definition {
	return f.def
}

// Answer sets the value for question (zero based). A later answer replaces an
// earlier one.
func (f *Form) Answer(question, value int) error {
	if question < 0 || question >= len(f.answers) {
		return fmt.Errorf("question %d out of range 1-%d", question+1, len(f.answers))
	}
	if value < 0 || value > MaxAnswer {
		return fmt.Errorf("answer %d out of range 0-%d", value, MaxAnswer)
	}
	f.answers[question] = value
	return nil
}

// Value returns the answer for question and whether one is set.
func (f *Form) Value(question int) (int, bool) {
	if question < 0 || question >= len(f.answers) || f.answers[question] == unanswered {
		return 0, false
	}
	return f.answers[question], true
}

// Clear removes the answer for question.
func (f *Form) Clear(question int) {
	if question >= 0 && question < len(f.answers) {
		f.answers[question] = unanswered
	}
}

// Answered reports how many questions have an answer.
func (f *Form) Answered() int {
	count := 0
	for _, v := range f.answers {
		if v != unanswered {
			count++
		}
	}
	return count
}

// Submit scores the form. It returns *IncompleteError naming the first gap
// when any question is unanswered.
func (f *Form) Submit() (Result, error) {
	for i, v := range f.answers {
		if v == unanswered {
			return Result{}, &IncompleteError{Question: i}
		}
	}
	return f.def.Result(Score(f.answers))
}
