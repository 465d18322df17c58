package recommend

// Flow drives the onboarding questionnaire: which question is asked, which
// answers have been collected, and the progress step shown to the user.
type Flow struct {
	index   int // position within the visible question sequence
	step    int // 1-based progress step out of TotalSteps
	answers AnswerSet
}

// NewFlow starts a questionnaire at the first question.
func NewFlow() *Flow {
	return &Flow{step: 1, answers: make(AnswerSet)}
}

// Current returns the question being asked.
func (f *Flow) Current() Question {
	return VisibleQuestions(f.answers)[f.index]
}

// Answers returns a copy of the collected answers.
func (f *Flow) Answers() AnswerSet {
	out := make(AnswerSet, len(f.answers))
	for id, answer := range f.answers {
		out[id] = answer
	}
	return out
}

// Select records the chosen option for the current question. Answers for
// questions that the choice hides are dropped, so the answer set only ever
// holds entries for visible questions.
func (f *Flow) Select(option string) {
	f.answers[f.Current().ID] = option

	for _, q := range questions {
		if q.ConditionalOn != nil && f.answers[q.ConditionalOn.QuestionID] != q.ConditionalOn.Answer {
			delete(f.answers, q.ID)
		}
	}
}

// Answered reports whether the current question has a non-empty answer.
func (f *Flow) Answered() bool {
	return f.answers[f.Current().ID] != ""
}

// Next advances to the following visible question and returns true, or
// returns false when the last question has been answered and the flow is
// complete. Advancing past the branching question (id 2) with an answer that
// hides the conditional question bumps the step by 2, keeping the 5-step
// progress bar consistent across the shorter path.
func (f *Flow) Next() bool {
	current := f.Current()
	visible := VisibleQuestions(f.answers)

	if f.index >= len(visible)-1 {
		return false
	}

	skippedConditional := current.ID == 2 && f.answers[2] != "Warung kelontong atau kios"
	f.index++
	if skippedConditional {
		f.step += 2
	} else {
		f.step++
	}
	return true
}

// Back moves to the previous question and returns true, or returns false at
// the first question (the caller leaves the flow). The step always decrements
// by one, asymmetric with the forward skip; observed behavior, kept as is.
func (f *Flow) Back() bool {
	if f.index == 0 {
		return false
	}
	f.index--
	f.step--
	return true
}

// Progress returns the progress percentage out of the declared 5 steps.
func (f *Flow) Progress() float64 {
	return float64(f.step) / float64(TotalSteps) * 100
}

// Result scores the collected answers.
func (f *Flow) Result() Product {
	return Recommend(f.answers)
}
