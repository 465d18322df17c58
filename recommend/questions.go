package recommend

// Condition gates a question on a previously given answer.
type Condition struct {
	QuestionID int
	Answer     string
}

// Question is one entry of the static onboarding question bank.
type Question struct {
	ID            int
	Prompt        string
	Options       []string
	ConditionalOn *Condition
}

// AnswerSet maps a question id to the selected option text.
type AnswerSet map[int]string

// questions is the static bank, in asking order. Question 3 is only asked
// for warung/kiosk owners.
var questions = []Question{
	{
		ID:     1,
		Prompt: "Apa yang sedang anda butuhkan sekarang?",
		Options: []string{
			"Menambah modal usaha",
			"Mencari penghasilan tambahan",
			"Menabung",
		},
	},
	{
		ID:     2,
		Prompt: "Usaha apa yang anda miliki?",
		Options: []string{
			"Warung kelontong atau kios",
			"Bertani atau beternak",
			"Kuliner (makanan atau minuman)",
			"Jasa atau layanan",
			"Produksi atau kerajinan",
			"Tidak ada",
		},
	},
	{
		ID:      3,
		Prompt:  "Sehari-hari, warung Ibu itu lebih sering ramai atau sepi?",
		Options: []string{"Ramai", "Sepi", "Tidak menentu"},
		ConditionalOn: &Condition{
			QuestionID: 2,
			Answer:     "Warung kelontong atau kios",
		},
	},
	{
		ID:     4,
		Prompt: "Ketika memakai HP, anda...",
		Options: []string{
			"Masih sering bingung",
			"Lumayan bisa",
			"Sudah cukup lancar",
			"Lancar sekali",
		},
	},
	{
		ID:      5,
		Prompt:  "Uang anda biasanya...",
		Options: []string{"Selalu habis", "Ada sisa sedikit", "Ada sisa cukup banyak"},
	},
}

// TotalSteps is the declared progress-bar length: the maximum number of
// questions on any path, regardless of how many are actually visible.
const TotalSteps = 5

// Questions returns the full static question bank in asking order.
func Questions() []Question {
	return questions
}

// VisibleQuestions returns the ordered subset of the bank whose condition is
// absent or satisfied by the given answers.
func VisibleQuestions(answers AnswerSet) []Question {
	visible := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.ConditionalOn == nil || answers[q.ConditionalOn.QuestionID] == q.ConditionalOn.Answer {
			visible = append(visible, q)
		}
	}
	return visible
}
