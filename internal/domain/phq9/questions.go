package phq9

// Option is one of the four answer choices shared by every item.
type Option struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Questionnaire is the static form served to clients.
type Questionnaire struct {
	Prompt    string   `json:"prompt"`
	Questions []string `json:"questions"`
	Options   []Option `json:"options"`
}

var questions = [ItemCount]string{
	"Little interest or pleasure in doing things",
	"Feeling down, depressed, or hopeless",
	"Trouble falling or staying asleep, or sleeping too much",
	"Feeling tired or having little energy",
	"Poor appetite or overeating",
	"Feeling bad about yourself, or that you are a failure or have let yourself or your family down",
	"Trouble concentrating on things, such as reading the newspaper or watching television",
	"Moving or speaking so slowly that other people could have noticed, or the opposite: being so fidgety or restless that you have been moving around a lot more than usual",
	"Thoughts that you would be better off dead or of hurting yourself in some way",
}

var options = []Option{
	{Value: 0, Label: "Not at all"},
	{Value: 1, Label: "Several days"},
	{Value: 2, Label: "More than half the days"},
	{Value: 3, Label: "Nearly every day"},
}

// Form returns a copy of the PHQ-9 questionnaire.
func Form() Questionnaire {
	qs := make([]string, ItemCount)
	copy(qs, questions[:])
	opts := make([]Option, len(options))
	copy(opts, options)
	return Questionnaire{
		Prompt:    "Over the last 2 weeks, how often have you been bothered by any of the following problems?",
		Questions: qs,
		Options:   opts,
	}
}
