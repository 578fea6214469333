// Package phq9 scores PHQ-9 questionnaire responses against the DSM-5 style
// threshold rules. Everything here is pure; persistence lives elsewhere.
package phq9

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	// ItemCount is the number of questions on the PHQ-9.
	ItemCount = 9
	// MaxItemScore is the highest answer value for a single item.
	MaxItemScore = 3
	// MaxTotal is the highest possible total score.
	MaxTotal = ItemCount * MaxItemScore

	// ItemDepressedMood and ItemAnhedonia are the two cardinal MDD symptoms.
	ItemAnhedonia     = 0
	ItemDepressedMood = 1
	// ItemSelfHarm is the suicidal-ideation item.
	ItemSelfHarm = 8

	// positiveThreshold is the answer value ("more than half the days") at
	// which an item counts as a present symptom.
	positiveThreshold = 2
	mddMinSymptoms    = 5
)

// Severity is the DSM-5 style label derived from the total score.
type Severity string

const (
	SeverityNone             Severity = "No depression"
	SeverityMild             Severity = "Mild depression"
	SeverityModerate         Severity = "Moderate depression"
	SeverityModeratelySevere Severity = "Moderately severe depression"
	SeveritySevere           Severity = "Severe depression"
)

// Severities lists every label in ascending order.
var Severities = []Severity{
	SeverityNone,
	SeverityMild,
	SeverityModerate,
	SeverityModeratelySevere,
	SeveritySevere,
}

// thresholds are inclusive lower bounds, checked highest-first.
var thresholds = []struct {
	min      int
	severity Severity
}{
	{20, SeveritySevere},
	{15, SeverityModeratelySevere},
	{10, SeverityModerate},
	{5, SeverityMild},
}

var (
	ErrIncompleteResponses = errors.New("all 9 questions must be answered")
	ErrInvalidResponse     = errors.New("invalid response")
	ErrTotalOutOfRange     = errors.New("totalScore must be between 0 and 27")
	ErrTotalMismatch       = errors.New("totalScore does not match responses")
)

// Responses holds one answer per item, indexed 0..8.
type Responses [ItemCount]int

// Sum returns the total of all item answers.
func (r Responses) Sum() int {
	total := 0
	for _, v := range r {
		total += v
	}
	return total
}

// Map renders the responses in the wire shape ("0".."8" -> value).
func (r Responses) Map() map[string]int {
	m := make(map[string]int, ItemCount)
	for i, v := range r {
		m[strconv.Itoa(i)] = v
	}
	return m
}

// Result is the derived DSM-5 assessment.
type Result struct {
	Severity       Severity `json:"severity"`
	Item9Positive  bool     `json:"q9_flag"`
	MDDCriteriaMet bool     `json:"mdd_assessment"`
}

// NeedsAttention reports whether the result should be escalated to a clinician.
func (r Result) NeedsAttention() bool {
	return r.Item9Positive || r.MDDCriteriaMet
}

// SeverityFor maps a total score to its severity label.
func SeverityFor(total int) Severity {
	for _, t := range thresholds {
		if total >= t.min {
			return t.severity
		}
	}
	return SeverityNone
}

// Item9Positive is true when the self-harm item was answered 2 or higher.
func Item9Positive(r Responses) bool {
	return r[ItemSelfHarm] >= positiveThreshold
}

// MDDCriteriaMet approximates the DSM-5 rule: at least five symptoms present,
// one of which is depressed mood or anhedonia.
func MDDCriteriaMet(r Responses) bool {
	present := 0
	for _, v := range r {
		if v >= positiveThreshold {
			present++
		}
	}
	cardinal := r[ItemAnhedonia] >= positiveThreshold || r[ItemDepressedMood] >= positiveThreshold
	return present >= mddMinSymptoms && cardinal
}

// Assess runs all three rules. total is taken as given; use ValidateTotal
// beforehand if it comes from an untrusted caller.
func Assess(r Responses, total int) Result {
	return Result{
		Severity:       SeverityFor(total),
		Item9Positive:  Item9Positive(r),
		MDDCriteriaMet: MDDCriteriaMet(r),
	}
}

// ParseResponses converts the wire map into Responses. Every key "0".."8"
// must be present with a value in [0,3]; unknown keys are rejected.
func ParseResponses(in map[string]int) (Responses, error) {
	var r Responses
	if len(in) == 0 {
		return r, ErrIncompleteResponses
	}
	seen := 0
	for k, v := range in {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= ItemCount || strconv.Itoa(idx) != k {
			return r, fmt.Errorf("%w: unknown question %q", ErrInvalidResponse, k)
		}
		if v < 0 || v > MaxItemScore {
			return r, fmt.Errorf("%w: question %s must be between 0 and %d", ErrInvalidResponse, k, MaxItemScore)
		}
		r[idx] = v
		seen++
	}
	if seen != ItemCount {
		return r, ErrIncompleteResponses
	}
	return r, nil
}

// ValidateTotal checks that a caller-supplied total is in range and agrees
// with the responses.
func ValidateTotal(r Responses, total int) error {
	if total < 0 || total > MaxTotal {
		return ErrTotalOutOfRange
	}
	if total != r.Sum() {
		return ErrTotalMismatch
	}
	return nil
}
