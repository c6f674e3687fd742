package practice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func qs(topic string, correct, wrong int) []Question {
	var out []Question
	for i := 0; i < correct; i++ {
		out = append(out, Question{Topic: topic, Correct: true})
	}
	for i := 0; i < wrong; i++ {
		out = append(out, Question{Topic: topic, Correct: false})
	}
	return out
}

func TestAnalyzeSAT(t *testing.T) {
	sections := []Section{
		{Name: "Math", Questions: append(qs("algebra", 2, 0), qs("geometry", 1, 0)...)},
		{Name: "Reading and Writing", Questions: append(qs("grammar", 1, 1), qs("vocab", 0, 2)...)},
	}

	a, err := Analyze(ExamSAT, sections)
	require.NoError(t, err)

	require.Len(t, a.Sections, 2)
	assert.Equal(t, SectionResult{Name: "Math", Raw: 3, Total: 3, Scaled: 800}, a.Sections[0])
	assert.Equal(t, SectionResult{Name: "Reading and Writing", Raw: 1, Total: 4, Scaled: 350}, a.Sections[1])
	assert.Equal(t, 1150, a.Composite)

	assert.Equal(t, []TopicResult{
		{Topic: "algebra", Correct: 2, Total: 2, Accuracy: 1},
		{Topic: "geometry", Correct: 1, Total: 1, Accuracy: 1},
		{Topic: "grammar", Correct: 1, Total: 2, Accuracy: 0.5},
		{Topic: "vocab", Correct: 0, Total: 2, Accuracy: 0},
	}, a.Topics)

	assert.Equal(t, []string{"vocab", "grammar"}, a.WeakestTopics)
}

func TestAnalyzeACT(t *testing.T) {
	sections := []Section{
		{Name: "English", Questions: qs("punctuation", 15, 5)},
		{Name: "Math", Questions: qs("algebra", 10, 10)},
	}

	a, err := Analyze(ExamACT, sections)
	require.NoError(t, err)

	assert.Equal(t, 27, a.Sections[0].Scaled)
	assert.Equal(t, 19, a.Sections[1].Scaled)
	assert.Equal(t, 23, a.Composite)
}

func TestAnalyzeTopicNormalization(t *testing.T) {
	sections := []Section{
		{Name: "Math", Questions: []Question{
			{Topic: "  Algebra ", Correct: true},
			{Topic: "algebra", Correct: false},
			{Topic: "", Correct: true},
		}},
	}

	a, err := Analyze(ExamSAT, sections)
	require.NoError(t, err)

	assert.Equal(t, []TopicResult{
		{Topic: "algebra", Correct: 1, Total: 2, Accuracy: 0.5},
		{Topic: "general", Correct: 1, Total: 1, Accuracy: 1},
	}, a.Topics)
}

func TestAnalyzeWeakestTiesAlphabetical(t *testing.T) {
	sections := []Section{
		{Name: "Math", Questions: append(append(
			qs("zeta", 0, 1), qs("alpha", 0, 1)...), qs("mid", 1, 1)...)},
	}

	a, err := Analyze(ExamACT, sections)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "zeta", "mid"}, a.WeakestTopics)
}

func TestAnalyzeErrors(t *testing.T) {
	_, err := Analyze(Exam("gre"), []Section{{Name: "Verbal", Questions: qs("vocab", 1, 0)}})
	assert.ErrorIs(t, err, ErrUnknownExam)

	_, err = Analyze(ExamSAT, nil)
	assert.ErrorIs(t, err, ErrNoSections)

	_, err = Analyze(ExamSAT, []Section{{Name: "Math"}})
	assert.ErrorIs(t, err, ErrEmptySection)
}
