package practice

import (
	"math"
	"sort"
	"strings"
)

// SAT sections scale to 200-800 in steps of 10 and the composite is their
// sum; ACT sections scale to 1-36 and the composite is the rounded mean.
// Scaling is linear over the raw fraction; real score tables are equated
// per test form, which mock analysis does not attempt.
const (
	satMin, satMax = 200, 800
	actMin, actMax = 1, 36
	weakestLimit   = 3
)

// Analyze validates the attempt input and computes section scores, topic
// accuracy, and the weakest topics.
func Analyze(exam Exam, sections []Section) (Analysis, error) {
	if exam != ExamSAT && exam != ExamACT {
		return Analysis{}, ErrUnknownExam
	}
	if len(sections) == 0 {
		return Analysis{}, ErrNoSections
	}

	a := Analysis{Exam: exam}
	topicAgg := make(map[string]*TopicResult)

	for _, s := range sections {
		if len(s.Questions) == 0 {
			return Analysis{}, ErrEmptySection
		}

		raw := 0
		for _, q := range s.Questions {
			if q.Correct {
				raw++
			}
			topic := strings.TrimSpace(strings.ToLower(q.Topic))
			if topic == "" {
				topic = "general"
			}
			tr, ok := topicAgg[topic]
			if !ok {
				tr = &TopicResult{Topic: topic}
				topicAgg[topic] = tr
			}
			tr.Total++
			if q.Correct {
				tr.Correct++
			}
		}

		a.Sections = append(a.Sections, SectionResult{
			Name:   s.Name,
			Raw:    raw,
			Total:  len(s.Questions),
			Scaled: scaleSection(exam, raw, len(s.Questions)),
		})
	}

	a.Composite = composite(exam, a.Sections)

	for _, tr := range topicAgg {
		tr.Accuracy = round2(float64(tr.Correct) / float64(tr.Total))
		a.Topics = append(a.Topics, *tr)
	}
	sort.Slice(a.Topics, func(i, j int) bool {
		return a.Topics[i].Topic < a.Topics[j].Topic
	})

	a.WeakestTopics = weakestTopics(a.Topics, weakestLimit)
	return a, nil
}

// scaleSection maps a raw fraction onto the exam's scaled range.
func scaleSection(exam Exam, raw, total int) int {
	frac := float64(raw) / float64(total)
	switch exam {
	case ExamSAT:
		// Round to the nearest 10, like a reported SAT section score.
		scaled := satMin + frac*(satMax-satMin)
		return int(math.Round(scaled/10) * 10)
	default:
		return actMin + int(math.Round(frac*(actMax-actMin)))
	}
}

func composite(exam Exam, sections []SectionResult) int {
	sum := 0
	for _, s := range sections {
		sum += s.Scaled
	}
	if exam == ExamACT {
		return int(math.Round(float64(sum) / float64(len(sections))))
	}
	return sum
}

// weakestTopics returns up to limit topics with the lowest accuracy,
// alphabetical on ties. Topics already at 100% are never reported.
func weakestTopics(topics []TopicResult, limit int) []string {
	ranked := make([]TopicResult, len(topics))
	copy(ranked, topics)
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Accuracy != ranked[j].Accuracy {
			return ranked[i].Accuracy < ranked[j].Accuracy
		}
		return ranked[i].Topic < ranked[j].Topic
	})

	var out []string
	for _, tr := range ranked {
		if tr.Accuracy >= 1 {
			break
		}
		out = append(out, tr.Topic)
		if len(out) == limit {
			break
		}
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
