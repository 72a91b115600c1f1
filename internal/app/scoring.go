package app

import (
	"math"
	"sort"

	"quizlive/internal/domain"
)

// ScoreSubmission evaluates a raw submission against a question and returns
// the awarded points and whether the answer was fully correct. The base score
// is on a 0..100 scale per question; the time bonus multiplies it by up to
// 1.2 depending on how fast the answer came in. Points accumulate additively
// across questions with no further normalization.
func ScoreSubmission(q domain.Question, payload domain.AnswerPayload, timeSpentSec float64, limitSec int) (int, bool) {
	base := baseScore(q, payload)
	correct := base >= 100
	return applyTimeBonus(base, timeSpentSec, limitSec), correct
}

// baseScore dispatches on the question type. Unknown types score zero, never
// an error: reference data with a type this engine does not understand must
// not break a running game.
func baseScore(q domain.Question, payload domain.AnswerPayload) float64 {
	switch q.Type {
	case domain.TypeSingleChoice:
		return scoreSingleChoice(q, payload.AnswerIDs)
	case domain.TypeMultipleChoice:
		return scoreMultipleChoice(q, payload.AnswerIDs)
	case domain.TypeFindIntruder:
		return scoreFindIntruder(q, payload.AnswerIDs)
	case domain.TypeMatching:
		return scoreMatching(q, payload.Pairs)
	case domain.TypeOrdering:
		return scoreOrdering(q, payload.Order)
	default:
		return 0
	}
}

// applyTimeBonus computes round-half-up(base * (1 + 0.2*bonus)) where bonus
// is the unspent fraction of the time limit. Zero base stays zero regardless
// of speed.
func applyTimeBonus(base, timeSpentSec float64, limitSec int) int {
	if base <= 0 {
		return 0
	}
	bonus := 0.0
	if limitSec > 0 {
		bonus = (float64(limitSec) - timeSpentSec) / float64(limitSec)
		if bonus < 0 {
			bonus = 0
		}
	}
	return int(math.Floor(base*(1+bonus*0.2) + 0.5))
}

func correctIDSet(q domain.Question) map[string]struct{} {
	set := make(map[string]struct{})
	for _, a := range q.Answers {
		if a.IsCorrect {
			set[a.ID] = struct{}{}
		}
	}
	return set
}

// scoreSingleChoice awards full credit when any submitted ID is in the
// correct set.
func scoreSingleChoice(q domain.Question, submitted []string) float64 {
	correct := correctIDSet(q)
	for _, id := range submitted {
		if _, ok := correct[id]; ok {
			return 100
		}
	}
	return 0
}

// scoreMultipleChoice awards full credit only when the submitted set equals
// the correct set.
func scoreMultipleChoice(q domain.Question, submitted []string) float64 {
	correct := correctIDSet(q)
	if len(correct) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(submitted))
	for _, id := range submitted {
		if _, ok := correct[id]; !ok {
			return 0
		}
		seen[id] = struct{}{}
	}
	if len(seen) != len(correct) {
		return 0
	}
	return 100
}

// scoreFindIntruder awards full credit when the single submitted ID is the
// designated intruder.
func scoreFindIntruder(q domain.Question, submitted []string) float64 {
	if len(submitted) != 1 {
		return 0
	}
	for _, a := range q.Answers {
		if a.IsIntruder && a.ID == submitted[0] {
			return 100
		}
	}
	return 0
}

// scoreMatching gives fractional credit: correctly matched pairs over total
// pairs, times 100. A submitted pair counts when both IDs exist, differ, and
// share a pair ID; each pair is credited at most once.
func scoreMatching(q domain.Question, pairs map[string]string) float64 {
	pairIDs := make(map[string]string, len(q.Answers))
	total := make(map[string]struct{})
	for _, a := range q.Answers {
		if a.PairID == "" {
			continue
		}
		pairIDs[a.ID] = a.PairID
		total[a.PairID] = struct{}{}
	}
	if len(total) == 0 {
		return 0
	}

	credited := make(map[string]struct{})
	for left, right := range pairs {
		if left == right {
			continue
		}
		lp, lok := pairIDs[left]
		rp, rok := pairIDs[right]
		if lok && rok && lp == rp {
			credited[lp] = struct{}{}
		}
	}
	return float64(len(credited)) / float64(len(total)) * 100
}

// scoreOrdering gives full credit for an exact sequence match, otherwise
// partial credit for positions matching the canonical order.
func scoreOrdering(q domain.Question, submitted []string) float64 {
	ordered := make([]domain.Answer, len(q.Answers))
	copy(ordered, q.Answers)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})
	canonical := make([]string, 0, len(ordered))
	for _, a := range ordered {
		canonical = append(canonical, a.ID)
	}
	if len(canonical) == 0 {
		return 0
	}

	if len(submitted) == len(canonical) {
		exact := true
		for i := range canonical {
			if submitted[i] != canonical[i] {
				exact = false
				break
			}
		}
		if exact {
			return 100
		}
	}

	matches := 0
	for i := range canonical {
		if i < len(submitted) && submitted[i] == canonical[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(canonical)) * 100
}
