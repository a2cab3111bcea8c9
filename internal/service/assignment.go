package service

import (
	"context"
	"sort"
	"strings"

	"github.com/psds-microservice/complaint-service/internal/model"
	"github.com/psds-microservice/complaint-service/internal/store"
)

// Scoring weights for engineer ranking.
const (
	bonusFree          = 10.0
	penaltyBusy        = -5.0
	bonusMachineMatch  = 5.0
	bonusExpert        = 3.0
	bonusAdvanced      = 2.0
	bonusCategoryMatch = 4.0
	maxExperienceBonus = 5.0
)

// Engine ranks engineers against a ticket's machine model and issue
// categories. Scores are deterministic; ties keep enumeration order.
type Engine struct {
	store store.Store
}

func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// ScoredEngineer is one ranked candidate.
type ScoredEngineer struct {
	Engineer       model.Engineer     `json:"engineer"`
	Availability   model.Availability `json:"availability,omitempty"`
	Score          float64            `json:"score"`
	MatchingSkills int                `json:"matching_skills"`
}

// matchFold reports a case-insensitive substring match in either direction.
// Empty operands never match.
func matchFold(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// scoreSkills returns the additive skill score against machineModel and
// categories. A skill matching both the machine model and a category
// contributes both bonuses.
func scoreSkills(skills []model.Skill, machineModel string, categories []string) float64 {
	var score float64
	for _, s := range skills {
		if matchFold(s.Name, machineModel) {
			score += bonusMachineMatch
			switch s.Proficiency {
			case model.ProficiencyExpert:
				score += bonusExpert
			case model.ProficiencyAdvanced:
				score += bonusAdvanced
			}
		}
		for _, c := range categories {
			if matchFold(s.Name, c) {
				score += bonusCategoryMatch
				break
			}
		}
	}
	var years float64
	for _, s := range skills {
		years += s.YearsExperience
	}
	exp := years / 2
	if exp > maxExperienceBonus {
		exp = maxExperienceBonus
	}
	return score + exp
}

func availabilityScore(av model.Availability) float64 {
	switch av {
	case model.AvailabilityFree:
		return bonusFree
	case model.AvailabilityBusy:
		return penaltyBusy
	}
	return 0
}

// matchingSkillCount counts skills matching either the machine model or any
// issue category. Used by Suggest, which orders by availability and match
// count rather than by the full score.
func matchingSkillCount(skills []model.Skill, machineModel string, categories []string) int {
	n := 0
	for _, s := range skills {
		if matchFold(s.Name, machineModel) {
			n++
			continue
		}
		for _, c := range categories {
			if matchFold(s.Name, c) {
				n++
				break
			}
		}
	}
	return n
}

// Rank scores every active engineer against the ticket and returns them in
// descending score order. The sort is stable: equal scores keep the store's
// enumeration order (ascending engineer id).
func (e *Engine) Rank(ctx context.Context, t *model.Ticket) ([]ScoredEngineer, error) {
	machine, err := e.store.GetMachine(ctx, t.MachineID)
	if err != nil {
		return nil, err
	}
	engineers, err := e.store.ListActiveEngineers(ctx)
	if err != nil {
		return nil, err
	}
	ranked := make([]ScoredEngineer, 0, len(engineers))
	for _, eng := range engineers {
		skills, err := e.store.ListSkills(ctx, eng.ID)
		if err != nil {
			return nil, err
		}
		var av model.Availability
		if st, err := e.store.GetEngineerStatus(ctx, eng.ID); err == nil {
			av = st.Availability
		}
		ranked = append(ranked, ScoredEngineer{
			Engineer:       eng,
			Availability:   av,
			Score:          availabilityScore(av) + scoreSkills(skills, machine.ModelName, t.IssueCategories),
			MatchingSkills: matchingSkillCount(skills, machine.ModelName, t.IssueCategories),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// Suggest returns up to five candidates for the ticket, free engineers
// first, then by descending matching-skill count. This ordering is
// intentionally distinct from the auto-assign score.
func (e *Engine) Suggest(ctx context.Context, ticketID uint64) ([]ScoredEngineer, error) {
	t, err := e.store.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	machine, err := e.store.GetMachine(ctx, t.MachineID)
	if err != nil {
		return nil, err
	}
	engineers, err := e.store.ListActiveEngineers(ctx)
	if err != nil {
		return nil, err
	}
	candidates := make([]ScoredEngineer, 0, len(engineers))
	for _, eng := range engineers {
		skills, err := e.store.ListSkills(ctx, eng.ID)
		if err != nil {
			return nil, err
		}
		var av model.Availability
		if st, err := e.store.GetEngineerStatus(ctx, eng.ID); err == nil {
			av = st.Availability
		}
		candidates = append(candidates, ScoredEngineer{
			Engineer:       eng,
			Availability:   av,
			MatchingSkills: matchingSkillCount(skills, machine.ModelName, t.IssueCategories),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		fi, fj := candidates[i].Availability == model.AvailabilityFree, candidates[j].Availability == model.AvailabilityFree
		if fi != fj {
			return fi
		}
		return candidates[i].MatchingSkills > candidates[j].MatchingSkills
	})
	if len(candidates) > 5 {
		candidates = candidates[:5]
	}
	return candidates, nil
}
