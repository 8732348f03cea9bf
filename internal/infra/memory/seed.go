package memory

import (
	"time"

	"ctf-scoreboard-service/internal/domain"
)

// SampleData provides a minimal competition for demo runs without a
// database; swap in the postgres store for real deployments.
func SampleData() ([]domain.Participant, []domain.Question) {
	registered := time.Now().Add(-time.Hour)
	participants := []domain.Participant{
		{ID: "team-alpha", DisplayName: "Team Alpha", Tier: domain.TierBeginner, RegisteredAt: registered},
		{ID: "team-bravo", DisplayName: "Team Bravo", Tier: domain.TierBeginner, RegisteredAt: registered.Add(time.Minute)},
		{ID: "team-carbon", DisplayName: "Team Carbon", Tier: domain.TierIntermediate, RegisteredAt: registered.Add(2 * time.Minute)},
	}
	questions := []domain.Question{
		{ID: "q-caesar", CategoryID: "crypto", Title: "Caesar's Secret", Answer: "flag{et-tu-brute}", Points: 100, Tier: domain.TierBeginner},
		{ID: "q-headers", CategoryID: "web", Title: "Header Hunt", Answer: "flag{x-marks-the-spot}", Points: 150, Tier: domain.TierBeginner},
		{ID: "q-heap", CategoryID: "pwn", Title: "Heap of Trouble", Answer: "flag{use-after-freedom}", Points: 300, Tier: domain.TierIntermediate},
	}
	return participants, questions
}
