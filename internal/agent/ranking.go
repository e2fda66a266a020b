package agent

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

// initialRating and kFactor follow the conventional Elo defaults used by
// tournament-style ranking systems.
const (
	initialRating = 1200.0
	kFactor       = 32.0
)

type rankingAgent struct {
	envelope

	mu       sync.Mutex
	ratings  map[string]*core.Ranking
}

func newRankingAgent(gw core.Gateway, mem core.ContextMemory, cfg core.AgentEnvelopeConfig) core.RankingAgent {
	return &rankingAgent{
		envelope: envelope{gw: gw, mem: mem, cfg: cfg, kind: core.AgentRanking},
		ratings:  map[string]*core.Ranking{},
	}
}

func (a *rankingAgent) ratingOf(id string) *core.Ranking {
	r, ok := a.ratings[id]
	if !ok {
		r = &core.Ranking{HypothesisID: id, Rating: initialRating}
		a.ratings[id] = r
	}
	return r
}

// expectedScore is the standard Elo win probability of a over b.
func expectedScore(a, b float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (b-a)/400))
}

func (a *rankingAgent) CompareHypotheses(ctx context.Context, hypA, hypB string) (core.AgentResult, error) {
	prompt := fmt.Sprintf("Compare hypothesis %s against hypothesis %s; decide which is stronger and explain why", hypA, hypB)
	req := a.newRequest(core.RequestCompare, prompt, nil)

	var parsed struct {
		Winner     string  `json:"winner"`
		Rationale  string  `json:"rationale"`
		Confidence float64 `json:"confidence"`
	}
	_, raw, err := a.call(ctx, req, &parsed)
	if err != nil {
		return core.AgentResult{}, err
	}
	if parsed.Rationale == "" {
		parsed.Rationale = raw
	}
	if parsed.Winner != hypA && parsed.Winner != hypB {
		parsed.Winner = hypA
	}

	comparison := core.Comparison{
		HypothesisA: hypA,
		HypothesisB: hypB,
		Winner:      parsed.Winner,
		Rationale:   parsed.Rationale,
		CreatedAt:   time.Now().UTC(),
	}

	a.mu.Lock()
	ra, rb := a.ratingOf(hypA), a.ratingOf(hypB)
	scoreA := 1.0
	if parsed.Winner != hypA {
		scoreA = 0.0
	}
	expectedA := expectedScore(ra.Rating, rb.Rating)
	ra.Rating += kFactor * (scoreA - expectedA)
	rb.Rating += kFactor * ((1 - scoreA) - (1 - expectedA))
	if parsed.Winner == hypA {
		ra.Wins++
		rb.Losses++
	} else {
		rb.Wins++
		ra.Losses++
	}
	a.mu.Unlock()

	storage := a.persist(req.RequestID, comparison)

	return core.AgentResult{
		TaskID:     req.RequestID,
		AgentType:  core.AgentRanking,
		Artifact:   comparison,
		Confidence: parsed.Confidence,
		Cached:     !storage.Success,
	}, nil
}

func (a *rankingAgent) Standings() []core.Ranking {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]core.Ranking, 0, len(a.ratings))
	for _, r := range a.ratings {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out
}
