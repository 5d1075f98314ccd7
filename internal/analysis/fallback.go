package analysis

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/acheong08/credscore/pkg/models"
)

// Rand is the random source used for fallback outcomes.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// Neutral band for synthetic scores: never reads as high or low confidence
const (
	fallbackScoreMin = 40
	fallbackScoreMax = 60
)

var fallbackFlagCatalog = []string{
	"Content requires manual verification",
	"Analysis backend temporarily unavailable",
	"Sources could not be verified automatically",
	"Cross-check claims with trusted news outlets",
	"Limited context available for assessment",
}

// FallbackGenerator produces clearly marked synthetic outcomes for when the
// scorer cannot give a trustworthy answer.
type FallbackGenerator struct {
	mu  sync.Mutex
	rnd Rand
}

// NewFallbackGenerator creates a generator drawing from rnd. A nil rnd uses a
// time-seeded source.
func NewFallbackGenerator(rnd Rand) *FallbackGenerator {
	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed>>32|1))
	}
	return &FallbackGenerator{rnd: rnd}
}

// Generate returns a synthetic outcome with a score in [40,60] and two or
// three advisory flags.
func (g *FallbackGenerator) Generate() models.Outcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	score := fallbackScoreMin + g.rnd.IntN(fallbackScoreMax-fallbackScoreMin+1)
	count := 2 + g.rnd.IntN(2)

	// Partial Fisher-Yates over a copy of the catalog
	pool := make([]string, len(fallbackFlagCatalog))
	copy(pool, fallbackFlagCatalog)
	for i := 0; i < count; i++ {
		j := i + g.rnd.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return models.Outcome{
		CredibilityScore: score,
		RedFlags:         pool[:count],
		Explanation: fmt.Sprintf("Automated analysis could not be completed, so this is a provisional assessment "+
			"with a neutral score of %d/100. It does not indicate whether the content is reliable. "+
			"Cross-reference the claims with trusted news sources and fact-checking sites before relying on or sharing this content.", score),
		IsSynthetic: true,
	}
}
