package search

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/soundprediction/mangagraph/pkg/normalize"
	"github.com/soundprediction/mangagraph/pkg/types"
)

// Request is a cascade search request.
type Request struct {
	Text  string
	Limit int
	// Languages is the order in which title languages are tried. Empty means
	// LanguagesFor(Text).
	Languages    []types.Language
	IncludeAdult bool
}

// Attempt records one strategy call.
type Attempt struct {
	Mode     types.SearchMode `json:"mode"`
	Language types.Language   `json:"language"`
	Works    int              `json:"works"`
	Err      string           `json:"error,omitempty"`
	Duration time.Duration    `json:"duration"`
}

// Outcome is the result of a cascade. Mode and Language name the strategy
// that matched and are empty when nothing did.
type Outcome struct {
	Result   *types.RawResultSet `json:"result"`
	Mode     types.SearchMode    `json:"mode,omitempty"`
	Language types.Language      `json:"language,omitempty"`
	Attempts []Attempt           `json:"attempts"`
}

// Degraded reports whether some strategy failed on the way, so the result
// may differ once the store recovers.
func (o *Outcome) Degraded() bool {
	if o == nil {
		return false
	}
	for _, a := range o.Attempts {
		if a.Err != "" {
			return true
		}
	}
	return false
}

// Found reports whether some strategy returned works.
func (o *Outcome) Found() bool {
	return o != nil && !o.Result.IsEmpty()
}

// Orchestrator runs the strategy cascade.
type Orchestrator struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewOrchestrator creates an Orchestrator trying strategies in order.
func NewOrchestrator(strategies []Strategy, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{strategies: strategies, logger: logger}
}

// Strategies returns the cascade in order.
func (o *Orchestrator) Strategies() []Strategy {
	return o.strategies
}

// Search tries each strategy for each language until one returns at least
// one work. A blank query only runs the simple strategy. Store unavailability
// and a done context abort the cascade; any other strategy error is logged
// and the cascade moves on.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Outcome, error) {
	text := strings.TrimSpace(req.Text)
	languages := req.Languages
	if len(languages) == 0 {
		languages = LanguagesFor(text)
	}

	strategies := o.strategies
	if text == "" {
		strategies = nil
		for _, s := range o.strategies {
			if s.Mode() == types.SearchModeSimple {
				strategies = append(strategies, s)
			}
		}
	}

	outcome := &Outcome{Result: &types.RawResultSet{}}
	for _, lang := range languages {
		for _, strategy := range strategies {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			start := time.Now()
			result, err := strategy.TrySearch(ctx, Query{
				Text:         text,
				Language:     lang,
				Limit:        req.Limit,
				IncludeAdult: req.IncludeAdult,
			})
			attempt := Attempt{Mode: strategy.Mode(), Language: lang, Duration: time.Since(start)}

			if err != nil {
				attempt.Err = err.Error()
				outcome.Attempts = append(outcome.Attempts, attempt)
				if types.IsHardFailure(ctx, err) {
					return nil, err
				}
				o.logger.Warn("Search strategy failed, trying next",
					"error", &types.StrategyError{Mode: strategy.Mode(), Language: lang, Err: err})
				continue
			}

			if result != nil {
				attempt.Works = len(result.Works)
			}
			outcome.Attempts = append(outcome.Attempts, attempt)
			if result.IsEmpty() {
				continue
			}

			if result.Mode == "" {
				result.Mode = strategy.Mode()
			}
			if result.Language == "" {
				result.Language = lang
			}
			outcome.Result = result
			outcome.Mode = strategy.Mode()
			outcome.Language = lang
			o.logger.Debug("Search matched",
				"query", text,
				"mode", outcome.Mode,
				"language", lang,
				"works", len(result.Works),
				"attempts", len(outcome.Attempts))
			return outcome, nil
		}
	}

	o.logger.Debug("Search found nothing", "query", text, "attempts", len(outcome.Attempts))
	return outcome, nil
}

// LanguagesFor returns the default language order for query: japanese first
// when it contains kana or han, english first otherwise.
func LanguagesFor(query string) []types.Language {
	if normalize.HasJapanese(query) {
		return []types.Language{types.LanguageJapanese, types.LanguageEnglish}
	}
	return []types.Language{types.LanguageEnglish, types.LanguageJapanese}
}

// ParseLanguages converts configured language names, skipping unknown ones.
func ParseLanguages(names []string) []types.Language {
	var out []types.Language
	for _, n := range names {
		if lang, err := types.ParseLanguage(strings.ToLower(strings.TrimSpace(n))); err == nil {
			out = append(out, lang)
		}
	}
	return out
}
