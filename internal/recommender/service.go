/*
Package recommender turns a classified user profile into a short list of foods
from the reference table, either by exact label matching or by a
nearest-neighbour search over encoded labels.
*/
package recommender

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"glucomeal/internal/classifier"
	"glucomeal/internal/dataset"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

// Mode selects the recommendation path.
type Mode string

const (
	ModeRule  Mode = "rule"
	ModeModel Mode = "model"
)

// DefaultCacheSize bounds the number of cached result sets.
const DefaultCacheSize = 128

// ErrUnknownMode is returned for a mode other than rule or model.
var ErrUnknownMode = errors.New("unknown recommendation mode")

// ParseMode maps a request value onto a Mode. The empty string means ModeRule.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeRule:
		return ModeRule, nil
	case ModeModel:
		return ModeModel, nil
	default:
		return "", fmt.Errorf("%w: '%s'", ErrUnknownMode, s)
	}
}

// Recommendation is the result of one submission.
type Recommendation struct {
	Mode          Mode                   `json:"mode"`
	Input         classifier.UserProfile `json:"input"`
	Profile       classifier.Profile     `json:"profile"`
	Foods         []dataset.FoodRecord   `json:"foods"`
	TotalCalories float64                `json:"total_calories"`
	CalorieTarget float64                `json:"calorie_target"`
	NoMatch       bool                   `json:"no_match"`
}

type cacheKey struct {
	mode    Mode
	profile classifier.Profile
}

// Service serves recommendations from one reference table. The model is
// built on the first model-based request and reused for the process lifetime.
type Service struct {
	table     dataset.Table
	neighbors int
	cacheSize int

	modelOnce sync.Once
	model     *Model
	modelErr  error

	cache *lru.Cache[cacheKey, []dataset.FoodRecord]
}

// Option configures a Service.
type Option func(*Service)

// WithNeighbors sets K for the model-based path.
func WithNeighbors(k int) Option {
	return func(s *Service) { s.neighbors = k }
}

// WithCacheSize sets the number of cached result sets.
func WithCacheSize(n int) Option {
	return func(s *Service) { s.cacheSize = n }
}

// New returns a Service over t.
func New(t dataset.Table, opts ...Option) (*Service, error) {
	s := &Service{
		table:     t,
		neighbors: DefaultNeighbors,
		cacheSize: DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := lru.New[cacheKey, []dataset.FoodRecord](s.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create recommendation cache: %w", err)
	}
	s.cache = cache

	return s, nil
}

// Table returns the reference table the service was built on.
func (s *Service) Table() dataset.Table { return s.table }

// Model returns the nearest-neighbour model, building it on first use.
func (s *Service) Model() (*Model, error) {
	s.modelOnce.Do(func() {
		s.model, s.modelErr = NewModel(s.table, s.neighbors)
	})
	return s.model, s.modelErr
}

// Recommend classifies u and returns the foods for mode. A rule-based request
// with no matching rows is not an error: the result has NoMatch set.
func (s *Service) Recommend(ctx context.Context, u classifier.UserProfile, mode Mode) (*Recommendation, error) {
	logger := zerolog.Ctx(ctx)

	if mode != ModeRule && mode != ModeModel {
		return nil, fmt.Errorf("%w: '%s'", ErrUnknownMode, mode)
	}

	profile := classifier.Classify(u)
	key := cacheKey{mode: mode, profile: profile}

	foods, hit := s.cache.Get(key)
	if !hit {
		var err error
		switch mode {
		case ModeRule:
			foods = MatchRules(s.table, profile)
		case ModeModel:
			foods, err = s.nearest(profile)
		}
		if err != nil {
			return nil, err
		}
		s.cache.Add(key, foods)
	}

	logger.Debug().
		Str("mode", string(mode)).
		Str("sugar", string(profile.Sugar)).
		Str("bmi", string(profile.BMI)).
		Str("diet", string(profile.Diet)).
		Int("foods", len(foods)).
		Bool("cache_hit", hit).
		Msg("Recommendation computed")

	out := make([]dataset.FoodRecord, len(foods))
	copy(out, foods)

	return &Recommendation{
		Mode:          mode,
		Input:         u,
		Profile:       profile,
		Foods:         out,
		TotalCalories: dataset.TotalCalories(out),
		CalorieTarget: u.CalorieTarget,
		NoMatch:       len(out) == 0,
	}, nil
}

func (s *Service) nearest(p classifier.Profile) ([]dataset.FoodRecord, error) {
	m, err := s.Model()
	if err != nil {
		return nil, fmt.Errorf("failed to build recommendation model: %w", err)
	}
	return m.Recommend(p)
}
