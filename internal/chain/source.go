package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/strikefeed/strikefeed/internal/chainapi"
	"github.com/strikefeed/strikefeed/internal/model"
)

// Source fetches chain reference data. Implementations: REST-backed for
// production, directory-of-fixtures for tests and replay.
type Source interface {
	// Expirations returns the listed expirations for an underlying,
	// ascending "YYYY-MM-DD".
	Expirations(ctx context.Context, underlying string) ([]string, error)

	// Chain fetches all contracts for one expiration within the window's
	// strike bounds.
	Chain(ctx context.Context, underlying, expiration string, w Window) ([]model.ContractSeed, error)
}

// -----------------------------------------------------------------------------
// REST-backed
// -----------------------------------------------------------------------------

// APISource backs Source with the reference REST API.
type APISource struct {
	client *chainapi.Client
}

// NewAPISource wraps a REST client as a chain source.
func NewAPISource(client *chainapi.Client) *APISource {
	return &APISource{client: client}
}

func (s *APISource) Expirations(ctx context.Context, underlying string) ([]string, error) {
	return s.client.GetExpirations(ctx, underlying)
}

func (s *APISource) Chain(ctx context.Context, underlying, expiration string, w Window) ([]model.ContractSeed, error) {
	contracts, err := s.client.GetFullChain(ctx, underlying, expiration, chainapi.GetChainOptions{
		StrikeGTE: w.Low,
		StrikeLTE: w.High,
	})
	if err != nil {
		return nil, err
	}

	seeds := make([]model.ContractSeed, 0, len(contracts))
	for _, c := range contracts {
		seed := c.ToSeed(underlying)
		if seed.Right == "" {
			// Non-vanilla contract types are outside the tracked universe.
			continue
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}

// -----------------------------------------------------------------------------
// Fixture
// -----------------------------------------------------------------------------

// FixtureSource reads chains from a directory of JSON files named
// {underlying}_{expiration}.json, each holding a chainapi.ChainResponse.
// Expirations are derived from the file names.
type FixtureSource struct {
	dir string
}

// NewFixtureSource creates a fixture-backed source.
func NewFixtureSource(dir string) *FixtureSource {
	return &FixtureSource{dir: dir}
}

func (s *FixtureSource) Expirations(ctx context.Context, underlying string) ([]string, error) {
	pattern := filepath.Join(s.dir, underlying+"_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("glob fixtures: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no chain fixtures for %s in %s", underlying, s.dir)
	}

	exps := make([]string, 0, len(matches))
	for _, m := range matches {
		base := filepath.Base(m)
		exp := base[len(underlying)+1 : len(base)-len(".json")]
		exps = append(exps, exp)
	}
	sort.Strings(exps)
	return exps, nil
}

func (s *FixtureSource) Chain(ctx context.Context, underlying, expiration string, w Window) ([]model.ContractSeed, error) {
	path := filepath.Join(s.dir, underlying+"_"+expiration+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain fixture: %w", err)
	}

	var resp chainapi.ChainResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode chain fixture %s: %w", path, err)
	}

	seeds := make([]model.ContractSeed, 0, len(resp.Contracts))
	for _, c := range resp.Contracts {
		seed := c.ToSeed(underlying)
		if seed.Right == "" {
			continue
		}
		// Fixtures hold full chains; the window bounds still apply.
		if w.Low > 0 && seed.Strike < w.Low {
			continue
		}
		if w.High > 0 && seed.Strike > w.High {
			continue
		}
		seeds = append(seeds, seed)
	}
	return seeds, nil
}
