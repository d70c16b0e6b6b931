package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
)

// DefaultFeedURL is the regular-season games feed of collegefootballdata.com.
const DefaultFeedURL = "https://api.collegefootballdata.com/games?year=2023&seasonType=regular"

const maxFeedBytes = 64 << 20

// LoadGames reads the games feed from an http(s) URL or a local file. URL
// sources send apiKey as a bearer token when it is set.
func LoadGames(ctx context.Context, source, apiKey string, timeout time.Duration) ([]model.Game, error) {
	var (
		body io.ReadCloser
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = fetch(ctx, source, apiKey, timeout)
	} else {
		body, err = os.Open(source)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	var games []model.Game
	if err := json.NewDecoder(io.LimitReader(body, maxFeedBytes)).Decode(&games); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeFeed, err)
	}
	return games, nil
}

func fetch(ctx context.Context, url, apiKey string, timeout time.Duration) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch games feed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrFeedStatus, resp.StatusCode)
	}
	return resp.Body, nil
}
