package bot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	sessionx "github.com/tanpawarit/storebot/bot/session"
)

// Limit the result count when querying the search service.
const searchQueryCount = 10

// Keep fewer when formatting. The gap lets us log more results for
// dev/test than we show to the customer.
const searchKeepCount = 5

// fallbackResults stands in for the search service in dev/demo mode, when
// no search client is configured. One of these is returned at random.
var fallbackResults = []string{
	"\n1) Blue T-Shirt\nhttp://www.logostore-globalid.us/images/blue-tshirt.jpg",
	"\n1) Coffee Mug\nhttp://www.logostore-globalid.us/images/coffee-mug.jpg",
	"\n1) Baseball Cap\nhttp://www.logostore-globalid.us/images/baseball-cap.jpg",
	"\n1) Hooded Sweatshirt\nhttp://www.logostore-globalid.us/images/hoodie.jpg",
	"\n1) Water Bottle\nhttp://www.logostore-globalid.us/images/water-bottle.jpg",
}

// handleSearchQuery dispatches the pending search query and merges the
// result fragment into the context. Never waits for new input: the next
// dialogue turn consumes the result before the human sees another prompt.
func (b *Bot) handleSearchQuery(ctx context.Context) bool {
	query := b.session.Context.SearchQuery()
	fragment := b.dispatchSearch(ctx, query)
	b.session.Context = sessionx.Merge(b.session.Context, fragment)
	log.Debug().
		Interface("fragment", fragment).
		Msg("search result merged into context")
	return noInputNeeded
}

// dispatchSearch resolves a query to a {discovery_result: text} fragment.
// With no search client configured it serves a canned response (dev/demo
// mode, never errors); a failing client is substituted with the error
// text so the conversation keeps going.
func (b *Bot) dispatchSearch(ctx context.Context, query string) map[string]any {
	if b.search == nil {
		canned := fallbackResults[b.randIntn(len(fallbackResults))]
		return map[string]any{sessionx.KeySearchResult: canned}
	}

	formatted, err := b.runSearch(ctx, query)
	if err != nil {
		return map[string]any{sessionx.KeySearchResult: err.Error()}
	}
	return map[string]any{sessionx.KeySearchResult: formatted}
}

func (b *Bot) runSearch(ctx context.Context, query string) (string, error) {
	response, err := b.search.Query(ctx, query, searchQueryCount)
	if err != nil {
		return "", err
	}

	// The engine scores each result; with a data mix that produces weak
	// hits, a minimum tolerance filters them out.
	if b.scoreFilter > 0 {
		kept := response.Results[:0]
		for _, result := range response.Results {
			if result.Score > b.scoreFilter {
				kept = append(kept, result)
			}
		}
		response.Results = kept
		response.MatchingResults = len(kept)
		log.Debug().
			Int("matching_results", response.MatchingResults).
			Float64("score_filter", b.scoreFilter).
			Msg("filtered weak search results")
	}

	results := formatResults(response.Results, searchKeepCount)
	b.session.LastResults = results

	var formatted string
	for _, item := range results {
		formatted += fmt.Sprintf("\n%d) %s\n%s", item.Rank, item.Name, item.Image)
	}
	return formatted, nil
}
