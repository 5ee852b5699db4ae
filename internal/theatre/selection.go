package theatre

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/device"
	"github.com/nerrad567/theatre-core/internal/moviedb"
)

// selectionMessageDuration is how long title details stay on screen.
const selectionMessageDuration = time.Second

// unratedPrefix marks ratings the player reports as "not rated" variants.
const unratedPrefix = "NR-"

// MovieSearcher looks up community scores for a title.
type MovieSearcher interface {
	SearchMovie(ctx context.Context, title string, year int) ([]moviedb.Movie, error)
}

// selectionHandler shows score and running time for the title highlighted
// in the media player's library.
type selectionHandler struct {
	vp     device.VideoProcessor
	player device.MediaPlayer
	movies MovieSearcher
	logger Logger
}

func (h *selectionHandler) handle(rules *controller.Rules, ev device.HighlightedSelectionChanged) {
	controller.OnValueChanged(rules, "show-selection", ev.SelectionID, h.showSelection)
}

func (h *selectionHandler) showSelection(ctx context.Context, selectionID string) error {
	details, err := h.player.ContentDetails(ctx, selectionID)
	if err != nil {
		return fmt.Errorf("fetching content details for %s: %w", selectionID, err)
	}

	return showCentered(ctx, h.vp, selectionMessageDuration, h.votesLine(ctx, details), infoLine(details))
}

// votesLine returns the movie database score line, or "" when the title
// cannot be looked up. Lookup failures are logged, not returned.
func (h *selectionHandler) votesLine(ctx context.Context, details device.ContentDetails) string {
	if h.movies == nil || details.Title == "" {
		return ""
	}
	year, err := strconv.Atoi(strings.TrimSpace(details.Year))
	if err != nil {
		return ""
	}

	results, err := h.movies.SearchMovie(ctx, details.Title, year)
	if err != nil {
		h.logger.Warn("movie database search failed", "title", details.Title, "error", err)
		return ""
	}
	if len(results) == 0 {
		return ""
	}

	first := results[0]
	return fmt.Sprintf("TheMovieDB: %.1f (%s votes)", first.VoteAverage, groupThousands(first.VoteCount))
}

// infoLine returns "N minutes" with the rating in brackets when known.
func infoLine(details device.ContentDetails) string {
	line := details.RunningTime + " minutes"
	if details.Rating == "" {
		return line
	}
	return line + " [" + strings.TrimPrefix(details.Rating, unratedPrefix) + "]"
}
