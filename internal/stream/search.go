package stream

import (
	"context"
	"errors"

	"github.com/ppalone/ytsearch"
)

var ErrNoSearchResults = errors.New("no search results")

// YouTubeSearch looks up free text against YouTube's own search and returns
// the watch URL of the top hit.
type YouTubeSearch struct {
	c *ytsearch.Client
}

func NewYouTubeSearch() *YouTubeSearch {
	return &YouTubeSearch{c: ytsearch.NewClient(nil)}
}

func (y *YouTubeSearch) First(ctx context.Context, query string) (string, error) {
	res, err := y.c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	for _, r := range res.Results {
		if r.VideoID != "" {
			return WatchURL(r.VideoID), nil
		}
	}
	return "", ErrNoSearchResults
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
