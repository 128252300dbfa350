package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/replay/internal/shared"
)

// addTracksChunked applies a playlist write over an arbitrarily long id list
// without exceeding the API's per-call item limit: fixed-size chunks issued
// sequentially with a pacing delay between them.
//
// It runs inside an operation that already holds the gateway lane, so the
// delays happen while the lane is held and no other queued operation can race
// ahead mid-chunk. It must never re-enqueue onto the gateway: the worker is
// busy executing this very operation and the nested wait would never return.
func (g *Gateway) addTracksChunked(ctx context.Context, c *apiClient, playlistID string, trackIDs []string) error {
	chunks := shared.Chunk(trackIDs, g.chunkSize)

	for i, chunk := range chunks {
		uris := make([]string, len(chunk))
		for j, id := range chunk {
			uris[j] = "spotify:track:" + id
		}

		endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)
		if err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil); err != nil {
			return fmt.Errorf("failed to add chunk %d/%d: %w", i+1, len(chunks), err)
		}

		if i != len(chunks)-1 {
			g.sleep(g.chunkDelay)
		}
	}

	return nil
}
