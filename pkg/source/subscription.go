package source

import (
	"context"
	"log/slog"

	"github.com/feedmirror/feedmirror/pkg/fetch"
	"github.com/feedmirror/feedmirror/pkg/plugin"
	"github.com/tidwall/gjson"
)

// SubscriptionSource pulls a descriptor list from a remote feed. The feed
// body is a JSON object whose "plugins" key holds the descriptor array; a
// missing key is an empty feed, not an error.
type SubscriptionSource struct {
	URL    string
	Client *fetch.Client
}

var _ Source = &SubscriptionSource{}

// Resolve fetches the feed once (the client retries internally). A feed that
// stays unreachable after retries contributes zero descriptors; one bad feed
// must never abort the whole run.
func (s *SubscriptionSource) Resolve(ctx context.Context) ([]plugin.Descriptor, error) {
	body, err := s.Client.Get(ctx, s.URL)
	if err != nil {
		return nil, err
	}

	plugins := gjson.GetBytes(body, "plugins")
	if !plugins.Exists() {
		slog.Debug("feed has no plugins key", "url", s.URL)
		return nil, nil
	}

	descs, err := plugin.DecodeList([]byte(plugins.Raw))
	if err != nil {
		slog.Error("feed has malformed plugins array", "url", s.URL, "error", err)
		return nil, err
	}
	return descs, nil
}
