package brain

import (
	"context"
	"sort"

	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/coverage"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/external"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
)

// ContextExternal is the mediator id of the external-source context.
const ContextExternal = "external-sources"

// SearchProvider is the external search collaborator. The HTTP client behind
// it is out of scope here; only the call contract matters.
type SearchProvider interface {
	SemanticSearch(ctx context.Context, query string, limit int) ([]external.Result, error)
}

// ExternalSourceContext fronts external search behind the mediator.
type ExternalSourceContext struct {
	provider SearchProvider
}

// NewExternalSourceContext creates the external-source context.
func NewExternalSourceContext(provider SearchProvider) *ExternalSourceContext {
	return &ExternalSourceContext{provider: provider}
}

// SemanticSearch queries the provider. A nil provider yields no results.
func (c *ExternalSourceContext) SemanticSearch(ctx context.Context, query string, limit int) ([]external.Result, error) {
	if c.provider == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}
	return c.provider.SemanticSearch(ctx, query, limit)
}

// HandleRequest implements the mediator contract.
func (c *ExternalSourceContext) HandleRequest(ctx context.Context, req *message.Request) (map[string]any, error) {
	switch req.DataType {
	case "external.search":
		query, _ := req.Payload["query"].(string)
		results, err := c.SemanticSearch(ctx, query, intValue(req.Payload["limit"], 3))
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results}, nil
	default:
		return nil, message.ErrUnsupportedDataType
	}
}

// HandleNotification declines all broadcasts.
func (c *ExternalSourceContext) HandleNotification(context.Context, *message.Notification) (bool, error) {
	return false, nil
}

// StaticProvider serves a fixed corpus ranked by term coverage. It stands in
// for a real search backend during development and in tests.
type StaticProvider struct {
	Results []external.Result
}

// SemanticSearch ranks the corpus against the query and returns the best hits.
func (p *StaticProvider) SemanticSearch(_ context.Context, query string, limit int) ([]external.Result, error) {
	type scored struct {
		r     external.Result
		score float64
	}
	var ranked []scored
	for _, r := range p.Results {
		score := coverage.Score(query, r.Title+" "+r.Snippet)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, scored{r: r, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]external.Result, len(ranked))
	for i, s := range ranked {
		out[i] = s.r
	}
	return out, nil
}
