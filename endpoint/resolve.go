package endpoint

// Sources are the places endpoints are bootstrapped from, in priority order.
type Sources struct {
	LastUsed  []Endpoint
	Persisted []Endpoint
	Static    []Endpoint
	Defaults  []Endpoint
}

// DefaultEndpoints are used when no other source names an endpoint.
func DefaultEndpoints() []Endpoint {
	return []Endpoint{
		{URL: "http://localhost:3030/semsync/query", Label: "Local query", Type: TypeQuery},
		{URL: "http://localhost:3030/semsync/update", Label: "Local update", Type: TypeUpdate},
	}
}

// Resolve merges the sources: last used first, then persisted, then static
// configuration. An endpoint appearing in several sources keeps the entry of
// the earliest one. Defaults are used only when every other source is empty.
// The result always has status unknown.
func Resolve(src Sources) []Endpoint {
	var out []Endpoint
	seen := make(map[string]bool)
	for _, list := range [][]Endpoint{src.LastUsed, src.Persisted, src.Static} {
		for _, ep := range list {
			if ep.URL == "" || seen[ep.URL] {
				continue
			}
			seen[ep.URL] = true
			out = append(out, reset(ep))
		}
	}
	if len(out) > 0 {
		return out
	}

	for _, ep := range src.Defaults {
		if ep.URL == "" || seen[ep.URL] {
			continue
		}
		seen[ep.URL] = true
		out = append(out, reset(ep))
	}
	return out
}

func reset(ep Endpoint) Endpoint {
	ep = ep.clone()
	ep.Status = StatusUnknown
	ep.LastError = ""
	return ep
}
