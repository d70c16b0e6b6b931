// Package types contains the JSON bodies exchanged over HTTP.
package types

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Welcome is the body of GET /.
type Welcome struct {
	Message string `json:"message"`
	Docs    string `json:"docs"`
}

// Health is the body of GET /healthz.
type Health struct {
	Status             string `json:"status"`
	Subscribers        int64  `json:"subscribers"`
	RateLimitedClients int    `json:"rateLimitedClients"`
}

// EndpointDoc describes one endpoint in the GET /docs catalog.
type EndpointDoc struct {
	Method      string            `json:"method"`
	Description string            `json:"description"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Example     string            `json:"example,omitempty"`
}

// Docs is the body of GET /docs.
type Docs struct {
	Endpoints map[string]EndpointDoc `json:"endpoints"`
	Version   string                 `json:"version"`
	OpenAPI   string                 `json:"openapi"`
}

// Stats is the body of GET /stats.
type Stats struct {
	Subscribers      int64          `json:"subscribers"`
	TrackedClients   int            `json:"trackedClients"`
	Records          map[string]int `json:"records"`
	StoreDriver      string         `json:"storeDriver"`
	BreakerState     string         `json:"breakerState,omitempty"`
	EventsBroadcast  uint64         `json:"eventsBroadcast"`
	UptimeSeconds    int64          `json:"uptimeSeconds"`
	BroadcastRunning bool           `json:"broadcastRunning"`
}
