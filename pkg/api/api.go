// Package api declares the JSON wire contract shared by the
// PrimeService server and client.
package api

// Metadata identifies the service instance that answered a request.
type Metadata struct {
	// The hostname (or equivalent identity) of the serving instance.
	Identity string `json:"identity"`
	// Optional instance tags.
	Tags []string `json:"tags"`
	// Optional key-value annotations.
	Annotations map[string]string `json:"annotations"`
}

// PrimeResponse is the answer to a primality query.
type PrimeResponse struct {
	N        uint64    `json:"n"`
	Prime    bool      `json:"prime"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// SearchResponse is the answer to an adjacent-prime query. Found is
// false, and Prime zero, when no prime exists between N and the edge
// of the 64-bit range in the direction of search.
type SearchResponse struct {
	N        uint64    `json:"n"`
	Prime    uint64    `json:"prime"`
	Found    bool      `json:"found"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// ErrorResponse carries a human-readable error for non-2xx statuses.
type ErrorResponse struct {
	Error string `json:"error"`
}
