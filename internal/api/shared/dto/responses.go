package dto

// Envelope wraps every query response with the sync position of the read model
type Envelope struct {
	// LastChangeBlockNumber is the block the stored checkpoint points at
	LastChangeBlockNumber uint64 `json:"lastChangeBlockNumber"`
	// CurrentBlockNumber is the chain head
	CurrentBlockNumber uint64 `json:"currentBlockNumber"`
	Data               any    `json:"data"`
}

// ListResponse represents one page of a search
type ListResponse[T any] struct {
	Items  []T   `json:"items"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// NewListResponse maps a page of rows
func NewListResponse[S any, T any](rows []S, offset int, total int64, mapFn func(*S) T) *ListResponse[T] {
	items := make([]T, 0, len(rows))
	for i := range rows {
		items = append(items, mapFn(&rows[i]))
	}
	return &ListResponse[T]{Items: items, Offset: offset, Total: total}
}

// HealthResponse represents the health status of the API
type HealthResponse struct {
	Status string `json:"status"`
}
