package models

// SearchHit is one ranked search result.
type SearchHit struct {
	Rank     int     `json:"rank"`
	NoteID   int64   `json:"note_id"`
	Distance float32 `json:"distance,omitempty"`
	Score    float64 `json:"score,omitempty"`
	Note     *Note   `json:"note,omitempty"`
}

// SearchResponse is the response for a semantic or keyword search.
type SearchResponse struct {
	Query     string       `json:"query"`
	IDs       []int64      `json:"ids"`
	Hits      []*SearchHit `json:"hits"`
	Total     int          `json:"total"`
	QueryTime int64        `json:"query_time_ms"`
	// Filtered is set when a lexical filter removed hits after ranking.
	Filtered bool `json:"filtered,omitempty"`
}
