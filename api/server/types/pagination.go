package types

type PaginationRequest struct {
	Page int64 `schema:"page"`
}

type PaginationResponse struct {
	NumPages    int64 `json:"num_pages"`
	CurrentPage int64 `json:"current_page"`
	NextPage    int64 `json:"next_page"`
}
