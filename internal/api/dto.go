package api

// CreateParticleRequest is the request body for creating a particle.
type CreateParticleRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// UpdateParticleRequest is the request body for updating a particle.
// Nil fields keep the stored value.
type UpdateParticleRequest struct {
	Title *string `json:"title"`
	Body  *string `json:"body"`
}

// TagsResponse wraps the distinct-tags listing.
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// CountResponse wraps the particle count.
type CountResponse struct {
	Count int `json:"count"`
}

// StatusResponse reports the outcome of a delete.
type StatusResponse struct {
	Status string `json:"status"`
}
