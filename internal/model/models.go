// internal/model/models.go
package model

import "time"

// Owner is the account that owns a GitHub repository.
type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl"`
	HTMLURL   string `json:"htmlUrl"`
}

// Repository is a GitHub repository as saved in the local store.
// ID is assigned by the store; GithubID is the deduplication key.
type Repository struct {
	ID              int64     `json:"id"`
	GithubID        int64     `json:"githubId"`
	Name            string    `json:"name"`
	FullName        string    `json:"fullName"`
	Description     *string   `json:"description"`
	HTMLURL         string    `json:"htmlUrl"`
	StargazersCount int       `json:"stargazersCount"`
	ForksCount      int       `json:"forksCount"`
	Language        *string   `json:"language"`
	Owner           Owner     `json:"owner"`
	SearchKeyword   string    `json:"searchKeyword"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// RemoteRepository is a normalized item from a GitHub search response.
type RemoteRepository struct {
	GithubID        int64
	Name            string
	FullName        string
	Description     *string
	HTMLURL         string
	StargazersCount int
	ForksCount      int
	Language        *string
	Owner           Owner
}

// RateLimit is the quota state GitHub reported with a response.
type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"resetAt"`
}

// SearchPage is one page of GitHub search results.
type SearchPage struct {
	Items      []RemoteRepository
	TotalCount int
	Page       int
	PerPage    int
	RateLimit  RateLimit
}

// SearchHistoryEntry summarizes the saved repositories attributed to one keyword.
type SearchHistoryEntry struct {
	Keyword        string    `json:"keyword"`
	Count          int64     `json:"count"`
	LastSearchedAt time.Time `json:"lastSearchedAt"`
}
