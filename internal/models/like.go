package models

// LikeResult is returned by the like toggle and like status operations.
type LikeResult struct {
	IsLiked    bool `json:"is_liked"`
	LikesCount int  `json:"likes_count"`
}
