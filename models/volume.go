package models

// Volume is a book as returned by the external catalog.
type Volume struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Authors       []string `json:"authors"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	ThumbnailURL  string   `json:"thumbnail,omitempty"`
	RatingAverage float64  `json:"averageRating,omitempty"`
	RatingCount   int      `json:"ratingsCount,omitempty"`
}
