package model

import "time"

// Book is a catalog entry. Its lease ledger lives in the lease domain,
// keyed by book id.
type Book struct {
	ID        int64      `db:"id"`
	Title     string     `db:"title"`
	AuthorID  int64      `db:"author_id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
}

// BookResponse adds the computed availability flag.
type BookResponse struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	AuthorID  int64      `json:"author_id"`
	Available bool       `json:"available"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (b *Book) ToResponse(available bool) BookResponse {
	return BookResponse{
		ID:        b.ID,
		Title:     b.Title,
		AuthorID:  b.AuthorID,
		Available: available,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// ToResponses pairs each book with its entry in availability; missing ids read as available.
func ToResponses(books []Book, availability map[int64]bool) []BookResponse {
	out := make([]BookResponse, 0, len(books))
	for i := range books {
		available, ok := availability[books[i].ID]
		if !ok {
			available = true
		}
		out = append(out, books[i].ToResponse(available))
	}
	return out
}
