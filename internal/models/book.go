package models

// Book is a single catalog entry keyed by its ISBN.
type Book struct {
	ISBN    string            `json:"isbn"`
	Title   string            `json:"title"`
	Author  string            `json:"author"`
	Reviews map[string]string `json:"reviews"` // username -> review text
}

// Clone returns a copy of the book that shares no state with the original.
func (b Book) Clone() Book {
	reviews := make(map[string]string, len(b.Reviews))
	for user, text := range b.Reviews {
		reviews[user] = text
	}
	b.Reviews = reviews
	return b
}
