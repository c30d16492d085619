package odds

import "github.com/propscope/oddsjobs/internal/domain"

// PrimaryLine picks the line posted by the most sportsbooks, counting a book
// when it prices either side. Ties go to the line that comes first in the
// set's order. It returns false when no line has a priced quote.
func PrimaryLine(lines domain.LineSet) (string, bool) {
	best, bestCount := "", 0
	for line, books := range lines.All() {
		n := Coverage(books)
		if n > bestCount {
			best, bestCount = line, n
		}
	}
	return best, bestCount > 0
}

// Coverage counts the books in a line that price at least one side.
func Coverage(books domain.LineBook) int {
	n := 0
	for _, q := range books.All() {
		if q.Priced() {
			n++
		}
	}
	return n
}
