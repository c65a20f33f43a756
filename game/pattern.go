package game

// Pattern names the rule deciding when a marked card wins.
type Pattern string

const (
	PatternLine        Pattern = "line"
	PatternFullHouse   Pattern = "full_house"
	PatternBlackout    Pattern = "blackout"
	PatternFourCorners Pattern = "four_corners"
	PatternX           Pattern = "x_pattern"
)

// KnownPatterns lists every pattern an admin may select.
var KnownPatterns = []Pattern{PatternLine, PatternFullHouse, PatternBlackout, PatternFourCorners, PatternX}

// Valid reports whether p is a selectable pattern.
func (p Pattern) Valid() bool {
	for _, k := range KnownPatterns {
		if p == k {
			return true
		}
	}
	return false
}

// cellSatisfied reports whether the cell at (row, col) counts toward a win:
// either it is the free cell or its call token has been marked.
func cellSatisfied(card *Card, marked map[string]bool, row, col int) bool {
	n := card.Column(col)[row]
	if n == FreeNumber {
		return true
	}
	return marked[Token(Letters[col], n)]
}

// Match reports whether the card with the given marked tokens satisfies the
// pattern. Evaluation is pure and order independent. An unknown pattern never
// matches; a misconfigured pattern is the caller's problem, not a panic.
func (p Pattern) Match(card *Card, marked map[string]bool) bool {
	switch p {
	case PatternLine:
		return matchLine(card, marked)
	case PatternFullHouse, PatternBlackout:
		return matchFullHouse(card, marked)
	case PatternFourCorners:
		return matchFourCorners(card, marked)
	case PatternX:
		return matchDiagonal(card, marked, false) && matchDiagonal(card, marked, true)
	}
	return false
}

func matchLine(card *Card, marked map[string]bool) bool {
	for row := 0; row < 5; row++ {
		full := true
		for col := 0; col < 5; col++ {
			if !cellSatisfied(card, marked, row, col) {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	for col := 0; col < 5; col++ {
		full := true
		for row := 0; row < 5; row++ {
			if !cellSatisfied(card, marked, row, col) {
				full = false
				break
			}
		}
		if full {
			return true
		}
	}
	return matchDiagonal(card, marked, false) || matchDiagonal(card, marked, true)
}

func matchDiagonal(card *Card, marked map[string]bool, anti bool) bool {
	for i := 0; i < 5; i++ {
		row := i
		if anti {
			row = 4 - i
		}
		if !cellSatisfied(card, marked, row, i) {
			return false
		}
	}
	return true
}

func matchFourCorners(card *Card, marked map[string]bool) bool {
	return cellSatisfied(card, marked, 0, 0) &&
		cellSatisfied(card, marked, 0, 4) &&
		cellSatisfied(card, marked, 4, 0) &&
		cellSatisfied(card, marked, 4, 4)
}

func matchFullHouse(card *Card, marked map[string]bool) bool {
	for row := 0; row < 5; row++ {
		for col := 0; col < 5; col++ {
			if !cellSatisfied(card, marked, row, col) {
				return false
			}
		}
	}
	return true
}
