package reconcile

import (
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MatchStatus represents the outcome of matching a statement line.
type MatchStatus int

const (
	Matched MatchStatus = iota
	Ambiguous
	Unmatched
)

func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "Matched"
	case Ambiguous:
		return "Ambiguous"
	case Unmatched:
		return "Unmatched"
	default:
		return "Unknown"
	}
}

// Claim is an unconfirmed bank-transfer claim with matching metadata.
type Claim struct {
	TransferID   uuid.UUID
	OrderID      uuid.UUID
	OrderNumber  string
	SenderName   string
	Reference    string
	Amount       decimal.Decimal
	TransferDate time.Time // zero when the customer gave no date
}

// MatchResult contains the result of matching one statement line.
type MatchResult struct {
	Line       StatementLine
	Status     MatchStatus
	Claim      *Claim  // when Matched
	Candidates []Claim // when Ambiguous
	Score      int
}

// Matcher scores statement lines against unconfirmed transfer claims.
// Amount equality is a hard filter; reference and sender-name overlap
// plus date proximity rank same-amount candidates. It is a review aid
// only: confirmation stays a staff decision.
type Matcher struct {
	claims      []Claim
	claimTokens [][]string // pre-tokenized reference + sender + order number per claim
}

const (
	referenceWeight = 5
	senderWeight    = 1
	dateBonus       = 2
)

// Reference tokens this short ("to", "by", digits of a date) match
// everything and carry no signal.
const minTokenLen = 3

// NewMatcher pre-tokenizes claim metadata for scoring.
func NewMatcher(claims []Claim) *Matcher {
	m := &Matcher{
		claims:      claims,
		claimTokens: make([][]string, len(claims)),
	}

	for i, claim := range claims {
		joined := claim.Reference + " " + claim.SenderName + " " + claim.OrderNumber
		m.claimTokens[i] = tokenize(normalize(joined))
	}

	return m
}

// Match scores a single statement line against all claims.
func (m *Matcher) Match(line StatementLine) MatchResult {
	lineTokens := make(map[string]bool)
	for _, tok := range tokenize(normalize(line.Reference + " " + line.Description)) {
		lineTokens[tok] = true
	}

	refTokens := make(map[string]bool)
	for _, tok := range tokenize(normalize(line.Reference)) {
		refTokens[tok] = true
	}

	type scoredClaim struct {
		claim Claim
		score int
	}

	var scored []scoredClaim

	for i, claim := range m.claims {
		// Hard filter: money never matches approximately.
		if !claim.Amount.Equal(line.Amount) {
			continue
		}

		score := 0
		for _, tok := range m.claimTokens[i] {
			if len(tok) < minTokenLen {
				continue
			}
			if refTokens[tok] {
				score += referenceWeight
			} else if lineTokens[tok] {
				score += senderWeight
			}
		}

		if !claim.TransferDate.IsZero() && sameDayOrAdjacent(line.Date, claim.TransferDate) {
			score += dateBonus
		}

		scored = append(scored, scoredClaim{claim: claim, score: score})
	}

	if len(scored) == 0 {
		return MatchResult{Line: line, Status: Unmatched}
	}

	maxScore := 0
	for _, s := range scored {
		if s.score > maxScore {
			maxScore = s.score
		}
	}

	var topScorers []Claim
	for _, s := range scored {
		if s.score == maxScore {
			topScorers = append(topScorers, s.claim)
		}
	}

	if len(topScorers) == 1 {
		return MatchResult{
			Line:   line,
			Status: Matched,
			Claim:  &topScorers[0],
			Score:  maxScore,
		}
	}

	return MatchResult{
		Line:       line,
		Status:     Ambiguous,
		Candidates: topScorers,
		Score:      maxScore,
	}
}

// MatchAll matches every statement line independently. A claim may show
// up under multiple lines; staff resolve duplicates when confirming.
func (m *Matcher) MatchAll(lines []StatementLine) []MatchResult {
	results := make([]MatchResult, len(lines))
	for i, line := range lines {
		results[i] = m.Match(line)
	}
	return results
}

func sameDayOrAdjacent(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= 48*time.Hour
}

// normalize converts a string to lowercase and replaces non-alphanumeric chars with spaces
func normalize(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))

	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(' ')
		}
	}

	result := sb.String()
	result = strings.Join(strings.Fields(result), " ")

	return result
}

// tokenize splits a string on whitespace
func tokenize(s string) []string {
	return strings.Fields(s)
}
