// Package verse groups the long tail of market questions into a small,
// bounded set of verses so liquidity and coverage accounting can be pooled
// instead of fragmented across tens of thousands of near-duplicate markets.
// Grounded on verse_classifier.rs's normalize/extract/hash pipeline, ported
// keyword-for-keyword, but hashed with blake3 (the hashing dependency the
// teacher chain already carries in its go.mod) instead of Keccak256, since
// classification only needs a collision-resistant, deterministic digest and
// not EVM compatibility.
package verse

import (
	"sort"
	"strings"

	"lukechampine.com/blake3"
)

// ID is a verse identifier: the full 32-byte digest of a market's
// normalized keyword set. Two questions that normalize to the same keyword
// set always produce the same ID.
type ID [32]byte

func (id ID) String() string {
	const hex = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range id {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out)
}

// stopWords are filtered out of a normalized title before keyword
// extraction, matching the original classifier's list exactly so the
// mapping from question text to verse is unchanged for migrated markets.
var stopWords = map[string]struct{}{
	"the": {}, "be": {}, "to": {}, "of": {}, "and": {}, "a": {}, "in": {},
	"that": {}, "have": {}, "i": {}, "it": {}, "for": {}, "not": {}, "on": {},
	"with": {}, "he": {}, "as": {}, "you": {}, "do": {}, "at": {}, "this": {},
	"but": {}, "his": {}, "by": {}, "from": {}, "will": {}, "or": {}, "which": {},
	"is": {}, "was": {}, "are": {}, "been": {}, "has": {}, "had": {}, "were": {},
	"said": {}, "did": {}, "get": {}, "may": {}, "can": {}, "would": {}, "could": {},
	"should": {}, "might": {}, "must": {}, "shall": {}, "than": {}, "what": {},
	"where": {}, "when": {}, "who": {}, "why": {}, "how": {},
}

// keywordReplacements canonicalize synonyms and symbols before stop-word
// filtering so "above $50000" and "> $50000" extract the same keywords.
// Numbers are not normalized: "$50,000" splits into "$50" and "000", and
// "$50k" stays "$50k". Replacements apply in slice order, so each entry
// rewrites the text before any later entry sees it.
var keywordReplacements = []struct{ from, to string }{
	{"bitcoin", "btc"},
	{"ethereum", "eth"},
	{"dogecoin", "doge"},
	{"cardano", "ada"},
	{"solana", "sol"},
	{"polygon", "matic"},
	{"presidential", "election"},
	{"presidency", "election"},
	{"president", "election"},
	{"greater than", ">"},
	{"less than", "<"},
	{"above", ">"},
	{"below", "<"},
	{"over", ">"},
	{"under", "<"},
	{"end of year", "eoy"},
	{"by end of", "eoy"},
	{"end of month", "eom"},
	{"end of week", "eow"},
	{"end of day", "eod"},
	{"all time high", "ath"},
	{"all-time high", "ath"},
	{"market capitalization", "mcap"},
	{"market cap", "mcap"},
	{"24h volume", "volume"},
	{"trading volume", "volume"},
}

// maxKeywords caps how many sorted keywords feed the hash, matching the
// original classifier's 5-keyword grouping width.
const maxKeywords = 5

// minKeywordLen skips very short tokens that carry little grouping signal.
const minKeywordLen = 3

// Classify maps a market question to its verse ID.
func Classify(marketTitle string) ID {
	normalized := normalizeTitle(marketTitle)
	keywords := extractKeywords(normalized)
	joined := strings.Join(keywords, "|")
	return ID(blake3.Sum256([]byte(joined)))
}

func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)
	for _, rep := range keywordReplacements {
		normalized = strings.ReplaceAll(normalized, rep.from, rep.to)
	}

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if isAlphanumeric(r) || r == '$' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isAlphanumeric(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func extractKeywords(normalized string) []string {
	fields := strings.Fields(normalized)
	keywords := make([]string, 0, len(fields))
	for _, word := range fields {
		if _, stop := stopWords[word]; stop {
			continue
		}
		if len(word) < minKeywordLen {
			continue
		}
		keywords = append(keywords, word)
	}
	sort.Strings(keywords)
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}
