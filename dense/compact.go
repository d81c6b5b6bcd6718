package dense

import (
	"fmt"
	"sort"
	"strings"
)

// CompactorOpts tunes candidate discovery.
type CompactorOpts struct {
	// MinLength is the shortest phrase considered, in bytes.
	MinLength int
	// MinOccurs is the fewest occurrences a phrase needs.
	MinOccurs int
	// MaxLength bounds candidate discovery; longer repeats are still
	// captured as their MaxLength-byte prefixes.
	MaxLength int
}

// DefaultCompactorOpts returns the standard thresholds.
func DefaultCompactorOpts() CompactorOpts {
	return CompactorOpts{MinLength: 4, MinOccurs: 2, MaxLength: 64}
}

// Compactor rewrites repeated phrases as $VAR references when the
// tokenizer oracle says the substitution saves tokens. Compact and Expand
// are exact inverses.
type Compactor struct {
	opts    CompactorOpts
	counter TokenCounter

	// per-call memo of oracle counts
	counts map[string]int
}

// NewCompactor builds a compactor over the given oracle. A nil counter
// uses the heuristic estimator.
func NewCompactor(counter TokenCounter, opts CompactorOpts) *Compactor {
	if counter == nil {
		counter = HeuristicCounter{}
	}
	if opts.MinLength <= 0 {
		opts.MinLength = 4
	}
	if opts.MinOccurs <= 1 {
		opts.MinOccurs = 2
	}
	if opts.MaxLength < opts.MinLength {
		opts.MaxLength = 64
	}
	return &Compactor{opts: opts, counter: counter}
}

type dictEntry struct {
	name   string // without the $ sigil
	phrase string
}

// Compact returns text prefixed with a dictionary block when substitution
// pays off, or the text unchanged when nothing does. The block is one
// $X="phrase" line per entry, then a blank line, then the rewritten body.
func (c *Compactor) Compact(text string) (string, error) {
	// Text that already uses the sigil cannot be rewritten reversibly.
	if strings.ContainsRune(text, '$') {
		return text, nil
	}

	c.counts = make(map[string]int)
	defer func() { c.counts = nil }()

	body := text
	var entries []dictEntry

	for {
		phrase, err := c.bestPhrase(body, len(entries))
		if err != nil {
			return "", err
		}
		if phrase == "" {
			break
		}
		name := varName(len(entries))
		entries = append(entries, dictEntry{name: name, phrase: phrase})
		body = replaceSafe(body, phrase, "$"+name)
	}

	if len(entries) == 0 {
		return text, nil
	}

	var sb strings.Builder
	for _, e := range entries {
		sb.WriteByte('$')
		sb.WriteString(e.name)
		sb.WriteString(`="`)
		sb.WriteString(e.phrase)
		sb.WriteString("\"\n")
	}
	sb.WriteByte('\n')
	sb.WriteString(body)
	return sb.String(), nil
}

// bestPhrase finds the candidate with the greatest token savings in the
// current body, or "" when no candidate passes shouldReplace. Ties break
// on longer phrase, then lexicographically smaller phrase.
func (c *Compactor) bestPhrase(body string, nextVar int) (string, error) {
	candidates := discoverPhrases(body, c.opts)
	if len(candidates) == 0 {
		return "", nil
	}

	varRef := "$" + varName(nextVar)
	varTokens, err := c.count(varRef)
	if err != nil {
		return "", err
	}

	type scored struct {
		phrase  string
		savings int
	}
	var best *scored

	// Deterministic iteration order.
	phrases := make([]string, 0, len(candidates))
	for p := range candidates {
		phrases = append(phrases, p)
	}
	sort.Strings(phrases)

	for _, phrase := range phrases {
		occ := candidates[phrase]
		phraseTokens, err := c.count(phrase)
		if err != nil {
			return "", err
		}
		ok, savings := shouldReplace(phraseTokens, varTokens, occ)
		if !ok {
			continue
		}
		if best == nil ||
			savings > best.savings ||
			(savings == best.savings && len(phrase) > len(best.phrase)) ||
			(savings == best.savings && len(phrase) == len(best.phrase) && phrase < best.phrase) {
			best = &scored{phrase: phrase, savings: savings}
		}
	}

	if best == nil {
		return "", nil
	}
	return best.phrase, nil
}

// shouldReplace applies the substitution arithmetic: a phrase is replaced
// when the dictionary definition plus the per-use variable cost comes in
// under the repeated phrase cost. The definition costs the variable name,
// the phrase itself, and 3 tokens of ="..."\n overhead.
func shouldReplace(phraseTokens, varTokens, occurrences int) (bool, int) {
	definitionCost := varTokens + phraseTokens + 3
	with := definitionCost + varTokens*occurrences
	without := phraseTokens * occurrences
	return with < without, without - with
}

// discoverPhrases slides windows of every candidate length across the
// body and keeps substrings that recur. Phrases may not contain the
// characters that would break a dictionary line or collide with variable
// references.
func discoverPhrases(body string, opts CompactorOpts) map[string]int {
	found := make(map[string]int)
	maxLen := opts.MaxLength
	if maxLen > len(body)/2 {
		maxLen = len(body) / 2
	}

	for length := opts.MinLength; length <= maxLen; length++ {
		seen := make(map[string]int, len(body)-length+1)
		for i := 0; i+length <= len(body); i++ {
			sub := body[i : i+length]
			if !phraseAllowed(sub) {
				continue
			}
			seen[sub]++
		}
		for sub, n := range seen {
			if n >= opts.MinOccurs {
				// countSafe gives the non-overlapping figure the
				// substitution will actually achieve.
				occ := countSafe(body, sub)
				if occ >= opts.MinOccurs {
					found[sub] = occ
				}
			}
		}
	}
	return found
}

func phraseAllowed(s string) bool {
	return !strings.ContainsAny(s, "$\"\\\n")
}

// An occurrence is safe to rewrite only when the byte after it could not
// extend a variable name: "$A" directly before a literal B would read back
// as a reference to AB. countSafe and replaceSafe walk occurrences with
// the same non-overlapping policy so the discovered count matches the
// number of rewrites actually performed.
func safeAt(body string, end int) bool {
	return end >= len(body) || body[end] < 'A' || body[end] > 'Z'
}

func countSafe(body, phrase string) int {
	n := 0
	for i := 0; ; {
		j := strings.Index(body[i:], phrase)
		if j < 0 {
			return n
		}
		i += j + len(phrase)
		if safeAt(body, i) {
			n++
		}
	}
}

func replaceSafe(body, phrase, ref string) string {
	var sb strings.Builder
	for i := 0; ; {
		j := strings.Index(body[i:], phrase)
		if j < 0 {
			sb.WriteString(body[i:])
			return sb.String()
		}
		end := i + j + len(phrase)
		if safeAt(body, end) {
			sb.WriteString(body[i : i+j])
			sb.WriteString(ref)
		} else {
			sb.WriteString(body[i:end])
		}
		i = end
	}
}

// varName returns the n-th variable name: A..Z, AA..AZ, BA..
func varName(n int) string {
	var sb strings.Builder
	n++
	for n > 0 {
		n--
		sb.WriteByte(byte('A' + n%26))
		n /= 26
	}
	// digits came out least significant first
	b := []byte(sb.String())
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return string(b)
}

func (c *Compactor) count(s string) (int, error) {
	if n, ok := c.counts[s]; ok {
		return n, nil
	}
	n, err := c.counter.Count(s)
	if err != nil {
		return 0, err
	}
	c.counts[s] = n
	return n, nil
}

// Expand reverses Compact. Text without a dictionary block passes through
// unchanged.
func Expand(text string) (string, error) {
	if !strings.HasPrefix(text, "$") {
		return text, nil
	}

	var entries []dictEntry
	rest := text
	for strings.HasPrefix(rest, "$") {
		nl := strings.IndexByte(rest, '\n')
		if nl < 0 {
			return "", fmt.Errorf("malformed dictionary: unterminated entry line")
		}
		line := rest[:nl]
		rest = rest[nl+1:]

		eq := strings.Index(line, `="`)
		if eq < 2 || !strings.HasSuffix(line, `"`) {
			return "", fmt.Errorf("malformed dictionary entry %q", line)
		}
		name := line[1:eq]
		phrase := line[eq+2 : len(line)-1]
		if name == "" || phrase == "" {
			return "", fmt.Errorf("malformed dictionary entry %q", line)
		}
		entries = append(entries, dictEntry{name: name, phrase: phrase})
	}

	if !strings.HasPrefix(rest, "\n") {
		return "", fmt.Errorf("malformed dictionary: missing blank line before body")
	}
	body := rest[1:]

	// Longest variable names first so $AB never expands as $A + "B".
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].name) != len(entries[j].name) {
			return len(entries[i].name) > len(entries[j].name)
		}
		return entries[i].name > entries[j].name
	})
	for _, e := range entries {
		body = strings.ReplaceAll(body, "$"+e.name, e.phrase)
	}
	return body, nil
}
