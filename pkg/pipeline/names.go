package pipeline

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// replacer neutralizes brand-name substrings before any name is published.
var replacer = strings.NewReplacer(
	"网易云", "W",
	"QQ", "T",
)

// disallowed matches every rune that may not appear in a stored filename:
// anything outside Unicode letters and digits, underscores, CJK ideographs,
// and whitespace. Word characters from any script (kana, Cyrillic, accented
// Latin) are kept; only punctuation and symbols are dropped.
var disallowed = regexp.MustCompile(`[^\p{L}\p{N}_\x{4e00}-\x{9fff}\s]`)

const (
	maxFilenameRunes = 50
	fallbackFilename = "plugin"
)

// renamer owns the name-collision counters for one run. Resolve must be the
// only writer; concurrent pipeline tasks share a single renamer.
type renamer struct {
	mu     sync.Mutex
	counts map[string]int
}

func newRenamer() *renamer {
	return &renamer{counts: make(map[string]int)}
}

// Resolve substitutes sensitive terms, then de-collides the result: the first
// occurrence of a name keeps it bare and seeds its counter at zero, each
// later occurrence gets a _<n> suffix from a per-name monotonic counter. The
// read-increment-use sequence is serialized so two concurrent descriptors
// with the same name can never receive the same suffix.
func (r *renamer) Resolve(name string) string {
	name = replacer.Replace(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	n, seen := r.counts[name]
	if !seen {
		r.counts[name] = 0
		return name
	}
	n++
	r.counts[name] = n
	return fmt.Sprintf("%s_%d", name, n)
}

// sanitizeFilename reduces a resolved name to a safe stored filename stem:
// disallowed runes dropped, spaces to underscores, at most 50 runes, and a
// sentinel when nothing survives.
func sanitizeFilename(name string) string {
	cleaned := disallowed.ReplaceAllString(name, "")
	cleaned = strings.ReplaceAll(cleaned, " ", "_")
	if cleaned == "" {
		return fallbackFilename
	}
	if runes := []rune(cleaned); len(runes) > maxFilenameRunes {
		return string(runes[:maxFilenameRunes])
	}
	return cleaned
}

// urlSet is the shared seen-URL set. Add is an atomic check-or-insert: it
// returns false when the URL was already present, and exactly one caller per
// URL can ever see true.
type urlSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]struct{})}
}

func (s *urlSet) Add(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[url]; ok {
		return false
	}
	s.seen[url] = struct{}{}
	return true
}
