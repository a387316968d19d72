package accounts

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// RecommendLimit is the number of suggestions offered on the form.
const RecommendLimit = 10

// maxRecommendLookups bounds availability checks per recommendation.
const maxRecommendLookups = 64

type candidate struct {
	name     string
	complete int
}

// Recommend suggests up to n valid, available usernames built from prefixes
// of the words of realName. Suggestions that keep more whole name words come
// first, then shorter ones.
func Recommend(ctx context.Context, realName string, n int, lookup UsernameLookup) ([]string, error) {
	if n <= 0 {
		return []string{}, nil
	}
	candidates := nameCandidates(NameParts(realName))

	out := make([]string, 0, n)
	lookups := 0
	for _, c := range candidates {
		if len(out) == n || lookups == maxRecommendLookups {
			break
		}
		if ValidateUsernameFormat(c.name) != nil || containsRestrictedWord(c.name) {
			continue
		}
		lookups++
		taken, err := lookup.UsernameTaken(ctx, c.name)
		if err != nil {
			return nil, fmt.Errorf("check username availability: %w", err)
		}
		if !taken {
			out = append(out, c.name)
		}
	}
	return out, nil
}

func nameCandidates(parts []string) []candidate {
	seen := map[string]int{}
	var walk func(i int, prefix string, complete int)
	walk = func(i int, prefix string, complete int) {
		if len(prefix) > UsernameMaxLength {
			return
		}
		if i == len(parts) {
			if prev, ok := seen[prefix]; !ok || complete > prev {
				seen[prefix] = complete
			}
			return
		}
		part := parts[i]
		for k := 0; k <= len(part); k++ {
			whole := 0
			if k == len(part) {
				whole = 1
			}
			walk(i+1, prefix+part[:k], complete+whole)
		}
	}
	if len(parts) > 0 {
		walk(0, "", 0)
	}

	out := make([]candidate, 0, len(seen))
	for name, complete := range seen {
		if name != "" {
			out = append(out, candidate{name: name, complete: complete})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].complete != out[j].complete {
			return out[i].complete > out[j].complete
		}
		if len(out[i].name) != len(out[j].name) {
			return len(out[i].name) < len(out[j].name)
		}
		return out[i].name < out[j].name
	})
	return out
}

func containsRestrictedWord(username string) bool {
	for _, word := range restrictedWords {
		if strings.Contains(username, word) {
			return true
		}
	}
	return false
}
