package core

import (
	"fmt"
	"sort"
	"strings"
)

// MaxTagLength is the longest tag name accepted after normalization.
const MaxTagLength = 50

// Tag is a normalized label attached to ledger entries. The zero value is not
// a valid tag; use NewTag.
type Tag struct {
	name string
}

// NewTag trims and lowercases raw and validates the result: 1 to 50
// characters from [a-z0-9_-].
func NewTag(raw string) (Tag, error) {
	name := NormalizeTagName(raw)
	if name == "" {
		return Tag{}, fmt.Errorf("%w: name is empty", ErrInvalidTag)
	}
	if len(name) > MaxTagLength {
		return Tag{}, fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidTag, name, MaxTagLength)
	}
	for _, r := range name {
		if !isTagRune(r) {
			return Tag{}, fmt.Errorf("%w: %q contains %q", ErrInvalidTag, name, r)
		}
	}
	return Tag{name: name}, nil
}

// MustTag is NewTag for literals known to be valid. It panics otherwise.
func MustTag(raw string) Tag {
	t, err := NewTag(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// NormalizeTagName applies the case and whitespace folding used for tag
// identity without validating the charset.
func NormalizeTagName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func isTagRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-'
}

// Name returns the normalized tag name.
func (t Tag) Name() string { return t.name }

func (t Tag) String() string { return t.name }

// IsZero reports whether t was not built through NewTag.
func (t Tag) IsZero() bool { return t.name == "" }

// NewTags builds a deduplicated tag set sorted by name.
func NewTags(raw ...string) ([]Tag, error) {
	seen := make(map[Tag]struct{}, len(raw))
	tags := make([]Tag, 0, len(raw))
	for _, r := range raw {
		t, err := NewTag(r)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	SortTags(tags)
	return tags, nil
}

// SortTags orders tags by name in place.
func SortTags(tags []Tag) {
	sort.Slice(tags, func(i, j int) bool { return tags[i].name < tags[j].name })
}

// TagNames returns the names of tags in order.
func TagNames(tags []Tag) []string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.name
	}
	return names
}

// HasAllTags reports whether tags contains every tag in required.
func HasAllTags(tags []Tag, required []Tag) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[Tag]struct{}, len(tags))
	for _, t := range tags {
		set[t] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
