// Package additive classifies raw additive tags into named, severity-rated
// additives.
package additive

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/avocado-app/foodscore/internal/types"
)

// NameResolver looks up the display name for an additive code, returning the
// code itself when no name is known.
type NameResolver interface {
	ResolveName(ctx context.Context, code string) string
}

// Classifier turns additive tags like "en:e322" into Additive records using
// a taxonomy-backed name resolver.
type Classifier struct {
	resolver NameResolver
}

// NewClassifier creates a classifier backed by the given resolver.
func NewClassifier(resolver NameResolver) *Classifier {
	return &Classifier{resolver: resolver}
}

// languagePrefix matches a two-letter language prefix plus colon ("en:").
var languagePrefix = regexp.MustCompile(`^[a-z]{2}:`)

// Code normalizes a raw tag to its additive code: the language prefix is
// stripped and the remainder uppercased, so "en:e322" becomes "E322".
func Code(tag string) string {
	return strings.ToUpper(languagePrefix.ReplaceAllString(tag, ""))
}

// SeverityFor derives severity purely from the numeric prefix of the
// E-number; the resolved name plays no part.
//
//	E1xx -> good
//	E2xx -> caution
//	E3xx, E4xx, E5xx -> warning
//	anything else -> caution
func SeverityFor(code string) types.Severity {
	switch {
	case strings.HasPrefix(code, "E1"):
		return types.SeverityGood
	case strings.HasPrefix(code, "E2"):
		return types.SeverityCaution
	case strings.HasPrefix(code, "E3"), strings.HasPrefix(code, "E4"), strings.HasPrefix(code, "E5"):
		return types.SeverityWarning
	default:
		return types.SeverityCaution
	}
}

// Classify resolves all tags concurrently and returns additives in input
// order. Empty input returns an empty list without touching the resolver, so
// additive-free products never trigger a taxonomy fetch.
func (c *Classifier) Classify(ctx context.Context, tags []string) []types.Additive {
	if len(tags) == 0 {
		return []types.Additive{}
	}

	additives := make([]types.Additive, len(tags))
	g, ctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		code := Code(tag)
		g.Go(func() error {
			name := c.resolver.ResolveName(ctx, code)
			if name == "" {
				name = code
			}
			additives[i] = types.Additive{
				Name:     name,
				Code:     code,
				Severity: SeverityFor(code),
			}
			return nil
		})
	}
	// Resolution never errors; the group is used for the joint wait.
	_ = g.Wait()

	return additives
}
