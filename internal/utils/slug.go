package utils

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

var (
	reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	reHyphen   = regexp.MustCompile(`-+`)
)

const slugMaxLen = 120

// Slugify lowercases s, strips diacritics and keeps [a-z0-9-].
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var buf []rune
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		buf = append(buf, r)
	}
	s = reNonAlnum.ReplaceAllString(string(buf), "-")
	s = reHyphen.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if utf8.RuneCountInString(s) > slugMaxLen {
		s = strings.Trim(string([]rune(s)[:slugMaxLen]), "-")
	}
	if s == "" {
		s = "event"
	}
	return s
}

// UniqueSlug appends -2, -3, ... to base until exists reports false. After
// a bounded number of attempts a short random suffix is used.
func UniqueSlug(ctx context.Context, base string, exists func(context.Context, string) (bool, error)) (string, error) {
	if exists == nil {
		return "", errors.New("nil exists func")
	}
	slug := base
	for i := 2; i <= 25; i++ {
		taken, err := exists(ctx, slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%s", base, uuid.NewString()[:8]), nil
}
