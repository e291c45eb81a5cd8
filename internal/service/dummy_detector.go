package service

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dihanio/NesaVent-sub001/internal/model"
)

// DummyThreshold is the score from which an event is treated as
// placeholder content.
const DummyThreshold = 50

var (
	placeholderWords = regexp.MustCompile(`(?i)\b(test|testing|tes|dummy|asdf|qwerty|sample|coba|contoh|xxx+)\b`)
	loremIpsum       = regexp.MustCompile(`(?i)lorem\s+ipsum`)
	placeholderPlace = regexp.MustCompile(`(?i)^\s*(-+|tbd|tba|test|asdf|unknown|n/?a|x+)\s*$`)
)

// DummyVerdict is the outcome of DummyDetector.Evaluate.
type DummyVerdict struct {
	IsDummy bool     `json:"isDummy"`
	Score   int      `json:"score"`
	Reasons []string `json:"reasons"`
}

// DummyDetector scores event drafts for placeholder or junk content.
type DummyDetector struct {
	Threshold int
}

func NewDummyDetector() *DummyDetector { return &DummyDetector{Threshold: DummyThreshold} }

// Evaluate applies every rule and sums their weights.
func (d *DummyDetector) Evaluate(ev model.Event) DummyVerdict {
	var v DummyVerdict
	add := func(score int, reason string) {
		v.Score += score
		v.Reasons = append(v.Reasons, reason)
	}

	if placeholderWords.MatchString(ev.Name) || loremIpsum.MatchString(ev.Name) {
		add(40, "nama event mengandung kata placeholder")
	}
	if loremIpsum.MatchString(ev.Description) {
		add(30, "deskripsi berisi lorem ipsum")
	} else if placeholderWords.MatchString(ev.Description) {
		add(20, "deskripsi mengandung kata placeholder")
	}
	if utf8.RuneCountInString(strings.TrimSpace(ev.Name)) < 5 {
		add(20, "nama event terlalu pendek")
	}
	if utf8.RuneCountInString(strings.TrimSpace(ev.Description)) < 20 {
		add(20, "deskripsi terlalu pendek")
	}
	if hasRun(ev.Name, 4) || hasRun(ev.Description, 6) {
		add(25, "karakter berulang")
	}
	if placeholderPlace.MatchString(ev.Location) || utf8.RuneCountInString(strings.TrimSpace(ev.Location)) < 3 {
		add(15, "lokasi tidak valid")
	}
	for _, t := range ev.TicketTiers {
		if t.Price == 0 && t.TotalStock >= 10000 {
			add(20, "tiket gratis dengan stok tidak wajar")
			break
		}
	}

	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DummyThreshold
	}
	v.IsDummy = v.Score >= threshold
	return v
}

// hasRun reports whether s contains the same letter or digit n times in a row.
func hasRun(s string, n int) bool {
	var prev rune
	count := 0
	for _, r := range strings.ToLower(s) {
		if r == prev && (r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			count++
			if count >= n {
				return true
			}
			continue
		}
		prev, count = r, 1
	}
	return false
}
