// Package dates resolves date expressions from classified speech into
// absolute calendar dates and localized month labels.
package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/moneytalks-bot/moneytalks/internal/common"
)

// language bundles the month names and relative-phrase grammar of one
// supported locale.
type language struct {
	daysAgo    *regexp.Regexp
	code       string
	months     [12]string
	today      []string
	yesterday  []string
	twoDaysAgo []string
}

var languages = map[string]*language{
	"ru": {
		code: "ru",
		months: [12]string{
			"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
			"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
		},
		today:      []string{"сегодня"},
		yesterday:  []string{"вчера"},
		twoDaysAgo: []string{"позавчера"},
		daysAgo:    regexp.MustCompile(`^(\d+)\s+(?:день|дня|дней)\s+назад$`),
	},
	"en": {
		code: "en",
		months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
		today:      []string{"today"},
		yesterday:  []string{"yesterday"},
		twoDaysAgo: []string{"day before yesterday", "the day before yesterday"},
		daysAgo:    regexp.MustCompile(`^(\d+)\s+days?\s+ago$`),
	},
}

// absoluteLayouts are tried in order. The non-padded forms accept both
// "05.01.2024" and "5.1.2024".
var absoluteLayouts = []string{"2006-1-2", "2.1.2006", "2/1/2006"}

// Resolver converts date expressions into UTC calendar dates using the
// grammar of a single language.
type Resolver struct {
	lang *language
}

// NewResolver returns a resolver for the given language code.
func NewResolver(lang string) (*Resolver, error) {
	l, ok := languages[strings.ToLower(strings.TrimSpace(lang))]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported language %q", common.ErrInvalidConfig, lang)
	}
	return &Resolver{lang: l}, nil
}

// Resolve turns expr into an absolute calendar date at UTC midnight plus
// its localized month label. The reference instant anchors relative
// phrases, so replaying an event yields the same date no matter when the
// replay runs. An empty expression resolves to the reference date.
// Expressions outside the supported grammar return ErrUnparseableDate;
// callers may recover by substituting the reference date.
func (r *Resolver) Resolve(expr string, ref time.Time) (time.Time, string, error) {
	refDay := midnight(ref)

	trimmed := strings.TrimSpace(expr)
	if trimmed == "" {
		return refDay, r.MonthLabel(refDay), nil
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			day := midnight(t)
			return day, r.MonthLabel(day), nil
		}
	}

	if day, ok := r.relative(strings.ToLower(trimmed), refDay); ok {
		return day, r.MonthLabel(day), nil
	}

	return time.Time{}, "", fmt.Errorf("%w: %q", common.ErrUnparseableDate, expr)
}

func (r *Resolver) relative(expr string, ref time.Time) (time.Time, bool) {
	switch {
	case contains(r.lang.today, expr):
		return ref, true
	case contains(r.lang.yesterday, expr):
		return ref.AddDate(0, 0, -1), true
	case contains(r.lang.twoDaysAgo, expr):
		return ref.AddDate(0, 0, -2), true
	}

	if m := r.lang.daysAgo.FindStringSubmatch(expr); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		return ref.AddDate(0, 0, -n), true
	}

	return time.Time{}, false
}

// MonthLabel returns the localized month name for t.
func (r *Resolver) MonthLabel(t time.Time) string {
	return r.lang.months[t.Month()-1]
}

// MonthNames lists the localized month names, January through December.
func (r *Resolver) MonthNames() []string {
	names := make([]string, len(r.lang.months))
	copy(names, r.lang.months[:])
	return names
}

// Language reports the resolver's language code.
func (r *Resolver) Language() string {
	return r.lang.code
}

// SupportedLanguages lists the language codes resolvers can be built for.
func SupportedLanguages() []string {
	codes := make([]string, 0, len(languages))
	for code := range languages {
		codes = append(codes, code)
	}
	return codes
}

func midnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
