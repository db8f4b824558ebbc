package validate

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reEmail  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	rePhone  = regexp.MustCompile(`^\+?[0-9 ()-]{7,20}$`)
	reQ      = regexp.MustCompile(`^[A-Za-z0-9 ._'\-]{1,50}$`)
	reCond   = regexp.MustCompile(`^(BRAND_NEW|LIKE_NEW|EXCELLENT|GOOD|FAIR|REFURBISHED)$`)
	reStatus = regexp.MustCompile(`^(PENDING|IN_PROGRESS|RESOLVED|CLOSED)$`)
	reEntity = regexp.MustCompile(`^[A-Za-z_-]{1,32}$`)
)

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 100 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// PhoneNumber validates an optional contact number; empty is allowed.
func PhoneNumber(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", true
	}
	return s, rePhone.MatchString(s)
}

// Q validates a search keyword: trims, enforces allowed characters and max length.
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// ID parses a positive numeric resource id.
func ID(s string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return n, err == nil && n > 0
}

// Condition validates the phone condition enum.
func Condition(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reCond.MatchString(s)
}

// Status validates the inquiry status enum.
func Status(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reStatus.MatchString(s)
}

// Entity validates an audit-log entity type segment.
func Entity(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reEntity.MatchString(s)
}

// Hours clamps an audit-log window to something sane, defaulting to 24.
func Hours(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 24
	}
	if n > 24*30 {
		return 24 * 30
	}
	return n
}

// Name validates a displayable person name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 80 {
		return "", false
	}
	return s, true
}

// Message validates free-form inquiry text.
func Message(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 2000 {
		return "", false
	}
	return s, true
}
