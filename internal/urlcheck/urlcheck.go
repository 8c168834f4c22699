// Package urlcheck decides whether an original URL may be shortened.
package urlcheck

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const MaxLength = 2048

// RejectError carries the reason a URL was refused. It unwraps to entity.ErrInvalidURL.
type RejectError struct {
	Reason string
}

func (e *RejectError) Error() string {
	return entity.ErrInvalidURL.Error() + ": " + e.Reason
}

func (e *RejectError) Unwrap() error {
	return entity.ErrInvalidURL
}

func reject(reason string) error {
	return &RejectError{Reason: reason}
}

type Checker struct {
	blacklist []string
	shortened *regexp.Regexp
}

// New builds a Checker that rejects URLs already produced under baseURL
// and URLs whose host is one of domains or a subdomain of one.
func New(baseURL string, codeLength int, domains []string) *Checker {
	base := regexp.QuoteMeta(strings.TrimRight(baseURL, "/"))

	return &Checker{
		blacklist: domains,
		shortened: regexp.MustCompile(fmt.Sprintf(`^%s/[A-Za-z0-9]{%d}$`, base, codeLength)),
	}
}

// Check trims raw and returns it when it is acceptable.
// Every rejection wraps entity.ErrInvalidURL.
func (c *Checker) Check(raw string) (string, error) {
	s := strings.TrimSpace(raw)

	if s == "" {
		return "", reject("url is required")
	}
	if len(s) > MaxLength {
		return "", reject(fmt.Sprintf("url exceeds %d characters", MaxLength))
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", reject("invalid url format")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", reject("only http and https urls are allowed")
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", reject("invalid url format")
	}
	if c.blacklisted(host) {
		return "", reject("domain is not allowed for shortening")
	}

	if c.shortened.MatchString(s) {
		return "", reject("cannot shorten an already shortened url")
	}

	return s, nil
}

func (c *Checker) blacklisted(host string) bool {
	for _, d := range c.blacklist {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
