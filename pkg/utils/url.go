package utils

import (
	"net/url"
	"strings"
)

// ToAbsoluteURL resolves a possibly relative or scheme-less URL against base.
func ToAbsoluteURL(base *url.URL, relative string) (string, error) {
	relURL, err := url.Parse(strings.TrimSpace(relative))
	if err != nil {
		return "", err
	}
	if base == nil {
		return relURL.String(), nil
	}
	return base.ResolveReference(relURL).String(), nil
}
