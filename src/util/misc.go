package util

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	absoluteRoot = regexp.MustCompile(`^https?://`)
	schemeless   = regexp.MustCompile(`^//.`)
)

// DetermineFullURLRoot normalizes the configured URL root to an absolute URL
// so it can be used to mint shareable links.
func DetermineFullURLRoot(root, address string) (string, error) {
	// Handle "http://host:port/"
	if absoluteRoot.MatchString(root) {
		return root, nil
	}
	// Handle "//host:port/"
	if schemeless.MatchString(root) {
		// Assume plain HTTP. If you are smart enough to set up HTTPS you are
		// also smart enough to configure the URLRoot.
		return "http:" + root, nil
	}
	// Handle "/"
	if root == "/" {
		i := strings.LastIndex(address, ":")
		host, port := address[:i], address[i+1:]
		if host == "" || host == "0.0.0.0" {
			host = "127.0.0.1"
		} else if host == "[::]" {
			host = "[::1]"
		}
		return fmt.Sprintf("http://%s:%s/", host, port), nil
	}
	// Give up
	return "", fmt.Errorf("unsupported URL root format: %q", root)
}
