package invite

import (
	"fmt"
	"net/url"
	"strings"
)

// Source carries the possible token origins for one coordinator mount, in
// priority order: explicit route parameter, then a deep-link payload, then
// whatever is parked in the pending invite store.
type Source struct {
	RouteToken string
	DeepLink   string
	// ExpectedPropertyID, when set, must agree with the property the token
	// resolves to. A disagreement means a stale or tampered link.
	ExpectedPropertyID string
}

const deepLinkScheme = "rentlink"

// parseDeepLink extracts the token and optional expected property from a
// rentlink://invite/<token>?property=<id> URL.
func parseDeepLink(raw string) (token, propertyID string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("failed to parse deep link: %w", err)
	}
	if u.Scheme != deepLinkScheme || u.Host != "invite" {
		return "", "", fmt.Errorf("not an invite deep link: %s", raw)
	}

	token = strings.Trim(u.Path, "/")
	if token == "" {
		return "", "", fmt.Errorf("deep link carries no token")
	}

	return token, u.Query().Get("property"), nil
}
