package config

import (
	"errors"
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// ErrURLBlocked signals that a URL failed the security policy. Remote-access
// tools check outbound URLs against the policy before fetching.
var ErrURLBlocked = errors.New("url blocked by security policy")

// URLSecurity is the allowlist policy for outbound URL access. When enabled,
// only hosts matching allow_domains (exact, or "*.x.y" strict suffix), IP
// literals inside an allow_ips CIDR range, or localhost (when permitted) pass.
type URLSecurity struct {
	Enabled            bool     `yaml:"enabled"`
	AllowDomains       []string `yaml:"allow_domains"`
	AllowIPs           []string `yaml:"allow_ips"`
	AllowLocalhost     bool     `yaml:"allow_localhost"`
	LogBlockedAttempts bool     `yaml:"log_blocked_attempts"`
}

// Check returns nil when rawURL is permitted, or an error wrapping
// ErrURLBlocked otherwise. A disabled policy permits everything.
func (u URLSecurity) Check(rawURL string) error {
	if !u.Enabled {
		return nil
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: unparseable url %q", ErrURLBlocked, rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not allowed", ErrURLBlocked, parsed.Scheme)
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return fmt.Errorf("%w: url %q has no host", ErrURLBlocked, rawURL)
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if addr.IsLoopback() {
			if u.AllowLocalhost {
				return nil
			}
			return fmt.Errorf("%w: localhost access disabled", ErrURLBlocked)
		}
		for _, cidr := range u.AllowIPs {
			prefix, err := netip.ParsePrefix(cidr)
			if err != nil {
				continue
			}
			if prefix.Contains(addr) {
				return nil
			}
		}
		return fmt.Errorf("%w: ip %s not in any allowed range", ErrURLBlocked, addr)
	}

	if host == "localhost" {
		if u.AllowLocalhost {
			return nil
		}
		return fmt.Errorf("%w: localhost access disabled", ErrURLBlocked)
	}

	for _, pattern := range u.AllowDomains {
		if matchDomain(host, strings.ToLower(pattern)) {
			return nil
		}
	}
	return fmt.Errorf("%w: host %q not in allowed domains", ErrURLBlocked, host)
}

// matchDomain matches a host against an allowlist entry. "*.x.y" matches any
// subdomain of x.y by strict suffix, never x.y itself; plain entries match
// exactly.
func matchDomain(host, pattern string) bool {
	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(host, "."+suffix)
	}
	return host == pattern
}

func (u URLSecurity) validate() []string {
	var problems []string
	for _, cidr := range u.AllowIPs {
		if _, err := netip.ParsePrefix(cidr); err != nil {
			problems = append(problems, fmt.Sprintf("url_security.allow_ips entry %q is not a valid CIDR range", cidr))
		}
	}
	for _, d := range u.AllowDomains {
		trimmed := strings.TrimPrefix(d, "*.")
		if trimmed == "" || strings.ContainsAny(trimmed, "*/ ") {
			problems = append(problems, fmt.Sprintf("url_security.allow_domains entry %q is not a valid domain pattern", d))
		}
	}
	return problems
}
