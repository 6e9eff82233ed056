package config

import (
	"strings"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// DefaultSTUN is appended whenever the configured list has no STUN entry.
const DefaultSTUN = "stun:stun.l.google.com:19302"

// BuildICEServers turns a comma-separated server list into ICE servers.
//
// Entries without a scheme are TURN hosts and get a "turn:" prefix. Credentials
// are attached to every TURN entry. TURN entries are dropped with a warning when
// either the username or the credential is empty, since pion rejects the whole
// configuration with ErrNoTurnCredentials otherwise. The result always holds at
// least one STUN entry so basic NAT traversal works even with a broken environment.
func BuildICEServers(raw, username, credential string) []webrtc.ICEServer {
	username = strings.TrimSpace(username)
	credential = strings.TrimSpace(credential)

	var (
		servers []webrtc.ICEServer
		hasSTUN bool
	)
	for _, entry := range splitCommaSeparated(raw) {
		url, ok := normalizeICEURL(entry)
		if !ok {
			log.Warn().Str("module", "config.ice").Str("url", entry).Msg("unsupported ice url scheme, skipping")
			continue
		}

		if isTURN(url) {
			if username == "" || credential == "" {
				// pion refuses TURN servers without credentials
				log.Warn().Str("module", "config.ice").Str("url", url).Msg("turn server without credentials, skipping")
				continue
			}
			servers = append(servers, webrtc.ICEServer{
				URLs:       []string{url},
				Username:   username,
				Credential: credential,
			})
			continue
		}

		hasSTUN = true
		servers = append(servers, webrtc.ICEServer{URLs: []string{url}})
	}

	if !hasSTUN {
		servers = append(servers, webrtc.ICEServer{URLs: []string{DefaultSTUN}})
	}
	return servers
}

func normalizeICEURL(entry string) (string, bool) {
	if isAllowedICEScheme(entry) {
		return entry, true
	}
	if strings.Contains(entry, "://") {
		return "", false
	}
	return "turn:" + entry, true
}

func splitCommaSeparated(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func isTURN(url string) bool {
	return strings.HasPrefix(url, "turn:") || strings.HasPrefix(url, "turns:")
}

func isAllowedICEScheme(url string) bool {
	switch {
	case strings.HasPrefix(url, "stun:"),
		strings.HasPrefix(url, "stuns:"),
		strings.HasPrefix(url, "turn:"),
		strings.HasPrefix(url, "turns:"):
		return true
	default:
		return false
	}
}
