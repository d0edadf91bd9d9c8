package vpntypes

import (
	"fmt"
	"path/filepath"
	"strings"
)

// NamespacePrefix is the fixed prefix all namespace names created by this
// tool carry, so they're identifiable in `ip netns list` output alongside
// namespaces created by unrelated tools.
const NamespacePrefix = "vopono"

// ServerKeyWidth is the number of characters of a sanitized custom-config
// file stem used to build the namespace name. The original source used 4,
// which collides easily on similarly-named configs; this implementation
// widens it to 8 (see DESIGN.md, Open Question on server-key width).
const ServerKeyWidth = 8

// CustomConfigServerKey derives the server-key component of a namespace
// name from a user-supplied config file path: the file stem with spaces
// and hyphens removed, lowercased, truncated to ServerKeyWidth characters.
func CustomConfigServerKey(configPath string) string {
	stem := strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath))
	var b strings.Builder
	for _, r := range stem {
		if r == ' ' || r == '-' {
			continue
		}
		b.WriteRune(r)
	}
	key := strings.ToLower(b.String())
	if len(key) > ServerKeyWidth {
		key = key[:ServerKeyWidth]
	}
	return key
}

// NamespaceName builds the "vopono_<provider-alias>_<server-key>" name
// described in spec.md §3. serverKey is either the resolved server alias
// (non-custom configs) or CustomConfigServerKey's output (custom configs).
func NamespaceName(provider VpnProvider, serverKey string) string {
	return fmt.Sprintf("%s_%s_%s", NamespacePrefix, provider.Alias(), serverKey)
}
