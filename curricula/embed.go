// Package curricula embeds the tutorial catalogs shipped with the tutor.
package curricula

import "embed"

// FS holds the bundled catalog YAML files.
//
//go:embed *.yaml
var FS embed.FS
