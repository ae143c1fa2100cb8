// Package levels embeds the shipped level files and their JSON schema.
package levels

import "embed"

//go:embed *.json
var FS embed.FS

//go:embed level.schema.json
var Schema []byte
