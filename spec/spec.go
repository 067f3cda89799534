// Package spec embeds the OpenAPI specification for the Roamline API.
// It is served by the HTTP server at /openapi.yaml so the document and the
// running code are always in sync.
package spec

import _ "embed"

// OpenAPI contains the raw bytes of openapi.yaml, embedded at compile time.
//
//go:embed openapi.yaml
var OpenAPI []byte
