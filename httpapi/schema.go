package httpapi

import (
	"github.com/invopop/jsonschema"
)

// requestSchemas reflects the request bodies accepted by the POST routes.
func requestSchemas() map[string]any {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return map[string]any{
		"scan":  r.Reflect(new(ScanBody)),
		"crawl": r.Reflect(new(CrawlBody)),
		"up":    r.Reflect(new(UpRequest)),
	}
}
