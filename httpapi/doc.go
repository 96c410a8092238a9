// Package httpapi exposes scanning, crawling and availability checks over
// HTTP.
//
// Routes:
//
//	POST /scan     scan one page, store the result, return the response projection
//	POST /crawl    crawl one site, or every stored crawl target when the body is empty
//	POST /up       check one target, or every stored up target when the body is empty
//	GET  /ready    readiness probe
//	GET  /health   liveness probe
//	GET  /schema   JSON Schemas of the request bodies
//	GET  /mappings rule tables currently in effect
//
// POST routes require the x-auth header. Request bodies are capped and must
// be JSON.
package httpapi
