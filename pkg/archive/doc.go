// Package archive reads and writes the Cambium container format: a tar
// archive, optionally compressed, holding the document JSON, imported
// asset bytes, and cached tessellations.
//
// Layout inside the container:
//
//	document.json        the serialized document aggregate
//	assets/<name>        byte content of each imported asset
//	cache/<body-id>.mesh msgpack-encoded cached mesh per body
//
// The cache area is advisory. Entries that no longer match a body are
// skipped on load; the kernel regenerates them.
package archive
