package archive

import (
	"archive/tar"
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/chazu/cambium/pkg/document"
	"github.com/chazu/cambium/pkg/graph"
	"github.com/chazu/cambium/pkg/kernel"
	"github.com/chazu/cambium/pkg/workbench"
)

// ErrCorruptDocument means the container was readable but its content
// violates a structural invariant (cycle, dangling reference, missing
// asset content). Loaders refuse such documents outright.
var ErrCorruptDocument = errors.New("corrupt document")

const (
	documentEntry = "document.json"
	cachePrefix   = "cache/"
	assetPrefix   = "assets/"
	meshSuffix    = ".mesh"
)

// Save writes doc to path as a container with the given encoding.
// assets supplies the byte content for every asset reference in the
// document; a reference without content is an error because the
// resulting container could never load. Bodies with a clean cached mesh
// get a cache entry.
func Save(p string, doc *document.Document, assets map[graph.AssetID][]byte, comp Compression) error {
	f, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("archive: create %s: %w", p, err)
	}
	defer f.Close()

	zw, err := wrapWriter(f, comp)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(zw)

	docBytes, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: serialize document: %w", err)
	}
	if err := writeEntry(tw, documentEntry, docBytes); err != nil {
		return err
	}

	for _, ref := range doc.Assets() {
		content, ok := assets[ref.ID]
		if !ok {
			return fmt.Errorf("archive: %w: asset %s has no content", ErrCorruptDocument, ref.Path)
		}
		if err := writeEntry(tw, ref.Path, content); err != nil {
			return err
		}
	}

	for _, body := range doc.Bodies() {
		if body.CachedMesh == nil || body.Dirty {
			continue
		}
		payload, err := msgpack.Marshal(body.CachedMesh)
		if err != nil {
			return fmt.Errorf("archive: encode mesh for body %s: %w", body.ID.String(), err)
		}
		if err := writeEntry(tw, cachePrefix+body.ID.String()+meshSuffix, payload); err != nil {
			return err
		}
	}

	if err := tw.Close(); err != nil {
		return fmt.Errorf("archive: finish tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: finish compression: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("archive: close %s: %w", p, err)
	}
	slog.Info("saved document", "path", p, "compression", comp.String(),
		"features", doc.Graph().Len(), "assets", len(doc.Assets()))
	return nil
}

func writeEntry(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(content)),
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("archive: write header %s: %w", name, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("archive: write entry %s: %w", name, err)
	}
	return nil
}

// Load reads a container from path. The encoding is sniffed from the
// leading magic bytes, so renamed files still open. Feature payloads
// are checked against the registered workbenches: a payload the owning
// workbench rejects, or one whose workbench is not registered, marks
// the record unreadable but does not fail the load. Structural
// violations do, with ErrCorruptDocument.
func Load(p string, reg *workbench.Registry) (*document.Document, map[graph.AssetID][]byte, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open %s: %w", p, err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	header, _ := br.Peek(4)
	comp := detect(header, p)

	zr, err := wrapReader(br, comp)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open %s as %s: %w", p, comp.String(), err)
	}
	defer zr.Close()

	var docBytes []byte
	assetBytes := make(map[string][]byte)
	cacheBytes := make(map[string][]byte)

	tr := tar.NewReader(zr)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("archive: read %s: %w", p, err)
		}
		name := path.Clean(hdr.Name)
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, nil, fmt.Errorf("archive: read entry %s: %w", name, err)
		}
		switch {
		case name == documentEntry:
			docBytes = content
		case strings.HasPrefix(name, assetPrefix):
			assetBytes[name] = content
		case strings.HasPrefix(name, cachePrefix):
			cacheBytes[name] = content
		default:
			slog.Warn("ignoring unknown container entry", "path", p, "entry", name)
		}
	}
	if docBytes == nil {
		return nil, nil, fmt.Errorf("archive: %w: %s has no %s", ErrCorruptDocument, p, documentEntry)
	}

	doc := new(document.Document)
	if err := json.Unmarshal(docBytes, doc); err != nil {
		return nil, nil, fmt.Errorf("archive: %w: %v", ErrCorruptDocument, err)
	}
	if findings := doc.Validate(); len(findings) > 0 {
		for _, v := range findings {
			slog.Error("document validation failed", "path", p, "finding", v.Error())
		}
		return nil, nil, fmt.Errorf("archive: %w: %d validation finding(s)", ErrCorruptDocument, len(findings))
	}

	assets := make(map[graph.AssetID][]byte, len(doc.Assets()))
	for _, ref := range doc.Assets() {
		content, ok := assetBytes[ref.Path]
		if !ok {
			return nil, nil, fmt.Errorf("archive: %w: asset content %s missing", ErrCorruptDocument, ref.Path)
		}
		assets[ref.ID] = content
	}

	markUnreadable(doc, reg, p)
	restoreCache(doc, cacheBytes, p)

	doc.MarkClean()
	return doc, assets, nil
}

// markUnreadable runs every stored payload through its owning workbench
// and flags records the workbench cannot rebuild. One bad feature must
// not take the document down with it.
func markUnreadable(doc *document.Document, reg *workbench.Registry, p string) {
	if reg == nil {
		return
	}
	for _, rec := range doc.Graph().All() {
		if _, err := reg.DecodeFeature(rec.WorkbenchID, rec.Data.Value); err != nil {
			rec.Unreadable = true
			slog.Warn("feature payload unreadable", "path", p,
				"feature", rec.Name, "id", rec.ID.Short(), "workbench", rec.WorkbenchID, "err", err)
		}
	}
}

// restoreCache matches cache entries to live bodies. Entries for
// unknown or dirty bodies are stale and skipped.
func restoreCache(doc *document.Document, cacheBytes map[string][]byte, p string) {
	for name, content := range cacheBytes {
		raw := strings.TrimSuffix(strings.TrimPrefix(name, cachePrefix), meshSuffix)
		id, err := graph.ParseBodyID(raw)
		if err != nil {
			slog.Debug("skipping unrecognized cache entry", "path", p, "entry", name)
			continue
		}
		body := doc.Body(id)
		if body == nil || body.Dirty {
			slog.Debug("skipping stale cache entry", "path", p, "entry", name)
			continue
		}
		var mesh kernel.Mesh
		if err := msgpack.Unmarshal(content, &mesh); err != nil {
			slog.Warn("discarding undecodable cache entry", "path", p, "entry", name, "err", err)
			continue
		}
		body.CachedMesh = &mesh
	}
}
