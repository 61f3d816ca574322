// Package shellcache keeps a versioned on-disk copy of the app shell
// assets and serves them cache-first, so the editor keeps loading when the
// live handlers are unavailable. It knows nothing about notes; it only
// intercepts requests.
package shellcache

import (
	"embed"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
)

//go:embed static
var shellAssets embed.FS

// Version names the cache directory. Bump it when shell assets change;
// Activate removes every cache directory with any other name.
const Version = "notes-shell-v1"

// RootDocument is the asset served for failed navigation requests.
const RootDocument = "index.html"

type Cache struct {
	root string
	name string
}

func New(root string, name string) *Cache {
	return &Cache{root: root, name: name}
}

// Install writes the embedded shell assets into the versioned cache
// directory, creating it if needed.
func (c *Cache) Install() error {
	target := filepath.Join(c.root, c.name)
	if err := os.MkdirAll(target, 0700); err != nil {
		return err
	}

	return fs.WalkDir(shellAssets, "static", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		body, err := shellAssets.ReadFile(path)
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(path, "static/")
		return os.WriteFile(filepath.Join(target, name), body, 0600)
	})
}

// Activate deletes every cache directory under root whose name is not this
// cache's name, leaving only the current version.
func (c *Cache) Activate() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == c.name {
			continue
		}
		stale := filepath.Join(c.root, entry.Name())
		if err := os.RemoveAll(stale); err != nil {
			return err
		}
		slog.Info("removed stale shell cache", "path", stale)
	}
	return nil
}

// Get returns the cached asset with the given name, if present.
func (c *Cache) Get(name string) ([]byte, bool) {
	body, err := os.ReadFile(filepath.Join(c.root, c.name, name))
	if err != nil {
		return nil, false
	}
	return body, true
}

// Middleware serves shell assets cache-first and lets everything else fall
// through to the live handlers. When a downstream handler fails for a
// request that accepts HTML (a navigation), the cached root document is
// served instead so the shell stays reachable.
func (c *Cache) Middleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if ctx.Method() != fiber.MethodGet {
			return ctx.Next()
		}

		if name, ok := assetName(ctx.Path()); ok {
			if body, found := c.Get(name); found {
				ctx.Type(extension(name))
				return ctx.Send(body)
			}
		}

		err := ctx.Next()
		if err != nil && acceptsHTML(ctx) {
			if body, found := c.Get(RootDocument); found {
				slog.Warn("serving cached shell for failed navigation",
					"path", ctx.Path(),
					"err", err)
				ctx.Status(fiber.StatusOK)
				ctx.Type("html")
				return ctx.Send(body)
			}
		}
		return err
	}
}

// Private

func assetName(path string) (string, bool) {
	if path == "/" {
		return RootDocument, true
	}
	name := strings.TrimPrefix(path, "/")
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", false
	}
	switch extension(name) {
	case "html", "js", "css":
		return name, true
	}
	return "", false
}

func extension(name string) string {
	return strings.TrimPrefix(filepath.Ext(name), ".")
}

func acceptsHTML(ctx *fiber.Ctx) bool {
	return strings.Contains(ctx.Get(fiber.HeaderAccept), "text/html")
}
