package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	notesstore "github.com/mrshanahan/notes-local/pkg/notes-store"
)

// LoadNoteFromRoute resolves the note id route parameter against the store
// and stashes the note in the request locals under localName.
func LoadNoteFromRoute(localName string, param string, store *notesstore.Store) func(*fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		id := c.Params(param)
		if id == "" {
			c.Status(fiber.StatusBadRequest)
			return c.SendString("invalid request")
		}
		found := store.Get(id)
		if found == nil {
			c.Status(fiber.StatusNotFound)
			return c.SendString(fmt.Sprintf("no note with id: %s", id))
		}
		c.Locals(localName, found)
		return c.Next()
	}
}
