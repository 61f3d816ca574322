package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/mrshanahan/notes-local/internal/utils"
	"github.com/mrshanahan/notes-local/pkg/notes"
	notescodec "github.com/mrshanahan/notes-local/pkg/notes-codec"
	notesstore "github.com/mrshanahan/notes-local/pkg/notes-store"
)

func getNoteFromContext(c *fiber.Ctx) *notes.Note {
	return c.Locals(NoteLocalName).(*notes.Note)
}

func ListNotes(c *fiber.Ctx) error {
	query := c.Query("q")
	results := []*notes.Note{}
	for n := range Store.Search(query) {
		results = append(results, n)
	}
	return c.JSON(results)
}

func CreateNote(c *fiber.Ctx) error {
	id := Store.Create()
	entry := Store.Get(id)
	if entry == nil {
		slog.Error("created note missing from collection", "id", id)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
	c.Status(fiber.StatusCreated)
	return c.JSON(entry)
}

func GetNote(c *fiber.Ctx) error {
	note := getNoteFromContext(c)
	return c.JSON(note)
}

func ActivateNote(c *fiber.Ctx) error {
	note := getNoteFromContext(c)
	Store.SetActive(note.ID)
	return c.JSON(note)
}

func GetActiveNote(c *fiber.Ctx) error {
	note := Store.Active()
	if note == nil {
		c.Status(fiber.StatusNotFound)
		return c.SendString("no active note")
	}
	return c.JSON(note)
}

func UpdateActiveFields(c *fiber.Ctx) error {
	data := &FieldsRequest{}
	err := json.Unmarshal(c.Body(), data)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	if c.Query("flush") == "true" {
		Store.UpdateActiveFromFields(data.Title, data.Content)
		return c.SendStatus(fiber.StatusNoContent)
	}

	Store.ScheduleUpdate(data.Title, data.Content)
	return c.SendStatus(fiber.StatusAccepted)
}

func DeleteActiveNote(c *fiber.Ctx) error {
	if c.Query("confirm") != "true" {
		c.Status(fiber.StatusConflict)
		return c.SendString("confirmation required: retry with confirm=true")
	}

	err := Store.DeleteActive()
	if err != nil && errors.Is(err, notesstore.ErrNoActiveNote) {
		c.Status(fiber.StatusConflict)
		return c.SendString("no active note to delete")
	} else if err != nil {
		slog.Error("failed to delete active note", "err", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func ClearAllNotes(c *fiber.Ctx) error {
	if c.Query("confirm") != "true" {
		c.Status(fiber.StatusConflict)
		return c.SendString("confirmation required: retry with confirm=true")
	}

	Store.ClearAll()
	return c.SendStatus(fiber.StatusNoContent)
}

func ExportNotes(c *fiber.Ctx) error {
	// Commit any pending autosave so the export reflects the latest edits.
	Store.Flush()

	collection := Store.List()
	if len(collection) == 0 {
		c.Status(fiber.StatusConflict)
		return c.SendString("no notes to export")
	}

	text := notescodec.Serialize(collection)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", notescodec.ExportFilename))
	c.Type("txt", "utf-8")
	return c.SendString(text)
}

func ImportNotes(c *fiber.Ctx) error {
	// fiber delegates to fasthttp here, so a missing form file surfaces as
	// fasthttp's sentinel rather than net/http's.
	fileHeader, err := c.FormFile("file")
	if err != nil && errors.Is(err, fasthttp.ErrMissingFile) {
		c.Status(fiber.StatusBadRequest)
		return c.SendString("no file selected: form file required for 'file' field")
	} else if err != nil {
		c.Status(fiber.StatusBadRequest)
		return c.SendString(fmt.Sprintf("unexpected error when reading form file: %s", err))
	}

	file, err := fileHeader.Open()
	if err != nil {
		slog.Error("failed to open form file",
			"err", err)
		c.Status(fiber.StatusInternalServerError)
		return c.SendString("failed to read form file")
	}
	defer file.Close()

	content, err := utils.ReadToEnd(file)
	if err != nil {
		slog.Error("failed to read request file body",
			"err", err)
		c.Status(fiber.StatusInternalServerError)
		return c.SendString("failed to read form file")
	}

	drafts := notescodec.Parse(string(content))
	Store.AppendBatch(drafts)

	return c.JSON(&ImportResult{Imported: len(drafts)})
}

// API types

type FieldsRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type ImportResult struct {
	Imported int `json:"imported"`
}
