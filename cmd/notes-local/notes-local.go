package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/mrshanahan/notes-local/internal/middleware"
	"github.com/mrshanahan/notes-local/internal/shellcache"
	"github.com/mrshanahan/notes-local/internal/utils"
	notesdb "github.com/mrshanahan/notes-local/pkg/notes-db"
	notesstore "github.com/mrshanahan/notes-local/pkg/notes-store"
)

var (
	DB                       *sql.DB
	Store                    *notesstore.Store
	NoteLocalName            string = "note"
	NotesConfigDirectory     string = path.Join(os.Getenv("HOME"), ".notes-local")
	DefaultPort              int    = 3334
	DefaultNotesDatabaseName string = "notes.sqlite"
	DefaultShellCacheDirName string = "shell-cache"
)

func main() {
	exitCode := Run()
	os.Exit(exitCode)
}

func Run() int {
	if len(os.Args) > 1 && utils.Any(os.Args[1:], func(x string) bool { return x == "-h" || x == "--help" || x == "-?" }) {
		printHelp()
		return 0
	}

	var dbPath string
	dbPathDir := os.Getenv("NOTES_LOCAL_DB_DIR")
	if dbPathDir == "" {
		if err := os.MkdirAll(NotesConfigDirectory, 0777); err != nil {
			slog.Error("failed to create notes directory",
				"path", NotesConfigDirectory,
				"err", err)
			return 1
		}
		dbPath = path.Join(NotesConfigDirectory, DefaultNotesDatabaseName)
		slog.Info("no path provided for DB; using default",
			"path", dbPath)
	} else {
		slog.Info("given DB directory", "dir", dbPathDir)
		if err := os.MkdirAll(dbPathDir, 0777); err != nil {
			slog.Error("failed to create custom notes DB path parent",
				"path", dbPathDir,
				"err", err)
			return 1
		}
		dbPath = path.Join(dbPathDir, DefaultNotesDatabaseName)
	}

	db, err := notesdb.Initialize(dbPath)
	if err != nil {
		fmt.Printf("failed to initialize: %s\n", err)
		return 1
	}
	DB = db
	defer DB.Close()

	Store = notesstore.New(&notesdb.KV{DB: DB}, notesdb.NotesKey)

	autosaveMsStr := os.Getenv("NOTES_LOCAL_AUTOSAVE_MS")
	if autosaveMsStr != "" {
		autosaveMs, err := strconv.Atoi(autosaveMsStr)
		if err != nil || autosaveMs <= 0 {
			slog.Info("invalid autosave delay provided via NOTES_LOCAL_AUTOSAVE_MS, using default",
				"autosaveMsStr", autosaveMsStr,
				"defaultDelay", notesstore.DefaultAutosaveDelay)
		} else {
			Store.SetAutosaveDelay(time.Duration(autosaveMs) * time.Millisecond)
			slog.Info("using custom autosave delay", "autosaveMs", autosaveMs)
		}
	}

	Store.Load()

	cacheDir := os.Getenv("NOTES_LOCAL_SHELL_CACHE_DIR")
	if cacheDir == "" {
		cacheDir = path.Join(NotesConfigDirectory, DefaultShellCacheDirName)
	}
	shell := shellcache.New(cacheDir, shellcache.Version)
	if err := shell.Install(); err != nil {
		slog.Warn("failed to install shell cache; offline shell unavailable",
			"dir", cacheDir,
			"err", err)
	} else if err := shell.Activate(); err != nil {
		slog.Warn("failed to prune stale shell caches",
			"dir", cacheDir,
			"err", err)
	}

	portStr := os.Getenv("NOTES_LOCAL_PORT")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		port = DefaultPort
		slog.Info("no valid port provided via NOTES_LOCAL_PORT, using default",
			"portStr", portStr,
			"defaultPort", port)
	} else {
		slog.Info("using custom port",
			"port", port)
	}

	app := fiber.New()
	app.Use(requestid.New(), logger.New(), recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: fmt.Sprintf("http://localhost:%d", port),
	}))
	app.Use(shell.Middleware())
	RegisterRoutes(app)

	slog.Info("listening for requests", "port", port)
	err = app.Listen(fmt.Sprintf(":%d", port))
	if err != nil {
		slog.Error("failed to initialize HTTP server",
			"err", err)
		return 1
	}
	return 0
}

func RegisterRoutes(app *fiber.App) {
	app.Route("/notes", func(notes fiber.Router) {
		notes.Get("/", ListNotes)
		notes.Post("/", CreateNote)
		notes.Delete("/", ClearAllNotes)
		notes.Get("/export", ExportNotes)
		notes.Post("/import", ImportNotes)
		notes.Get("/active", GetActiveNote)
		notes.Post("/active/fields", UpdateActiveFields)
		notes.Delete("/active", DeleteActiveNote)
		notes.Route("/:noteID", func(note fiber.Router) {
			note.Use(middleware.LoadNoteFromRoute(NoteLocalName, "noteID", Store))
			note.Get("/", GetNote)
			note.Post("/activate", ActivateNote)
		})
	})
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `
notes-local [-h|--help|-?]

OPTIONS:
	-h|--help|-?	Display this help message and exit

ENVIRONMENT VARIABLES:
	NOTES_LOCAL_DB_DIR:          (optional) Path to directory where notes.sqlite is located (default: %s)
	NOTES_LOCAL_PORT:            (optional) Port on which the app should be hosted (default: %d)
	NOTES_LOCAL_AUTOSAVE_MS:     (optional) Autosave debounce delay in milliseconds (default: %d)
	NOTES_LOCAL_SHELL_CACHE_DIR: (optional) Path to the offline shell cache directory (default: %s)
`,
		NotesConfigDirectory,
		DefaultPort,
		notesstore.DefaultAutosaveDelay/time.Millisecond,
		path.Join(NotesConfigDirectory, DefaultShellCacheDirName))
}
