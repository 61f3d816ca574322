package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrshanahan/notes-local/pkg/client"
	notescodec "github.com/mrshanahan/notes-local/pkg/notes-codec"
)

var DefaultURL string = "http://localhost:3334"

func main() {
	os.Exit(Run())
}

func Run() int {
	if len(os.Args) < 2 {
		printHelp()
		return 1
	}

	url := os.Getenv("NOTES_LOCAL_URL")
	if url == "" {
		url = DefaultURL
	}
	c := client.NewClient(url)

	switch os.Args[1] {
	case "list":
		collection, err := c.ListNotes()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to list notes: %s\n", err)
			return 1
		}
		for _, n := range collection {
			fmt.Println(n)
		}
		return 0
	case "export":
		path := notescodec.ExportFilename
		if len(os.Args) > 2 {
			path = os.Args[2]
		}
		text, err := c.ExportNotes()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to export notes: %s\n", err)
			return 1
		}
		if err := os.WriteFile(path, []byte(text), 0666); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write %s: %s\n", path, err)
			return 1
		}
		fmt.Printf("exported notes to %s\n", path)
		return 0
	case "import":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "import requires a file path")
			return 1
		}
		path := os.Args[2]
		text, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to read %s: %s\n", path, err)
			return 1
		}
		imported, err := c.ImportNotes(filepath.Base(path), string(text))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to import notes: %s\n", err)
			return 1
		}
		fmt.Printf("imported %d note(s)\n", imported)
		return 0
	case "-h", "--help", "-?":
		printHelp()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printHelp()
		return 1
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `
notes-ctl <command> [args]

COMMANDS:
	list             List all notes
	export [file]    Export all notes to a flat text file (default: %s)
	import <file>    Import notes from a flat text file

ENVIRONMENT VARIABLES:
	NOTES_LOCAL_URL: (optional) Base URL of the notes instance (default: %s)
`,
		notescodec.ExportFilename,
		DefaultURL)
}
