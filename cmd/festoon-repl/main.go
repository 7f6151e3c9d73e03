package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/phroun/festoon"
)

// REPL holds the state of the interactive session
type REPL struct {
	lib     *festoon.Library
	doc     *festoon.Document
	reader  *bufio.Reader
	changes int
}

func main() {
	fmt.Println("Festoon REPL - Interactive Decoration Demo")
	fmt.Println("Type 'help' for available commands, 'quit' to exit")
	fmt.Println()

	repl := &REPL{
		reader: bufio.NewReader(os.Stdin),
	}

	// Initialize library
	lib, err := festoon.Init(festoon.LibraryOptions{})
	if err != nil {
		fmt.Printf("Error initializing library: %v\n", err)
		os.Exit(1)
	}
	repl.lib = lib

	// Main loop
	for {
		fmt.Print("festoon> ")
		input, err := repl.reader.ReadString('\n')
		if err != nil {
			fmt.Println("\nGoodbye!")
			break
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if !repl.handleCommand(input) {
			break
		}
	}

	// Cleanup
	if repl.doc != nil {
		repl.doc.Close()
	}
}

func (r *REPL) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return true
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help":
		r.printHelp()

	case "quit", "exit":
		fmt.Println("Goodbye!")
		return false

	case "new":
		r.cmdNew(args)

	case "close":
		r.cmdClose()

	case "status":
		r.cmdStatus()

	case "insert":
		r.cmdInsert(args)

	case "delete":
		r.cmdDelete(args)

	case "replace":
		r.cmdReplace(args)

	case "deco":
		r.cmdDeco(args)

	case "track":
		r.cmdTrack(args)

	case "list":
		r.cmdList(args)

	case "line":
		r.cmdLine(args)

	case "dump":
		r.cmdDump()

	case "version":
		r.cmdVersion()

	default:
		fmt.Printf("Unknown command: %s. Type 'help' for available commands.\n", cmd)
	}

	return true
}

func (r *REPL) printHelp() {
	help := `
Available Commands:
-------------------

DOCUMENT OPERATIONS:
  new <text>                    Create a new document with the given content
  close                         Close the current document
  status                        Show current document status

EDIT OPERATIONS:
  insert <offset> <text>        Insert text at a byte offset
  delete <offset> <length>      Delete a byte range
  replace <offset> <len> <text> Replace a byte range with text

DECORATION OPERATIONS:
  deco add <sl> <sc> <el> <ec> [class]   Add a decoration over a range
  deco move <id> <sl> <sc> <el> <ec>     Move a decoration
  deco rm <id>                           Remove a decoration
  track <sl> <sc> <el> <ec> <mode>       Create a tracked range (mode 0-3)

INSPECTION:
  list [owner]                  List all decorations (optionally by owner)
  line <n>                      List decorations overlapping line n
  dump                          Dump content with line numbers
  version                       Show document version stamp

OTHER:
  help                          Show this help message
  quit, exit                    Exit the REPL
`
	fmt.Println(help)
}

func (r *REPL) cmdNew(args []string) {
	if r.doc != nil {
		r.doc.Close()
	}

	content := strings.Join(args, " ")
	content = strings.ReplaceAll(content, "\\n", "\n")
	r.changes = 0
	doc, err := r.lib.Open(festoon.DocumentOptions{
		DataString:           content,
		OnDecorationsChanged: func() { r.changes++ },
	})
	if err != nil {
		fmt.Printf("Error creating document: %v\n", err)
		return
	}

	r.doc = doc
	fmt.Printf("Created new document with %d lines\n", doc.LineCount())
}

func (r *REPL) cmdClose() {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}

	r.doc.Close()
	r.doc = nil
	fmt.Println("Document closed")
}

func (r *REPL) cmdStatus() {
	if r.doc == nil {
		fmt.Println("No document is open. Use 'new <text>' to create one.")
		return
	}

	fmt.Println("Document Status:")
	fmt.Printf("  Lines: %d\n", r.doc.LineCount())
	fmt.Printf("  Version: %d\n", r.doc.VersionID())
	fmt.Printf("  Decorations: %d\n", r.doc.DecorationCount())
	fmt.Printf("  Change notifications: %d\n", r.changes)
}

func (r *REPL) cmdInsert(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	if len(args) < 2 {
		fmt.Println("Usage: insert <offset> <text>")
		return
	}

	offset, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid offset: %v\n", err)
		return
	}

	text := strings.Join(args[1:], " ")
	text = strings.ReplaceAll(text, "\\n", "\n")
	if err := r.doc.Insert(offset, text); err != nil {
		fmt.Printf("Error inserting: %v\n", err)
		return
	}
	fmt.Printf("Inserted %d bytes at offset %d\n", len(text), offset)
}

func (r *REPL) cmdDelete(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	if len(args) != 2 {
		fmt.Println("Usage: delete <offset> <length>")
		return
	}

	offset, err1 := strconv.Atoi(args[0])
	length, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Println("Offset and length must be integers")
		return
	}

	if err := r.doc.Delete(offset, length); err != nil {
		fmt.Printf("Error deleting: %v\n", err)
		return
	}
	fmt.Printf("Deleted %d bytes at offset %d\n", length, offset)
}

func (r *REPL) cmdReplace(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	if len(args) < 3 {
		fmt.Println("Usage: replace <offset> <length> <text>")
		return
	}

	offset, err1 := strconv.Atoi(args[0])
	length, err2 := strconv.Atoi(args[1])
	if err1 != nil || err2 != nil {
		fmt.Println("Offset and length must be integers")
		return
	}

	text := strings.Join(args[2:], " ")
	text = strings.ReplaceAll(text, "\\n", "\n")
	if err := r.doc.Replace(offset, length, text); err != nil {
		fmt.Printf("Error replacing: %v\n", err)
		return
	}
	fmt.Printf("Replaced %d bytes at offset %d with %d bytes\n", length, offset, len(text))
}

func (r *REPL) cmdDeco(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	if len(args) == 0 {
		fmt.Println("Usage: deco add|move|rm ...")
		return
	}

	switch args[0] {
	case "add":
		if len(args) < 5 {
			fmt.Println("Usage: deco add <sl> <sc> <el> <ec> [class]")
			return
		}
		rng, err := parseRange(args[1:5])
		if err != nil {
			fmt.Printf("Invalid range: %v\n", err)
			return
		}
		var opts *festoon.Options
		if len(args) > 5 {
			opts = r.lib.Options().Register(festoon.DecorationOptions{
				ClassName: args[5],
			})
		}
		id := r.doc.AddDecoration(rng, opts, 0)
		fmt.Printf("Added decoration %s at %v\n", id, rng)

	case "move":
		if len(args) != 6 {
			fmt.Println("Usage: deco move <id> <sl> <sc> <el> <ec>")
			return
		}
		rng, err := parseRange(args[2:6])
		if err != nil {
			fmt.Printf("Invalid range: %v\n", err)
			return
		}
		r.doc.ChangeDecorationRange(args[1], rng)
		if got := r.doc.GetDecorationRange(args[1]); got != nil {
			fmt.Printf("Decoration %s now at %v\n", args[1], *got)
		} else {
			fmt.Printf("Unknown decoration id %q\n", args[1])
		}

	case "rm":
		if len(args) != 2 {
			fmt.Println("Usage: deco rm <id>")
			return
		}
		r.doc.RemoveDecoration(args[1])
		fmt.Printf("Removed decoration %s\n", args[1])

	default:
		fmt.Printf("Unknown deco subcommand: %s\n", args[0])
	}
}

func (r *REPL) cmdTrack(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	if len(args) != 5 {
		fmt.Println("Usage: track <sl> <sc> <el> <ec> <mode>")
		return
	}

	rng, err := parseRange(args[0:4])
	if err != nil {
		fmt.Printf("Invalid range: %v\n", err)
		return
	}
	mode, err := strconv.Atoi(args[4])
	if err != nil || mode < 0 || mode > 3 {
		fmt.Println("Mode must be 0 (AlwaysGrows), 1 (NeverGrows), 2 (GrowsOnlyBefore) or 3 (GrowsOnlyAfter)")
		return
	}

	id := r.doc.SetTrackedRange("", &rng, festoon.Stickiness(mode))
	fmt.Printf("Tracking %v as %s\n", rng, id)
}

func (r *REPL) cmdList(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}

	owner := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Printf("Invalid owner id: %v\n", err)
			return
		}
		owner = n
	}

	decos := r.doc.AllDecorations(owner, false)
	if len(decos) == 0 {
		fmt.Println("No decorations")
		return
	}
	for _, deco := range decos {
		printDecoration(deco)
	}
}

func (r *REPL) cmdLine(args []string) {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	if len(args) != 1 {
		fmt.Println("Usage: line <n>")
		return
	}

	line, err := strconv.Atoi(args[0])
	if err != nil {
		fmt.Printf("Invalid line: %v\n", err)
		return
	}

	decos := r.doc.LineDecorations(line, 0, false)
	if len(decos) == 0 {
		fmt.Printf("No decorations on line %d\n", line)
		return
	}
	for _, deco := range decos {
		printDecoration(deco)
	}
}

func (r *REPL) cmdDump() {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}

	text := r.doc.Text()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		fmt.Printf("%4d | %s\n", i+1, line)
	}
}

func (r *REPL) cmdVersion() {
	if r.doc == nil {
		fmt.Println("No document is open")
		return
	}
	fmt.Printf("Version %d\n", r.doc.VersionID())
}

func printDecoration(deco festoon.Decoration) {
	class := ""
	if deco.Options != nil {
		class = deco.Options.ClassName
	}
	fmt.Printf("  %-8s owner=%-3d %-20v %s\n", deco.ID, deco.OwnerID, deco.Range, class)
}

func parseRange(args []string) (festoon.Range, error) {
	nums := make([]int, 4)
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return festoon.Range{}, err
		}
		nums[i] = n
	}
	return festoon.NewRange(nums[0], nums[1], nums[2], nums[3]), nil
}
