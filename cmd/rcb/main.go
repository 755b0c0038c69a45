// Package main provides rcb, an interactive shell around a compactable ring buffer.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	flag "github.com/spf13/pflag"

	"github.com/viant/rcb"
)

var commands = []string{"add", "del", "get", "dump", "stats", "keys", "compact", "help", "quit"}

// REPL is the interactive command loop.
type REPL struct {
	buffer   *rcb.CompactableBuffer
	capacity int
	liner    *liner.State
}

// historyFile returns the path to the history file.
func historyFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".rcb_history")
}

// Run starts the REPL loop.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFile()); err == nil {
		r.liner.ReadHistory(f)
		f.Close()
	}

	fmt.Printf("rcb - compactable ring buffer shell (capacity=%d)\n", r.capacity)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("rcb> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")

				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "add":
			r.cmdAdd(args)

		case "del", "delete":
			r.cmdDelete(args)

		case "get":
			r.cmdGet(args)

		case "dump":
			r.cmdDump()

		case "stats", "info":
			r.cmdStats()

		case "keys", "ls":
			r.cmdKeys()

		case "compact":
			r.buffer.Compact()
			r.cmdStats()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

// saveHistory persists command history to disk.
func (r *REPL) saveHistory() {
	if path := historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *REPL) completer(line string) []string {
	var result []string

	for _, cmd := range commands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			result = append(result, cmd)
		}
	}

	return result
}

func (r *REPL) printHelp() {
	fmt.Println("Commands:")
	fmt.Println("  add <key> <data...>   store data under key")
	fmt.Println("  del <key>             flag block for deletion")
	fmt.Println("  get <key>             print block data")
	fmt.Println("  dump                  compact and print all live blocks in insertion order")
	fmt.Println("  stats                 print capacity/free/used")
	fmt.Println("  keys                  list live keys in insertion order")
	fmt.Println("  compact               reclaim delete pending space now")
	fmt.Println("  quit                  exit")
}

func printInfo(info rcb.BufferInfo) {
	fmt.Printf("capacity=%d free=%d used=%d\n", info.Capacity, info.FreeBytes, info.UsedBytes)
}

func (r *REPL) cmdAdd(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: add <key> <data...>")

		return
	}

	data := strings.Join(args[1:], " ")

	info, err := r.buffer.Add(args[0], []byte(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}

	printInfo(info)
}

func (r *REPL) cmdDelete(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: del <key>")

		return
	}

	info, err := r.buffer.Delete(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)
	}

	printInfo(info)
}

func (r *REPL) cmdGet(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: get <key>")

		return
	}

	data, err := r.buffer.ReadEntry(args[0])
	if err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Printf("%s\n", data)
}

func (r *REPL) cmdDump() {
	if _, err := r.buffer.WriteTo(os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)

		return
	}

	fmt.Println()
}

func (r *REPL) cmdStats() {
	printInfo(r.buffer.Info())
}

func (r *REPL) cmdKeys() {
	keys := r.buffer.Keys()
	for _, key := range keys {
		fmt.Println(key)
	}

	fmt.Printf("%d live block(s)\n", len(keys))
}

func main() {
	capacity := flag.IntP("capacity", "c", 1024, "buffer capacity in bytes")
	flag.Parse()

	buffer, err := rcb.New(*capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rcb: %v\n", err)
		os.Exit(1)
	}

	repl := &REPL{buffer: buffer, capacity: *capacity}
	if err := repl.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "rcb: %v\n", err)
		os.Exit(1)
	}
}
