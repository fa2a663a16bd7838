// Command vaultctl is an operator CLI that opens a volume directly (no
// network round trip through the adapter) and runs one subcommand.
//
// Grounded on cmd/w64tool/main.go's flag-parse-then-switch-on-args[0] shape,
// adapted to pflag and to operating on a local *vault.Store instead of
// posting requests to an HTTP endpoint.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/wanderer-labs/blockvault/internal/config"
	"github.com/wanderer-labs/blockvault/internal/vault"
	"github.com/wanderer-labs/blockvault/internal/version"
)

func main() {
	var configPath string
	var showVersion bool
	var initDataLen int
	var initMaxSlots int

	pflag.StringVar(&configPath, "config", "", "Path to config JSON file (defaults built in if omitted)")
	pflag.BoolVar(&showVersion, "version", false, "Print version information and exit")
	pflag.IntVar(&initDataLen, "data-len", config.DefaultDataLenByte, "Data region size in bytes, for `init`")
	pflag.IntVar(&initMaxSlots, "max-slots", config.DefaultMaxSlots, "Directory table slot count, for `init`")
	pflag.Parse()

	if showVersion {
		fmt.Println(version.Get().String())
		return
	}

	args := pflag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	cmd := args[0]
	rest := args[1:]

	if cmd == "init" {
		runInit(cfg, initDataLen, initMaxSlots)
		return
	}

	store, err := vault.Open(cfg.DataPath, cfg.DirPath, cfg.HashPath, cfg.NProcessors, nil)
	if err != nil {
		fatal("open volume: %v", err)
	}
	defer store.Close()

	switch cmd {
	case "create":
		runCreate(store, rest)
	case "write":
		runWrite(store, rest)
	case "read":
		runRead(store, rest)
	case "resize":
		runResize(store, rest)
	case "rm":
		runRm(store, rest)
	case "mv":
		runMv(store, rest)
	case "repack":
		store.Repack()
	case "ls":
		runLs(store)
	case "verify":
		runVerify(store)
	case "stat":
		runStat(store, rest)
	default:
		usage()
		os.Exit(2)
	}
}

func runInit(cfg config.Config, dataLen, maxSlots int) {
	layout, err := vault.CreateVolumeFiles(cfg.DataPath, cfg.DirPath, cfg.HashPath, dataLen, maxSlots)
	if err != nil {
		fatal("init volume: %v", err)
	}
	fmt.Printf("created volume: data=%d dir=%d hash=%d leaves=%d\n", layout.DataLen, layout.DirLen, layout.HashLen, layout.Leaves)
}

func runCreate(store *vault.Store, args []string) {
	if len(args) < 2 {
		fatal("usage: create <name> <length>")
	}
	length, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fatal("invalid length %q: %v", args[1], err)
	}
	code := store.CreateFile(args[0], uint32(length))
	if code != vault.CodeOK {
		fatal("create_file returned %d", code)
	}
}

func runWrite(store *vault.Store, args []string) {
	if len(args) < 3 {
		fatal("usage: write <name> <offset> <data>")
	}
	off, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fatal("invalid offset %q: %v", args[1], err)
	}
	data := []byte(args[2])
	code := store.WriteFile(args[0], uint32(off), uint32(len(data)), data)
	if code != vault.CodeOK {
		fatal("write_file returned %d", code)
	}
}

func runRead(store *vault.Store, args []string) {
	if len(args) < 3 {
		fatal("usage: read <name> <offset> <count>")
	}
	off, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fatal("invalid offset %q: %v", args[1], err)
	}
	count, err := strconv.ParseUint(args[2], 10, 32)
	if err != nil {
		fatal("invalid count %q: %v", args[2], err)
	}
	out := make([]byte, count)
	code := store.ReadFile(args[0], uint32(off), uint32(count), out)
	if code != vault.CodeOK {
		fatal("read_file returned %d", code)
	}
	os.Stdout.Write(out)
}

func runResize(store *vault.Store, args []string) {
	if len(args) < 2 {
		fatal("usage: resize <name> <new_len>")
	}
	newLen, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		fatal("invalid length %q: %v", args[1], err)
	}
	code := store.ResizeFile(args[0], uint32(newLen))
	if code != vault.CodeOK {
		fatal("resize_file returned %d", code)
	}
}

func runRm(store *vault.Store, args []string) {
	if len(args) < 1 {
		fatal("usage: rm <name>")
	}
	code := store.DeleteFile(args[0])
	if code != vault.CodeOK {
		fatal("delete_file returned %d", code)
	}
}

func runMv(store *vault.Store, args []string) {
	if len(args) < 2 {
		fatal("usage: mv <old_name> <new_name>")
	}
	code := store.RenameFile(args[0], args[1])
	if code != vault.CodeOK {
		fatal("rename_file returned %d", code)
	}
}

func runLs(store *vault.Store) {
	for _, f := range store.List() {
		fmt.Printf("%-63s %d\n", f.Name, f.Length)
	}
}

func runVerify(store *vault.Store) {
	bad := store.VerifyAll()
	if len(bad) == 0 {
		fmt.Println("ok")
		return
	}
	for _, name := range bad {
		fmt.Printf("integrity failure: %s\n", name)
	}
	os.Exit(1)
}

func runStat(store *vault.Store, args []string) {
	if len(args) < 1 {
		fatal("usage: stat <name>")
	}
	size := store.FileSize(args[0])
	if size < 0 {
		fatal("file not found: %s", args[0])
	}
	fmt.Printf("%s: %d bytes\n", args[0], size)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: vaultctl [--config path] <init|create|write|read|resize|rm|mv|repack|ls|verify|stat> [args...]")
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "vaultctl: "+format+"\n", args...)
	os.Exit(1)
}
