// dense - DENSE codec CLI tool
//
// Usage:
//
//	dense parse [file]                   Validate wire text, report the tree shape
//	dense fmt [options] [file]           Render wire text in the human pretty form
//	dense machine [file]                 Normalize wire text to canonical form
//	dense compact [options] [file]       Dictionary-compact wire text for LLM prompts
//	dense expand [file]                  Reverse a compact pass
//	dense encode [options] [file]        Encode wire text to the binary slot form
//	dense decode [file]                  Decode binary slot form back to wire text
//	dense stats [options] [file]         Report token and byte counts per form
//	dense version                        Print version info
//
// If no file is given, reads from stdin.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/densefmt/dense/config"
	"github.com/densefmt/dense/dense"
	"github.com/densefmt/dense/slot"
)

const version = "0.1.0"

var log *zap.SugaredLogger

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	// Flags shared across subcommands
	ascii := false
	box := false
	color := false
	verbose := false
	indent := 0
	minOccurs := 0
	minLength := 0
	tokenizer := ""
	compress := ""
	configPath := ""
	fileArg := ""
	for _, arg := range os.Args[2:] {
		switch {
		case arg == "--ascii":
			ascii = true
		case arg == "--box":
			box = true
		case arg == "--color":
			color = true
		case arg == "--verbose", arg == "-v":
			verbose = true
		case strings.HasPrefix(arg, "--indent="):
			if n, err := parseIntArg(arg, "--indent="); err == nil {
				indent = n
			}
		case strings.HasPrefix(arg, "--min-occurs="):
			if n, err := parseIntArg(arg, "--min-occurs="); err == nil {
				minOccurs = n
			}
		case strings.HasPrefix(arg, "--min-length="):
			if n, err := parseIntArg(arg, "--min-length="); err == nil {
				minLength = n
			}
		case strings.HasPrefix(arg, "--tokenizer="):
			tokenizer = strings.TrimPrefix(arg, "--tokenizer=")
		case strings.HasPrefix(arg, "--compress="):
			compress = strings.TrimPrefix(arg, "--compress=")
		case strings.HasPrefix(arg, "--config="):
			configPath = strings.TrimPrefix(arg, "--config=")
		default:
			if !strings.HasPrefix(arg, "-") && arg != "-" {
				fileArg = arg
			}
		}
	}

	log = newLogger(verbose)
	defer log.Sync()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal("load config: %v", err)
	}

	// Flags override file config
	if ascii {
		cfg.Formatter.Unicode = false
	}
	if box {
		cfg.Formatter.BoxDrawing = true
	}
	if color {
		cfg.Formatter.Color = true
	}
	if indent > 0 {
		cfg.Formatter.Indent = indent
	}
	if minOccurs > 0 {
		cfg.Compactor.MinOccurs = minOccurs
	}
	if minLength > 0 {
		cfg.Compactor.MinLength = minLength
	}
	if tokenizer != "" {
		cfg.Compactor.Tokenizer = tokenizer
	}

	var input io.Reader = os.Stdin
	if fileArg != "" {
		f, err := os.Open(fileArg)
		if err != nil {
			fatal("open file: %v", err)
		}
		defer f.Close()
		input = f
	}

	switch cmd {
	case "parse":
		cmdParse(input)
	case "fmt":
		cmdFmt(input, cfg)
	case "machine":
		cmdMachine(input)
	case "compact":
		cmdCompact(input, cfg)
	case "expand":
		cmdExpand(input)
	case "encode":
		cmdEncode(input, compress)
	case "decode":
		cmdDecode(input)
	case "stats":
		cmdStats(input, cfg, compress)
	case "version", "--version":
		fmt.Printf("dense %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprint(os.Stderr, `dense - DENSE codec CLI tool

Usage:
  dense parse [file]                 Validate wire text, report the tree shape
  dense fmt [options] [file]         Render wire text in the human pretty form
  dense machine [file]               Normalize wire text to canonical form
  dense compact [options] [file]     Dictionary-compact wire text for LLM prompts
  dense expand [file]                Reverse a compact pass
  dense encode [options] [file]      Encode wire text to the binary slot form
  dense decode [file]                Decode binary slot form back to wire text
  dense stats [options] [file]       Report token and byte counts per form
  dense version                      Print version info

Options:
  --ascii             Render booleans as yes/no instead of the check marks
  --box               Draw table rules with box characters
  --color             Style output with ANSI colors
  --indent=N          Spaces per nesting level (default: 2)
  --min-occurs=N      Minimum phrase occurrences for compaction (default: 2)
  --min-length=N      Minimum phrase length for compaction (default: 4)
  --tokenizer=NAME    Token oracle: heuristic, cl100k_base, o200k_base, ...
  --compress=LEVEL    Binary body compression: fast, default, high
  --config=PATH       Load settings from a TOML file
  --verbose, -v       Log diagnostics to stderr

If no file is given, reads from stdin.

Examples:
  printf 'name:Alice\nage:30\nactive:+\n' | dense fmt
  # name   : Alice
  # age    : 30
  # active : ✓

  dense compact --tokenizer=cl100k_base prompt.dense > prompt.min
  dense encode --compress=high data.dense > data.bin
  dense decode data.bin
`)
}

// cmdParse validates the input and summarizes the resulting tree.
func cmdParse(r io.Reader) {
	v := mustParse(r)
	fields, _ := v.AsObject()
	fmt.Printf("ok: %d top-level keys\n", len(fields))
	for _, f := range fields {
		switch f.Value.Kind() {
		case dense.KindTable:
			tbl, _ := f.Value.AsTable()
			fmt.Printf("  %s: table, %d columns x %d rows\n", f.Key, len(tbl.Columns), len(tbl.Rows))
		case dense.KindArray, dense.KindObject:
			fmt.Printf("  %s: %s, %d entries\n", f.Key, f.Value.Kind(), f.Value.Len())
		default:
			fmt.Printf("  %s: %s\n", f.Key, f.Value.Kind())
		}
	}
}

// cmdFmt renders the human pretty form.
func cmdFmt(r io.Reader, cfg config.Config) {
	v := mustParse(r)
	out, err := dense.FormatHumanWithOptions(v, dense.HumanOptions{
		Unicode:    cfg.Formatter.Unicode,
		BoxDrawing: cfg.Formatter.BoxDrawing,
		KeyPadding: cfg.Formatter.KeyPadding,
		Color:      cfg.Formatter.Color,
		Indent:     cfg.Formatter.Indent,
	})
	if err != nil {
		fatal("render: %v", err)
	}
	fmt.Print(out)
}

// cmdMachine normalizes to canonical wire text.
func cmdMachine(r io.Reader) {
	v := mustParse(r)
	fmt.Print(dense.EmitMachine(v))
}

// cmdCompact runs the dictionary compactor over canonical wire text.
func cmdCompact(r io.Reader, cfg config.Config) {
	data := mustReadAll(r)

	counter, err := dense.NewTokenCounter(cfg.Compactor.Tokenizer)
	if err != nil {
		fatal("tokenizer: %v", err)
	}
	c := dense.NewCompactor(counter, dense.CompactorOpts{
		MinLength: cfg.Compactor.MinLength,
		MinOccurs: cfg.Compactor.MinOccurs,
		MaxLength: cfg.Compactor.MaxLength,
	})

	out, err := dense.FormatMachine(string(data), dense.WithCompactor(c))
	if err != nil {
		fatal("compact: %v", err)
	}
	os.Stdout.Write(out)

	before, _ := counter.Count(string(data))
	after, _ := counter.Count(string(out))
	log.Infow("compacted", "tokens_before", before, "tokens_after", after,
		"bytes_before", len(data), "bytes_after", len(out))
}

// cmdExpand reverses a compact pass.
func cmdExpand(r io.Reader) {
	data := mustReadAll(r)
	out, err := dense.Expand(string(data))
	if err != nil {
		fatal("expand: %v", err)
	}
	fmt.Print(out)
}

// cmdEncode lowers wire text to the binary slot container.
func cmdEncode(r io.Reader, compress string) {
	v := mustParse(r)

	level, err := compressionLevel(compress)
	if err != nil {
		fatal("%v", err)
	}
	data, err := slot.EncodeWithOptions(v, slot.EncodeOptions{Compression: level})
	if err != nil {
		fatal("encode: %v", err)
	}
	os.Stdout.Write(data)
	log.Infow("encoded", "bytes", len(data), "compression", compress)
}

// cmdDecode reads a binary slot container and prints canonical wire text.
func cmdDecode(r io.Reader) {
	data := mustReadAll(r)
	v, err := slot.Decode(data)
	if err != nil {
		fatal("decode: %v", err)
	}
	fmt.Print(dense.EmitMachine(v))
}

// cmdStats reports byte and token sizes across all three forms.
func cmdStats(r io.Reader, cfg config.Config, compress string) {
	data := mustReadAll(r)
	v, err := dense.Parse(data)
	if err != nil {
		fatal("%v", err)
	}

	counter, err := dense.NewTokenCounter(cfg.Compactor.Tokenizer)
	if err != nil {
		fatal("tokenizer: %v", err)
	}

	canonical := dense.EmitMachine(v)
	human, err := dense.FormatHuman(v)
	if err != nil {
		fatal("render: %v", err)
	}

	c := dense.NewCompactor(counter, dense.CompactorOpts{
		MinLength: cfg.Compactor.MinLength,
		MinOccurs: cfg.Compactor.MinOccurs,
		MaxLength: cfg.Compactor.MaxLength,
	})
	compacted, err := c.Compact(canonical)
	if err != nil {
		fatal("compact: %v", err)
	}

	level, err := compressionLevel(compress)
	if err != nil {
		fatal("%v", err)
	}
	binary, err := slot.EncodeWithOptions(v, slot.EncodeOptions{Compression: level})
	if err != nil {
		fatal("encode: %v", err)
	}

	report := func(label, text string) {
		tokens, err := counter.Count(text)
		if err != nil {
			fatal("count: %v", err)
		}
		fmt.Printf("%-10s %8d bytes  %8d tokens\n", label, len(text), tokens)
	}
	report("input", string(data))
	report("canonical", canonical)
	report("compact", compacted)
	report("human", human)
	fmt.Printf("%-10s %8d bytes\n", "binary", len(binary))
}

func compressionLevel(name string) (slot.CompressionLevel, error) {
	switch name {
	case "":
		return slot.CompressionNone, nil
	case "fast":
		return slot.CompressionFast, nil
	case "default":
		return slot.CompressionDefault, nil
	case "high":
		return slot.CompressionHigh, nil
	}
	return slot.CompressionNone, fmt.Errorf("unknown compression level %q (fast, default, high)", name)
}

func mustReadAll(r io.Reader) []byte {
	data, err := io.ReadAll(r)
	if err != nil {
		fatal("read input: %v", err)
	}
	return data
}

func mustParse(r io.Reader) *dense.Value {
	v, err := dense.Parse(mustReadAll(r))
	if err != nil {
		fatal("%v", err)
	}
	return v
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "dense: "+format+"\n", args...)
	os.Exit(1)
}

// newLogger builds the stderr diagnostics logger. Non-verbose runs only
// surface warnings and errors.
func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "dense: logger: %v\n", err)
		os.Exit(1)
	}
	return logger.Sugar()
}

// parseIntArg extracts an integer from a flag like "--indent=4"
func parseIntArg(arg, prefix string) (int, error) {
	val := strings.TrimPrefix(arg, prefix)
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, err
	}
	return n, nil
}
