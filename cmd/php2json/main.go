package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/go-gum/unserialize"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

type options struct {
	pretty bool
	tokens bool
}

func newRootCommand(out io.Writer) *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "php2json [file]",
		Short: "Convert PHP serialize() data to JSON",
		Long: `php2json decodes a blob in PHP's native serialize() format and prints it
as JSON. Input is read from the given file, or from stdin when no file (or
"-") is given. Gzip- and zstd-compressed input is decompressed
transparently.`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args)
			if err != nil {
				return err
			}

			data, err = decompress(data)
			if err != nil {
				return err
			}

			if opts.tokens {
				return dumpTokens(out, data)
			}

			return dumpJSON(out, data, opts.pretty)
		},
	}

	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "indent the JSON output")
	cmd.Flags().BoolVar(&opts.tokens, "tokens", false, "print the raw token stream instead of JSON")

	return cmd
}

func main() {
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}

	return os.ReadFile(args[0])
}

// decompress unwraps gzip or zstd framing, detected by magic bytes. Session
// stores and cache rows routinely hold serialized PHP compressed.
func decompress(data []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0x1f, 0x8b}):
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open gzip input: %w", err)
		}
		defer r.Close()

		return io.ReadAll(r)

	case bytes.HasPrefix(data, []byte{0x28, 0xb5, 0x2f, 0xfd}):
		r, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("open zstd input: %w", err)
		}
		defer r.Close()

		return io.ReadAll(r)
	}

	return data, nil
}

func dumpTokens(out io.Writer, data []byte) error {
	parser := unserialize.NewParser(data)

	for token, err := range parser.Tokens() {
		if err != nil {
			return decodeFailed(err, data)
		}

		fmt.Fprintln(out, token)
	}

	return nil
}

func dumpJSON(out io.Writer, data []byte, pretty bool) error {
	value, err := unserialize.NewDecoder(data).DecodeValue()
	if err != nil {
		return decodeFailed(err, data)
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if pretty {
		var indented bytes.Buffer
		if err := json.Indent(&indented, encoded, "", "  "); err != nil {
			return err
		}

		encoded = indented.Bytes()
	}

	_, err = fmt.Fprintf(out, "%s\n", encoded)
	return err
}

// decodeFailed decorates a decode error with the input bytes around the
// failure offset.
func decodeFailed(err error, data []byte) error {
	pos, ok := unserialize.ErrorPosition(err)
	if !ok {
		return err
	}

	start := max(pos-20, 0)
	end := min(pos+20, len(data))

	return fmt.Errorf("%w (input near offset %d: %q)", err, pos, data[start:end])
}
