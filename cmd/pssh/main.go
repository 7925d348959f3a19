package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	console "github.com/phsym/console-slog"

	"github.com/orajowo/pssh"
	"github.com/orajowo/pssh/cenc"
	"github.com/orajowo/pssh/playready"
)

const usage = `Usage: pssh [-v] <command> [flags] [args]

Commands:
  encode   build a Widevine or PlayReady PSSH box
  decode   print a base64 PSSH box
  data     print base64 inner data of one system
  key      encode or decode a PlayReady content key
  scan     print every PSSH box in an MP4 file
`

var errUsage = errors.New("invalid usage")

type stringList []string

func (l *stringList) String() string { return strings.Join(*l, ",") }

func (l *stringList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if err != errUsage {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("pssh", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	verbose := fs.Bool("v", false, "log debug output")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errUsage
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	log := slog.New(console.NewHandler(stderr, &console.HandlerOptions{
		Level:      level,
		NoColor:    os.Getenv("NO_COLOR") != "",
		TimeFormat: "15:04:05.000",
	}))

	c, err := pssh.New(pssh.WithLogger(log))
	if err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "encode":
		return runEncode(c, rest, stdout, stderr)
	case "decode":
		return runDecode(c, rest, stdout, stderr)
	case "data":
		return runData(c, rest, stdout, stderr)
	case "key":
		return runKey(rest, stdout, stderr)
	case "scan":
		return runScan(c, log, rest, stdout, stderr)
	}
	fs.Usage()
	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func runEncode(c *pssh.Codec, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		kids, keys stringList
		cfg        encodeConfig
		checksum   = true
	)
	configPath := fs.String("config", "", "YAML file with encode settings")
	fs.StringVar(&cfg.System, "system", "", "drm system: widevine or playready")
	fs.Var(&kids, "kid", "hex key id, repeatable")
	fs.Var(&keys, "key", "hex content key for the kid at the same position, repeatable")
	fs.StringVar(&cfg.Algorithm, "algorithm", "", "widevine algorithm (default AESCTR)")
	fs.StringVar(&cfg.ContentID, "content-id", "", "widevine content id")
	fs.StringVar(&cfg.Provider, "provider", "", "widevine provider")
	fs.StringVar(&cfg.TrackType, "track-type", "", "widevine track type")
	fs.StringVar(&cfg.ProtectionScheme, "scheme", "", "widevine protection scheme, e.g. cenc")
	fs.StringVar(&cfg.LicenseURL, "la-url", "", "playready license acquisition url")
	fs.StringVar(&cfg.KeySeed, "seed", "", "playready base64 key seed")
	fs.BoolVar(&cfg.CompatibilityMode, "compat", false, "write a playready 4.0 header")
	fs.BoolVar(&checksum, "checksum", true, "write playready key checksums")
	fs.BoolVar(&cfg.DataOnly, "data-only", false, "print only the inner data")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	cfg.KeyIDs, cfg.Keys = kids, keys
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "checksum" {
			cfg.Checksum = &checksum
		}
	})

	if *configPath != "" {
		base, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		fs.Visit(func(f *flag.Flag) { overrideConfig(base, &cfg, f.Name) })
		cfg = *base
	}

	system, err := pssh.ParseSystem(cfg.System)
	if err != nil {
		return err
	}

	var out string
	switch {
	case system == pssh.Widevine && cfg.DataOnly:
		out, err = c.Widevine().EncodeData(cfg.widevineHeader())
	case system == pssh.Widevine:
		out, err = c.EncodeWidevine(cfg.widevineHeader())
	case system == pssh.PlayReady && cfg.DataOnly:
		out, err = playready.EncodeData(cfg.playReadyHeader())
	case system == pssh.PlayReady:
		out, err = c.EncodePlayReady(cfg.playReadyHeader())
	default:
		return fmt.Errorf("encode supports widevine and playready, not %s", system)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, out)
	return nil
}

// overrideConfig copies the value of one explicitly set flag from src to dst.
func overrideConfig(dst, src *encodeConfig, name string) {
	switch name {
	case "system":
		dst.System = src.System
	case "kid":
		dst.KeyIDs, dst.KeyPairs = src.KeyIDs, nil
	case "key":
		dst.Keys, dst.KeyPairs = src.Keys, nil
	case "algorithm":
		dst.Algorithm = src.Algorithm
	case "content-id":
		dst.ContentID = src.ContentID
	case "provider":
		dst.Provider = src.Provider
	case "track-type":
		dst.TrackType = src.TrackType
	case "scheme":
		dst.ProtectionScheme = src.ProtectionScheme
	case "la-url":
		dst.LicenseURL = src.LicenseURL
	case "seed":
		dst.KeySeed = src.KeySeed
	case "compat":
		dst.CompatibilityMode = src.CompatibilityMode
	case "checksum":
		dst.Checksum = src.Checksum
	case "data-only":
		dst.DataOnly = src.DataOnly
	}
}

func runDecode(c *pssh.Codec, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print JSON instead of the report")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	res, err := c.Decode(strings.TrimSpace(fs.Arg(0)))
	if err != nil {
		return err
	}
	if *asJSON {
		return writeJSON(stdout, res)
	}
	_, err = io.WriteString(stdout, res.Report())
	return err
}

func runData(c *pssh.Codec, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("data", flag.ContinueOnError)
	fs.SetOutput(stderr)
	name := fs.String("system", "", "drm system: widevine or playready")
	protoJSON := fs.Bool("proto", false, "print a widevine header with protobuf JSON field names")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	system, err := pssh.ParseSystem(*name)
	if err != nil {
		return err
	}
	data := strings.TrimSpace(fs.Arg(0))
	if *protoJSON && system == pssh.Widevine {
		raw, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return &cenc.DecodingError{Kind: "widevine data", Input: data, Err: err}
		}
		out, err := c.Widevine().DecodeJSON(raw)
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, string(out))
		return nil
	}
	p, err := c.DecodeData(system, data)
	if err != nil {
		return err
	}
	return writeJSON(stdout, p)
}

func runKey(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: key needs encode or decode", errUsage)
	}
	fs := flag.NewFlagSet("key "+args[0], flag.ContinueOnError)
	fs.SetOutput(stderr)
	switch args[0] {
	case "encode":
		kid := fs.String("kid", "", "hex key id")
		key := fs.String("key", "", "hex content key")
		seed := fs.String("seed", "", "base64 key seed")
		if err := fs.Parse(args[1:]); err != nil {
			return errUsage
		}
		ck, err := playready.EncodeKey(*kid, *key, *seed)
		if err != nil {
			return err
		}
		return writeJSON(stdout, ck)
	case "decode":
		if err := fs.Parse(args[1:]); err != nil || fs.NArg() != 1 {
			return errUsage
		}
		h, err := playready.DecodeKey(fs.Arg(0))
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, h)
		return nil
	}
	return fmt.Errorf("%w: unknown key command %q", errUsage, args[0])
}

func runScan(c *pssh.Codec, log *slog.Logger, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	fs.SetOutput(stderr)
	asJSON := fs.Bool("json", false, "print JSON instead of reports")
	if err := fs.Parse(args); err != nil || fs.NArg() != 1 {
		return errUsage
	}
	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	results, err := c.ScanMP4(f)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		log.Info("no pssh boxes found", "file", fs.Arg(0))
	}
	if *asJSON {
		return writeJSON(stdout, results)
	}
	for _, res := range results {
		if _, err := io.WriteString(stdout, res.Report()); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
