package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
)

// runSessionCreate uploads an image and prints the new session as JSON.
func runSessionCreate(ctx context.Context, args []string) int {
	var (
		common commonFlags
		image  string
		expiry int
	)
	fs := flag.NewFlagSet("session create", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	fs.StringVar(&image, "image", "", "Image file to keep on the server")
	fs.IntVar(&expiry, "expiry", 0, "Seconds until the server drops the session (0 = server default)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	if image == "" {
		fmt.Fprintln(stderr, "Input Image file is missing")
		return -1
	}
	api, ok := sessionAPI(common, fs)
	if !ok {
		return -1
	}
	s, err := api.CreateSession(ctx, image, expiry)
	if err != nil {
		reportError(err)
		return -1
	}
	return printJSON(s)
}

// runSessionGet prints the session with the given id.
func runSessionGet(ctx context.Context, args []string) int {
	var common commonFlags
	fs := flag.NewFlagSet("session get", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	id, ok := parseSessionID(fs, args)
	if !ok {
		return -1
	}
	api, ok := sessionAPI(common, fs)
	if !ok {
		return -1
	}
	s, err := api.GetSession(ctx, id)
	if err != nil {
		reportError(err)
		return -1
	}
	return printJSON(s)
}

// runSessionClose removes the session with the given id.
func runSessionClose(ctx context.Context, args []string) int {
	var common commonFlags
	fs := flag.NewFlagSet("session close", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common.register(fs)
	id, ok := parseSessionID(fs, args)
	if !ok {
		return -1
	}
	api, ok := sessionAPI(common, fs)
	if !ok {
		return -1
	}
	if err := api.CloseSession(ctx, id); err != nil {
		reportError(err)
		return -1
	}
	fmt.Fprintf(stdout, "Session %s closed\n", id)
	return 0
}

// parseSessionID accepts the id either before or after the flags.
func parseSessionID(fs *flag.FlagSet, args []string) (string, bool) {
	var id string
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		id, args = args[0], args[1:]
	}
	if err := fs.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, err.Error())
		}
		return "", false
	}
	if id == "" && fs.NArg() > 0 {
		id = fs.Arg(0)
	}
	if id == "" {
		fmt.Fprintln(stderr, "Session ID is required")
		return "", false
	}
	return id, true
}

func sessionAPI(common commonFlags, fs *flag.FlagSet) (API, bool) {
	cfg, err := common.resolve(visited(fs))
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return nil, false
	}
	api, err := newAPI(cfg)
	if err != nil {
		reportError(err)
		return nil, false
	}
	return api, true
}

func printJSON(v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	return 0
}
