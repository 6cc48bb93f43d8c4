package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"aiaa/internal/catalog"
	"aiaa/internal/client"
	"aiaa/pkg/types"
)

type modelsArgs struct {
	Common commonFlags
	Label  string
	Type   string
	Save   string
	Format string
}

func parseModelsArgs(fs *flag.FlagSet, args []string) (modelsArgs, map[string]bool, error) {
	var a modelsArgs
	a.Common.register(fs)
	fs.StringVar(&a.Label, "label", "", "Only models carrying this label")
	fs.StringVar(&a.Type, "type", "", "Only models of this type: segmentation|annotation|classification|deepgrow|pipeline|others")
	fs.StringVar(&a.Save, "save", "", "Also write the listed models to a catalog file (.yaml|.json|.toml)")
	fs.StringVar(&a.Format, "format", "table", "Output format: table|yaml|json")
	if err := fs.Parse(args); err != nil {
		return a, nil, err
	}
	if fs.NArg() > 0 {
		return a, nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return a, visited(fs), nil
}

// runModels lists the server catalog, optionally filtered and saved.
func runModels(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.SetOutput(stderr)
	a, set, err := parseModelsArgs(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	mt, err := types.ParseModelType(a.Type)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	cfg, err := a.Common.resolve(set)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	api, err := newAPI(cfg)
	if err != nil {
		reportError(err)
		return -1
	}
	models, err := api.QueryModels(ctx, client.ModelQuery{Label: a.Label, Type: mt})
	if err != nil {
		reportError(err)
		return -1
	}
	// Servers may ignore the query; filter again locally.
	models = catalog.New(models).Filter(a.Label, mt)

	if err := writeModels(stdout, models, a.Format); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	if a.Save != "" {
		if err := catalog.New(models).SaveFile(a.Save); err != nil {
			fmt.Fprintln(stderr, err.Error())
			return -1
		}
	}
	return 0
}

func writeModels(w io.Writer, models []types.Model, format string) error {
	switch strings.ToLower(format) {
	case "", "table":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tTYPE\tLABELS\tPAD\tROI\tVERSION")
		for _, m := range models {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%g\t%s\t%s\n", m.Name, m.Type, strings.Join(m.Labels, ","), m.Padding, m.ROI, m.Version)
		}
		return tw.Flush()
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string][]types.Model{"models": models}); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		if models == nil {
			models = []types.Model{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(models)
	default:
		return fmt.Errorf("unknown format %q (want table|yaml|json)", format)
	}
}
