package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"time"

	"aiaa/internal/catalog"
	"aiaa/internal/request"
	"aiaa/pkg/types"
)

const dextr3dUsage = `Usage:: <COMMAND> <OPTIONS>
  |-h        (Help) Print this information                                                |
  |-server   Server URI {default: http://0.0.0.0:5000}                                    |
 *|-label    Input Label Name  [either -label or -model is required]                      |
 *|-model    Model Name        [either -label or -model is required]                      |
 *|-points   3D Points [[x,y,z]+]     Example: [[70,172,86],...,[105,161,180]]            |
  |-pad      Padding Size to be used {default: 20.0}                                      |
  |-roi      ROI Image Size to be used for inference {default: 128x128x128}               |
 *|-image    Input Image File                                                             |
 *|-session  Session ID (crop should be false)                                            |
  |-crop     PreProcess Input (crop) before sending it to AIAA                            |
 *|-output   Output Image File                                                            |
  |-timeout  Timeout In Seconds, must be > 0 {default: 60}                               |
  |-ts       Print API Latency                                                            |
  |-config   Config File (.yaml|.json|.toml) {default: $AIAA_CONFIG}                      |
  |-api-key  Bearer Token for the server {default: $AIAA_API_KEY}                         |
  |-catalog  Resolve -label from a local catalog file instead of the server               |
  |-log-level  debug|info|warn|error {default: warn}                                      |
`

// Dextr3DArgs is the parsed dextr3d command line before config resolution.
type Dextr3DArgs struct {
	Options request.Options
	Common  commonFlags
	Catalog string
	// Set holds the names of flags given explicitly.
	Set map[string]bool
}

// ParseOptionsWith parses dextr3d flags using the provided FlagSet. Flags
// use single-dash long names (-label, -points); -flag=value and
// --flag also work.
func ParseOptionsWith(fs *flag.FlagSet, args []string) (Dextr3DArgs, error) {
	a := Dextr3DArgs{Options: request.DefaultOptions()}
	o := &a.Options
	a.Common.register(fs)
	fs.StringVar(&o.Label, "label", "", "Input label name")
	fs.StringVar(&o.Model, "model", "", "Model name")
	fs.StringVar(&o.Points, "points", "", "3D points [[x,y,z]+]")
	fs.Float64Var(&o.Pad, "pad", request.DefaultPad, "Padding size")
	fs.StringVar(&o.ROI, "roi", request.DefaultROI, "ROI image size")
	fs.StringVar(&o.Image, "image", "", "Input image file")
	fs.StringVar(&o.Session, "session", "", "Session ID")
	fs.BoolVar(&o.Crop, "crop", false, "Pre-process (crop) input before sending")
	fs.StringVar(&o.Output, "output", "", "Output image file")
	fs.BoolVar(&o.PrintLatency, "ts", false, "Print API latency")
	fs.StringVar(&a.Catalog, "catalog", "", "Local model catalog file")
	if err := fs.Parse(args); err != nil {
		return a, err
	}
	if fs.NArg() > 0 {
		return a, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	a.Set = visited(fs)
	o.PadSet = a.Set["pad"]
	o.ROISet = a.Set["roi"]
	return a, nil
}

// catalogSource resolves models from a catalog file instead of the server.
type catalogSource struct{ c *catalog.Catalog }

func (s catalogSource) Models(context.Context) ([]types.Model, error) { return s.c.Models(), nil }

// Model returns the zero Model when name is absent, which reads as not found.
func (s catalogSource) Model(_ context.Context, name string) (types.Model, error) {
	m, _ := s.c.Get(name)
	return m, nil
}

func newDextr3DFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("dextr3d", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// runDextr3D executes one DEXTR3D request and returns the exit code: 0 on
// success or help, the inference status on inference failure, -1 otherwise.
func runDextr3D(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(stdout, dextr3dUsage)
		return 0
	}
	for _, arg := range args {
		if isHelpFlag(arg) {
			fmt.Fprint(stdout, dextr3dUsage)
			return 0
		}
	}
	a, err := ParseOptionsWith(newDextr3DFlagSet(), args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(stdout, dextr3dUsage)
			return 0
		}
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	cfg, err := a.Common.resolve(a.Set)
	if err != nil {
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	o := a.Options
	o.Server = cfg.Server
	o.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	if a.Catalog == "" {
		a.Catalog = cfg.CatalogFile
	}
	log := newLogger(cfg.LogLevel)

	// Local checks first: no client, no network.
	if err := request.Validate(o); err != nil {
		fmt.Fprintln(stderr, err.Error())
		return -1
	}
	api, err := newAPI(cfg)
	if err != nil {
		reportError(err)
		return -1
	}
	var src request.ModelSource = api
	if a.Catalog != "" {
		c, err := catalog.LoadFile(a.Catalog)
		if err != nil {
			fmt.Fprintln(stderr, err.Error())
			return -1
		}
		src = catalogSource{c: c}
	}

	rc, err := request.Build(ctx, src, o)
	if err != nil {
		reportError(err)
		return request.ExitCode(err)
	}
	log.Debug().Str("model", rc.Model.Name).Float64("pad", rc.Model.Padding).Str("roi", rc.Model.ROI.String()).
		Int("points", rc.Points.Len()).Bool("crop", rc.PreProcess).Msg("dispatching dextr3d")

	res, err := request.Dispatch(ctx, api, rc)
	if err != nil && request.KindOf(err) != request.KindInference {
		reportError(err)
		return -1
	}
	status := " (SUCCESS) "
	if res.Status != 0 {
		status = " (FAILED) "
	}
	fmt.Fprintf(stdout, "Return Code: %d%s\n", res.Status, status)
	if o.PrintLatency {
		fmt.Fprintf(stdout, "API Latency (in milli sec): %d\n", res.Latency.Milliseconds())
	}
	return res.Status
}
