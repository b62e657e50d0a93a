package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"wormillum/internal/models"
	"wormillum/pkg/bodyspace"
	"wormillum/pkg/config"
	"wormillum/pkg/protocol"
	"wormillum/pkg/render"
	"wormillum/pkg/server"
	"wormillum/pkg/visualization"
)

const usage = `wormillum renders body-relative illumination protocols into masks.

Usage:
	wormillum [-config wormillum.yml] <command> [flags]

Commands:
	render   render one protocol step against a body estimate
	preview  draw every step in body space
	square   render a rectangle given in body space
	locate   map an image pixel back into body space
	verify   print a summary of a protocol
	serve    expose a protocol over HTTP
	mkproto  write a demonstration protocol
	mkconf   write the default configuration
	version  print the build version
`

func main() {
	configPath := flag.String("config", "wormillum.yml", "Configuration file")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	cleanup, err := initLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer cleanup()

	protocol.DefaultGridSize = cfg.GridSize()

	cmd, args := flag.Arg(0), flag.Args()[1:]
	switch cmd {
	case "render":
		err = runRender(cfg, args)
	case "preview":
		err = runPreview(cfg, args)
	case "square":
		err = runSquare(cfg, args)
	case "locate":
		err = runLocate(cfg, args)
	case "verify":
		err = runVerify(args)
	case "serve":
		err = runServe(cfg, args)
	case "mkproto":
		err = runMkproto(cfg, args)
	case "mkconf":
		err = config.CreateDefaultConfigFile(*configPath)
	case "version":
		fmt.Println(protocol.Version)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		cleanup()
		os.Exit(1)
	}
}

// loadEstimate reads the estimate at path, or synthesizes a gently bending
// body filling the middle of the mask when path is empty.
func loadEstimate(path string, grid models.GridSize, size image.Point) (*models.BodyEstimate, error) {
	if path != "" {
		return bodyspace.LoadEstimate(path)
	}
	w, h := float64(size.X), float64(size.Y)
	return bodyspace.Synthetic(bodyspace.Shape{
		Head:       image.Point{X: int(0.2 * w), Y: size.Y / 2},
		Length:     0.6 * w,
		HalfWidth:  0.06 * h,
		Amplitude:  0.08 * h,
		Wavelength: 0.6 * w,
	}, grid.Height)
}

func newRenderer(cfg *config.Config, grid models.GridSize, flip bool) *render.Renderer {
	r := render.NewRenderer(grid, flip || cfg.Render.Flip)
	r.Threshold = uint8(cfg.Render.Threshold)
	return r
}

func runRender(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	protoPath := fs.String("protocol", "", "Protocol YAML file")
	step := fs.Int("step", 0, "Protocol step to render")
	estPath := fs.String("estimate", "", "Body estimate YAML file (default: synthetic body)")
	out := fs.String("out", "mask.png", "Output mask (.png, .jpg or .fits)")
	all := fs.String("all", "", "Render every step into this directory instead of -out")
	targetName := fs.String("target", "projector", "Render target: camera or projector")
	overlay := fs.String("overlay", "", "Also write the mask blended with the body outline here")
	flip := fs.Bool("flip", false, "Mirror the pattern across the centerline")
	invert := fs.Bool("invert", false, "Invert the mask after rendering")
	flood := fs.Bool("flood", false, "Illuminate everything, ignoring the protocol")
	fs.Parse(args)

	if *protoPath == "" && !*flood {
		return errors.New("render: -protocol is required")
	}
	target, err := render.ParseTarget(*targetName)
	if err != nil {
		return err
	}

	size := image.Point{X: cfg.Render.Width, Y: cfg.Render.Height}
	frames := render.NewFrames(size, render.TargetCamera, render.TargetProjector)
	mask, err := frames.Get(target)
	if err != nil {
		return err
	}

	var est *models.BodyEstimate
	if *flood {
		render.Flood(mask)
	} else {
		p, err := protocol.Load(*protoPath)
		if err != nil {
			return err
		}
		if est, err = loadEstimate(*estPath, p.GridSize, size); err != nil {
			return err
		}
		r := newRenderer(cfg, p.GridSize, *flip)

		if *all != "" {
			return visualization.SaveStepSequence(p, r, est, size, *all, filepath.Ext(*out))
		}

		start := time.Now()
		if err := frames.RenderStep(r, target, p, *step, est); err != nil {
			return err
		}
		slog.Info("rendered step", "step", *step, "target", target.String(), "elapsed", time.Since(start))
	}

	stats := visualization.Stats(mask)
	slog.Info("mask", "lit", stats.Lit, "coverage", stats.Coverage, "bounds", stats.Bounds.String())

	if *invert {
		render.Invert(mask)
	}
	if err := visualization.SaveMask(mask, *out); err != nil {
		return err
	}
	if *overlay != "" {
		if err := visualization.SaveMask(visualization.Overlay(mask, est, 0.4), *overlay); err != nil {
			return err
		}
	}
	fmt.Printf("Mask saved to: %s\n", *out)
	return nil
}

func runPreview(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("preview", flag.ExitOnError)
	protoPath := fs.String("protocol", "", "Protocol YAML file")
	outDir := fs.String("out", "preview", "Directory for preview images")
	ext := fs.String("ext", "png", "Image format")
	flip := fs.Bool("flip", false, "Mirror the pattern across the centerline")
	fs.Parse(args)

	p, err := protocol.Load(*protoPath)
	if err != nil {
		return err
	}
	if err := visualization.SavePreviewSequence(p, newRenderer(cfg, p.GridSize, *flip), *outDir, *ext); err != nil {
		return err
	}
	fmt.Printf("Saved %d previews to: %s\n", p.NumSteps(), *outDir)
	return nil
}

func runSquare(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("square", flag.ExitOnError)
	x := fs.Int("x", cfg.Grid.Width/2, "Slider x position, 0 to grid width")
	y := fs.Int("y", cfg.Grid.Height/2, "Row of the rectangle's centre")
	rx := fs.Int("rx", 2, "Lateral half-extent")
	ry := fs.Int("ry", 5, "Row half-extent")
	estPath := fs.String("estimate", "", "Body estimate YAML file (default: synthetic body)")
	out := fs.String("out", "square.png", "Output mask")
	flip := fs.Bool("flip", false, "Mirror the pattern across the centerline")
	fs.Parse(args)

	grid := cfg.GridSize()
	size := image.Point{X: cfg.Render.Width, Y: cfg.Render.Height}
	est, err := loadEstimate(*estPath, grid, size)
	if err != nil {
		return err
	}

	scratch := models.NewScratch()
	defer scratch.Reset()
	origin := protocol.SliderToBody(image.Point{X: *x, Y: *y}, grid)
	m := protocol.SquareMontage(origin, models.GridSize{Width: *rx, Height: *ry}, grid, scratch)

	mask := image.NewGray(image.Rectangle{Max: size})
	if err := newRenderer(cfg, grid, *flip).Montage(mask, m, est); err != nil {
		return err
	}
	return visualization.SaveMask(mask, *out)
}

func runLocate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("locate", flag.ExitOnError)
	x := fs.Int("x", 0, "Image column")
	y := fs.Int("y", 0, "Image row")
	estPath := fs.String("estimate", "", "Body estimate YAML file (default: synthetic body)")
	flip := fs.Bool("flip", false, "Mirror the lateral offset")
	protoPath := fs.String("protocol", "", "Also report whether this protocol's step lights the point")
	step := fs.Int("step", 0, "Protocol step checked with -protocol")
	fs.Parse(args)

	grid := cfg.GridSize()
	var p *protocol.Protocol
	if *protoPath != "" {
		var err error
		if p, err = protocol.Load(*protoPath); err != nil {
			return err
		}
		grid = p.GridSize
	}
	size := image.Point{X: cfg.Render.Width, Y: cfg.Render.Height}
	est, err := loadEstimate(*estPath, grid, size)
	if err != nil {
		return err
	}
	loc, err := bodyspace.NewLocator(est, grid)
	if err != nil {
		return err
	}
	pt := loc.Locate(image.Point{X: *x, Y: *y}, *flip || cfg.Render.Flip)
	fmt.Printf("(%d,%d) -> body x=%d row=%d\n", *x, *y, pt.X, pt.Y)

	if p != nil {
		m, err := p.Step(*step)
		if err != nil {
			return err
		}
		fmt.Printf("Step %d illuminates it: %v\n", *step, m.Contains(pt))
	}
	return nil
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	protoPath := fs.String("protocol", "", "Protocol YAML file")
	fs.Parse(args)

	p, err := protocol.Load(*protoPath)
	if err != nil {
		return err
	}
	s := p.Summary()
	fmt.Println("========== VERIFYING PROTOCOL ==========")
	fmt.Printf("Description: %s\n", s.Description)
	fmt.Printf("Filename: %s\n", s.Filename)
	fmt.Printf("Grid: %dx%d\n", s.Width, s.Height)
	fmt.Printf("Total number of steps: %d\n", len(s.Steps))
	for i, st := range s.Steps {
		fmt.Printf("Step %d: %d polygon(s), points %v\n", i, st.Polygons, st.Points)
	}
	fmt.Println("========================================")
	return p.Validate()
}

func runServe(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	protoPath := fs.String("protocol", "", "Protocol YAML file")
	addr := fs.String("addr", cfg.Server.Addr, "Listen address")
	fs.Parse(args)

	p, err := protocol.Load(*protoPath)
	if err != nil {
		return err
	}
	size := image.Point{X: cfg.Render.Width, Y: cfg.Render.Height}
	return server.New(p, size, uint8(cfg.Render.Threshold), nil).ListenAndServe(*addr)
}

// runMkproto writes a three-step demonstration protocol: the right side of
// the anterior third, the left side of the posterior third, then both.
func runMkproto(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("mkproto", flag.ExitOnError)
	out := fs.String("out", "protocol.yml", "Output protocol file")
	fs.Parse(args)

	grid := cfg.GridSize()
	p := protocol.New(grid)
	p.SetFilename(*out)
	p.SetDescription("Demonstration: anterior right, posterior left, then both.")

	r := grid.Width / 2
	third := grid.Height / 3
	anterior := models.NewPolygon(grid,
		image.Point{X: 0, Y: 0}, image.Point{X: r, Y: 0},
		image.Point{X: r, Y: third}, image.Point{X: 0, Y: third})
	posterior := models.NewPolygon(grid,
		image.Point{X: -r, Y: 2 * third}, image.Point{X: 0, Y: 2 * third},
		image.Point{X: 0, Y: grid.Height - 1}, image.Point{X: -r, Y: grid.Height - 1})

	for _, m := range []models.Montage{{anterior}, {posterior}, {anterior, posterior}} {
		if _, err := p.AppendStep(m); err != nil {
			return err
		}
	}
	if err := protocol.Save(p, *out); err != nil {
		return err
	}
	fmt.Printf("Protocol saved to: %s\n", *out)
	return nil
}
