package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"wormillum/internal/models"
)

// Version identifies the build that wrote a protocol file. It is injected at
// link time with -ldflags "-X wormillum/pkg/protocol.Version=...".
var Version = "dev"

// DefaultGridSize is used when a loaded file carries no usable grid size.
var DefaultGridSize = models.GridSize{Width: 21, Height: 100}

type document struct {
	Protocol *protocolNode `yaml:"Protocol"`
}

type protocolNode struct {
	Filename    string         `yaml:"Filename,omitempty"`
	Description string         `yaml:"Description,omitempty"`
	GridSize    *gridNode      `yaml:"GridSize,omitempty"`
	Steps       *[][]pointList `yaml:"Steps"`
}

type gridNode struct {
	Height int `yaml:"height"`
	Width  int `yaml:"width"`
}

// pointList is a polygon's raw vertex sequence, written as a flow list of
// {x, y} pairs.
type pointList []image.Point

func (pl pointList) MarshalYAML() (interface{}, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, pt := range pl {
		seq.Content = append(seq.Content, &yaml.Node{
			Kind:  yaml.MappingNode,
			Style: yaml.FlowStyle,
			Content: []*yaml.Node{
				scalarNode("x"), intNode(pt.X),
				scalarNode("y"), intNode(pt.Y),
			},
		})
	}
	return seq, nil
}

// UnmarshalYAML accepts a list of {x, y} pairs, or the OpenCV sequence
// mapping written by older tools, whose data field is a flat list of
// alternating x and y values.
func (pl *pointList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		out := make(pointList, 0, len(value.Content))
		for i, item := range value.Content {
			var raw struct {
				X *int `yaml:"x"`
				Y *int `yaml:"y"`
			}
			if err := item.Decode(&raw); err != nil {
				return fmt.Errorf("line %d: point %d: %w", item.Line, i, err)
			}
			if raw.X == nil || raw.Y == nil {
				return fmt.Errorf("line %d: point %d: missing x or y", item.Line, i)
			}
			out = append(out, image.Point{X: *raw.X, Y: *raw.Y})
		}
		*pl = out
		return nil
	case yaml.MappingNode:
		var legacy struct {
			Data []int `yaml:"data"`
		}
		if err := value.Decode(&legacy); err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		if legacy.Data == nil || len(legacy.Data)%2 != 0 {
			return fmt.Errorf("line %d: sequence data must hold x,y pairs", value.Line)
		}
		out := make(pointList, 0, len(legacy.Data)/2)
		for i := 0; i < len(legacy.Data); i += 2 {
			out = append(out, image.Point{X: legacy.Data[i], Y: legacy.Data[i+1]})
		}
		*pl = out
		return nil
	}
	return fmt.Errorf("line %d: polygon must be a list of points", value.Line)
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func intNode(v int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprint(v)}
}

// Encode writes p to w: a comment header, then the protocol's metadata and
// its steps in order.
func Encode(w io.Writer, p *Protocol) error {
	steps := make([][]pointList, len(p.Steps))
	for i, m := range p.Steps {
		steps[i] = make([]pointList, len(m))
		for j, poly := range m {
			steps[i][j] = pointList(poly.Points)
		}
	}
	doc := document{Protocol: &protocolNode{
		Filename:    p.Filename,
		Description: p.Description,
		GridSize:    &gridNode{Height: p.GridSize.Height, Width: p.GridSize.Width},
		Steps:       &steps,
	}}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "# Illumination Protocol:")
	fmt.Fprintln(bw, "# Generated by the wormillum protocol library")
	fmt.Fprintf(bw, "# Software Version Information: %s\n", Version)

	enc := yaml.NewEncoder(bw)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return fmt.Errorf("error encoding protocol: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("error encoding protocol: %w", err)
	}
	return bw.Flush()
}

// Decode reads a protocol from r. A missing or non-positive grid size falls
// back to def.
func Decode(r io.Reader, def models.GridSize) (*Protocol, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	// OpenCV writes a non-standard "%YAML:1.0" directive
	if bytes.HasPrefix(data, []byte("%YAML:")) {
		if i := bytes.IndexByte(data, '\n'); i >= 0 {
			data = data[i+1:]
		} else {
			data = nil
		}
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedFile, err)
	}
	if doc.Protocol == nil {
		return nil, fmt.Errorf("%w: no Protocol node", models.ErrMalformedFile)
	}
	node := doc.Protocol
	if node.Steps == nil {
		return nil, fmt.Errorf("%w: no Steps node", models.ErrMalformedFile)
	}

	grid := def
	if g := node.GridSize; g != nil && g.Height > 0 && g.Width > 0 {
		grid = models.GridSize{Width: g.Width, Height: g.Height}
	}

	p := New(grid)
	p.Filename = node.Filename
	p.Description = node.Description
	p.Steps = make([]models.Montage, 0, len(*node.Steps))
	for i, step := range *node.Steps {
		m := make(models.Montage, 0, len(step))
		for j, pts := range step {
			if len(pts) == 0 {
				return nil, fmt.Errorf("%w: step %d polygon %d has no points", models.ErrMalformedFile, i, j)
			}
			m = append(m, models.Polygon{Points: []image.Point(pts), Grid: grid})
		}
		p.Steps = append(p.Steps, m)
	}
	return p, nil
}

// Save writes p to path. An empty path saves to p.Filename.
func Save(p *Protocol, path string) error {
	if path == "" {
		path = p.Filename
	}
	if path == "" {
		return &models.FileError{Op: "save protocol", Path: path, Err: errors.New("no path given")}
	}
	f, err := os.Create(path)
	if err != nil {
		return &models.FileError{Op: "save protocol", Path: path, Err: err}
	}
	if err := Encode(f, p); err != nil {
		f.Close()
		return fmt.Errorf("save protocol %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return &models.FileError{Op: "save protocol", Path: path, Err: err}
	}
	slog.Debug("protocol saved", "path", path, "steps", p.NumSteps(), "grid", p.GridSize.String())
	return nil
}

// Load reads the protocol at path, falling back to DefaultGridSize when the
// file has none.
func Load(path string) (*Protocol, error) {
	return LoadWithGridSize(path, DefaultGridSize)
}

// LoadWithGridSize reads the protocol at path, falling back to def when the
// file has no usable grid size. The returned protocol's Filename is path.
func LoadWithGridSize(path string, def models.GridSize) (*Protocol, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &models.FileError{Op: "load protocol", Path: path, Err: err}
	}
	defer f.Close()

	p, err := Decode(f, def)
	if err != nil {
		return nil, fmt.Errorf("load protocol %s: %w", path, err)
	}
	p.Filename = path

	slog.Debug("protocol loaded", "path", path, "steps", p.NumSteps(), "grid", p.GridSize.String())
	for i, m := range p.Steps {
		slog.Debug("protocol step", "step", i, "polygons", len(m), "points", m.NumPoints())
	}
	return p, nil
}
