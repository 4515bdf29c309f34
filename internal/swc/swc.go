// Package swc reads SWC morphology files into traced paths.
//
// Each line holds "id type x y z radius parent"; parent -1 marks a root.
// Branches become separate paths whose first node is the fork node, so no
// segment is lost at a branch point.
package swc

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/sholl"
)

// Node is one SWC sample.
type Node struct {
	ID     int
	Type   sholl.SWCType
	Pos    sholl.Point3D
	Radius float64
	Parent int
}

// Tree is a parsed SWC reconstruction. It satisfies sholl.Structure.
type Tree struct {
	Nodes       []Node
	label       string
	paths       []sholl.TracedPath
	calibration *sholl.Calibration
}

var _ sholl.Structure = (*Tree)(nil)

// TracedPaths implements sholl.Structure.
func (t *Tree) TracedPaths() []sholl.TracedPath { return t.paths }

// Label implements sholl.Structure.
func (t *Tree) Label() string { return t.label }

// SpatialCalibration implements sholl.Structure.
func (t *Tree) SpatialCalibration() *sholl.Calibration { return t.calibration }

// SetCalibration attaches a spatial calibration.
func (t *Tree) SetCalibration(c *sholl.Calibration) { t.calibration = c }

// Load reads the SWC file at path; the label is the file's base name
// without extension.
func Load(fsys fsutil.FileSystem, path string) (*Tree, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open swc file: %w", err)
	}
	defer f.Close()
	label := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Read(f, label)
}

// Read parses SWC text from r.
func Read(r io.Reader, label string) (*Tree, error) {
	var nodes []Node
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		n, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		nodes = append(nodes, n)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read swc: %w", err)
	}

	paths, err := buildPaths(nodes)
	if err != nil {
		return nil, err
	}
	return &Tree{Nodes: nodes, label: label, paths: paths}, nil
}

func parseLine(line string) (Node, error) {
	f := strings.Fields(line)
	if len(f) < 7 {
		return Node{}, fmt.Errorf("expected 7 columns, got %d", len(f))
	}
	var n Node
	var err error
	if n.ID, err = strconv.Atoi(f[0]); err != nil {
		return Node{}, fmt.Errorf("invalid id %q: %w", f[0], err)
	}
	typ, err := strconv.Atoi(f[1])
	if err != nil {
		return Node{}, fmt.Errorf("invalid type %q: %w", f[1], err)
	}
	n.Type = sholl.SWCType(typ)
	var xyzr [4]float64
	for i := range xyzr {
		if xyzr[i], err = strconv.ParseFloat(f[2+i], 64); err != nil {
			return Node{}, fmt.Errorf("invalid number %q: %w", f[2+i], err)
		}
	}
	n.Pos = sholl.Point3D{X: xyzr[0], Y: xyzr[1], Z: xyzr[2]}
	n.Radius = xyzr[3]
	if n.Parent, err = strconv.Atoi(f[6]); err != nil {
		return Node{}, fmt.Errorf("invalid parent %q: %w", f[6], err)
	}
	return n, nil
}

type pathStart struct {
	node int // first own node
	fork int // parent fork node, -1 for roots
}

// buildPaths splits the node forest into unbranched paths. A path follows
// the first child sharing its type; every other child starts a new path.
// Paths rooted at the structure origin, or forking off a soma path, are
// primary.
func buildPaths(nodes []Node) ([]sholl.TracedPath, error) {
	index := make(map[int]int, len(nodes))
	for i, n := range nodes {
		if _, dup := index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node id %d", n.ID)
		}
		index[n.ID] = i
	}

	children := make([][]int, len(nodes))
	var stack []pathStart
	for i, n := range nodes {
		if n.Parent < 0 {
			stack = append(stack, pathStart{node: i, fork: -1})
			continue
		}
		pi, ok := index[n.Parent]
		if !ok {
			return nil, fmt.Errorf("node %d references missing parent %d", n.ID, n.Parent)
		}
		children[pi] = append(children[pi], i)
	}
	slices.Reverse(stack)

	var paths []sholl.TracedPath
	visited := 0
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		typ := nodes[s.node].Type
		p := sholl.TracedPath{Type: typ, Primary: s.fork < 0}
		if s.fork >= 0 {
			p.Primary = nodes[s.fork].Type == sholl.SWCSoma && typ != sholl.SWCSoma
			p.Nodes = append(p.Nodes, nodes[s.fork].Pos)
		}

		var pending []pathStart
		for cur := s.node; cur >= 0; {
			p.Nodes = append(p.Nodes, nodes[cur].Pos)
			visited++
			next := -1
			for _, k := range children[cur] {
				if next < 0 && nodes[k].Type == typ {
					next = k
					continue
				}
				pending = append(pending, pathStart{node: k, fork: cur})
			}
			cur = next
		}
		slices.Reverse(pending)
		stack = append(stack, pending...)
		paths = append(paths, p)
	}

	if visited != len(nodes) {
		return nil, fmt.Errorf("%d nodes are not reachable from a root (cycle?)", len(nodes)-visited)
	}
	return paths, nil
}
