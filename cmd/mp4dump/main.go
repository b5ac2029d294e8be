// Command mp4dump reads an MP4 file and prints its box structure.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tetsuo/bmff"
	"github.com/tetsuo/bmff/mp4"
	"github.com/tetsuo/bmff/track"
)

// Format specifies the output format.
type Format int

const (
	FormatText Format = iota
	FormatJSON
)

// BoxNode is a box in the tree structure, built while scanning top-level
// entries and, for ftyp/moov, walking their loaded payload with bmff.Reader.
type BoxNode struct {
	Type     string         `json:"type"`
	Size     uint64         `json:"size"`
	Version  *uint8         `json:"version,omitempty"`
	Flags    *uint32        `json:"flags,omitempty"`
	Info     map[string]any `json:"info,omitempty"`
	Children []BoxNode      `json:"children,omitempty"`
}

func main() {
	formatFlag := flag.String("format", "text", "output format: text (default), json")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [--format=text|json] <file.mp4>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	format := FormatText
	switch strings.ToLower(*formatFlag) {
	case "json":
		format = FormatJSON
	case "text":
		format = FormatText
	default:
		fmt.Fprintf(os.Stderr, "unknown format: %s\n", *formatFlag)
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	nodes, err := scanFile(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error scanning file: %v\n", err)
		os.Exit(1)
	}

	if _, err := f.Seek(0, 0); err != nil {
		fmt.Fprintf(os.Stderr, "error seeking file: %v\n", err)
		os.Exit(1)
	}
	r, err := mp4.Open(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening as mp4: %v\n", err)
	} else {
		printSummary(r)
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(nodes); err != nil {
			fmt.Fprintf(os.Stderr, "error encoding json: %v\n", err)
			os.Exit(1)
		}
	default:
		for _, n := range nodes {
			printText(n, 0)
		}
	}
}

func scanFile(f *os.File) ([]BoxNode, error) {
	sc := bmff.NewScanner(f)
	var nodes []BoxNode
	for sc.Next() {
		e := sc.Entry()
		node := BoxNode{Type: e.Type.String(), Size: e.Size}
		if bmff.IsContainerBox(e.Type) || e.Type == bmff.TypeMoov || e.Type == bmff.TypeMoof || e.Type == bmff.TypeFtyp {
			size := e.DataSize()
			if size >= 0 {
				buf := make([]byte, size)
				if err := sc.ReadBody(buf); err == nil {
					node.Children = walkChildren(buf)
				}
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, sc.Err()
}

func walkChildren(data []byte) []BoxNode {
	var nodes []BoxNode
	r := bmff.NewReader(data)
	for r.Next() {
		node := BoxNode{Type: r.Type().String(), Size: r.Size()}
		if bmff.IsFullBox(r.Type()) {
			v := r.Version()
			fl := r.Flags()
			node.Version = &v
			node.Flags = &fl
		}
		node.Info = boxInfo(r.Type(), r.Data())
		if bmff.IsContainerBox(r.Type()) {
			node.Children = walkChildren(r.Data())
		} else if r.Type() == bmff.TypeStsd {
			node.Children = walkStsdEntries(r.Data())
		}
		nodes = append(nodes, node)
	}
	return nodes
}

func walkStsdEntries(data []byte) []BoxNode {
	if len(data) < 4 {
		return nil
	}
	return walkChildren(data[4:])
}

func boxInfo(t bmff.BoxType, data []byte) map[string]any {
	switch t {
	case bmff.TypeFtyp, bmff.TypeStyp:
		info, err := bmff.ReadFtyp(data)
		if err != nil {
			return nil
		}
		return map[string]any{"majorBrand": info.MajorBrand.String(), "minorVersion": info.MinorVersion}
	}
	return nil
}

func printSummary(r *mp4.Reader) {
	fmt.Printf("major_brand=%s minor_version=%d compatible_brands=%v\n",
		r.MajorBrand(), r.MinorVersion(), r.CompatibleBrands())
	fmt.Printf("timescale=%d duration=%d fragmented=%t\n", r.Timescale(), r.Duration(), r.Fragmented())
	for _, t := range r.Tracks() {
		fmt.Printf("track id=%d kind=%s codec=%q timescale=%d duration=%d samples=%d\n",
			t.ID, kindName(t.Kind), t.Codec, t.TimeScale, t.Duration, t.SampleCount())
	}
}

func kindName(k track.Kind) string {
	switch k {
	case track.KindVideo:
		return "video"
	case track.KindAudio:
		return "audio"
	case track.KindSubtitle:
		return "subtitle"
	}
	return "unknown"
}

func printText(n BoxNode, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s%s size=%d", indent, n.Type, n.Size)
	if n.Version != nil {
		fmt.Printf(" version=%d flags=0x%06x", *n.Version, *n.Flags)
	}
	if n.Info != nil {
		fmt.Printf(" %v", n.Info)
	}
	fmt.Println()
	for _, c := range n.Children {
		printText(c, depth+1)
	}
}
