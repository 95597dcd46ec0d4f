// meshtex is a headless utility for exporting meshes and inspecting texture
// projections without opening a window.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/Faultbox/meshtex/internal/config"
	"github.com/Faultbox/meshtex/internal/imagery"
	"github.com/Faultbox/meshtex/internal/logger"
	"github.com/Faultbox/meshtex/internal/producer"
	"github.com/Faultbox/meshtex/internal/projector"
	"github.com/Faultbox/meshtex/pkg/mesh"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	if err := logger.Init("warn", ""); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "export":
		err = cmdExport(args)
	case "project":
		err = cmdProject(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshtex - mesh export and texture projection utility

Usage:
  meshtex <command> [options]

Commands:
  export [-obj in.obj | -cells N] <out.obj>       Write a mesh as OBJ
  project -images frames.yaml [-obj in.obj]      Report per-triangle image assignments
  config [path]                                  Write the default viewer config

Examples:
  meshtex export -cells 32 surface.obj
  meshtex project -images frames.yaml -obj surface.obj -policy best_facing
  meshtex config ./config.yaml`)
}

// meshFlags selects the input mesh: an OBJ file or a synthetic grid.
type meshFlags struct {
	obj   *string
	cells *int
	size  *float64
	amp   *float64
}

func addMeshFlags(fs *flag.FlagSet) meshFlags {
	return meshFlags{
		obj:   fs.String("obj", "", "Read the mesh from this OBJ file"),
		cells: fs.Int("cells", 16, "Grid cells per side when no OBJ is given"),
		size:  fs.Float64("size", 2, "Grid side length"),
		amp:   fs.Float64("amp", 0.1, "Grid ripple amplitude"),
	}
}

func (f meshFlags) load() (*mesh.Mesh, error) {
	if *f.obj != "" {
		return mesh.LoadOBJ(*f.obj)
	}
	if *f.cells <= 0 {
		return nil, fmt.Errorf("cells must be positive, got %d", *f.cells)
	}
	return producer.Grid(*f.cells, float32(*f.size), float32(*f.amp)), nil
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	mf := addMeshFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: meshtex export [-obj in.obj | -cells N] <out.obj>")
	}

	m, err := mf.load()
	if err != nil {
		return err
	}
	if err := mesh.SaveOBJ(fs.Arg(0), m); err != nil {
		return err
	}

	fmt.Printf("Wrote %s: %d vertices, %d triangles\n", fs.Arg(0), m.NumPoints(), m.NumTriangles())
	return nil
}

func cmdProject(args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	mf := addMeshFlags(fs)
	images := fs.String("images", "", "Image manifest (YAML)")
	policyName := fs.String("policy", projector.Overlay.String(), "overlay or best_facing")
	workers := fs.Int("workers", 1, "Projection worker goroutines")
	maxSize := fs.Int("max-size", config.Default().Images.MaxSize, "Downscale images larger than this")
	verbose := fs.Bool("v", false, "List the assignments of every triangle")
	fs.Parse(args)

	if *images == "" {
		return fmt.Errorf("usage: meshtex project -images frames.yaml [-obj in.obj]")
	}
	policy, ok := projector.ParsePolicy(*policyName)
	if !ok {
		return fmt.Errorf("%w: %q", config.ErrUnknownPolicy, *policyName)
	}

	m, err := mf.load()
	if err != nil {
		return err
	}
	frames, err := imagery.LoadManifest(*images, *maxSize)
	if err != nil {
		return err
	}

	p := projector.New(
		projector.WithPolicy(policy),
		projector.WithWorkers(*workers),
		projector.WithLogger(logger.Named("projector")),
	)
	res := p.Project(m, imagery.Samples(frames))

	fmt.Printf("Triangles:  %d\n", m.NumTriangles())
	fmt.Printf("Textured:   %d\n", res.Textured())
	fmt.Printf("Degenerate: %d\n", res.Degenerate)
	fmt.Printf("Policy:     %s\n", policy)
	fmt.Println()
	fmt.Println("Triangles per image:")

	perImage := make(map[int]int)
	for _, list := range res.Triangles {
		for _, a := range list {
			perImage[a.Image]++
		}
	}
	indices := make([]int, 0, len(perImage))
	for i := range perImage {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		fmt.Printf("  [%d] %-24s %d\n", i, frames[i].Name, perImage[i])
	}

	if *verbose {
		fmt.Println()
		for t, list := range res.Triangles {
			fmt.Printf("%6d:", t)
			for _, a := range list {
				fmt.Printf(" %d(%.3f,%.3f %.3f,%.3f %.3f,%.3f)", a.Image,
					a.UV[0].X, a.UV[0].Y, a.UV[1].X, a.UV[1].Y, a.UV[2].X, a.UV[2].Y)
			}
			fmt.Println()
		}
	}
	return nil
}

func cmdConfig(args []string) error {
	path := "config.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if err := config.Default().SaveTo(path); err != nil {
		return err
	}
	fmt.Printf("Wrote default config to %s\n", path)
	return nil
}
