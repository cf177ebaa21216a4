package backend

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"promptrun/pkg/types"
)

// fakeSD writes an executable stand-in for the sd binary that creates the
// file named by its -o argument.
func fakeSD(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in")
	}
	script := `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; shift; fi
  shift
done
: > "$out"
`
	path := filepath.Join(t.TempDir(), "sd")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake sd: %v", err)
	}
	return path
}

// flagValue returns the argument following flag, and whether flag is present.
func flagValue(args []string, flag string) (string, bool) {
	for i, a := range args {
		if a == flag {
			if i+1 < len(args) {
				return args[i+1], true
			}
			return "", true
		}
	}
	return "", false
}

func TestSDCppBuildArgsTxt2Img(t *testing.T) {
	s := NewSDCpp("sd")
	req := Request{
		Model: types.ModelSpec{
			ID:   "sd15",
			Kind: types.KindImage,
			Options: types.Options{
				"model_path":       "/models/sd15.safetensors",
				"vae_path":         "/models/vae.safetensors",
				"keep_vae_on_cpu":  true,
				"keep_clip_on_cpu": false,
			},
		},
		Prompt: types.Prompt{ID: "scene", Text: "a lighthouse at dusk"},
		Mode:   types.ModeTxt2Img,
		Options: types.Options{
			"negative_prompt": "blurry",
			"width":           768,
			"height":          512,
			"sample_steps":    20,
			"cfg_scale":       7.5,
			"seed":            42,
		},
		OutputDir: "/runs/x/images",
	}
	args := s.buildArgs(req, "/runs/x/images/scene.png")

	if v, ok := flagValue(args, "-M"); !ok || v != "txt2img" {
		t.Fatalf("mode flag wrong: %v", args)
	}
	if v, _ := flagValue(args, "-m"); v != "/models/sd15.safetensors" {
		t.Fatalf("model path not passed: %v", args)
	}
	if v, _ := flagValue(args, "--vae"); v != "/models/vae.safetensors" {
		t.Fatalf("vae path not passed: %v", args)
	}
	if _, ok := flagValue(args, "--vae-on-cpu"); !ok {
		t.Fatalf("vae-on-cpu switch missing: %v", args)
	}
	if _, ok := flagValue(args, "--clip-on-cpu"); ok {
		t.Fatalf("false switch should be absent: %v", args)
	}
	if v, _ := flagValue(args, "-p"); v != "a lighthouse at dusk" {
		t.Fatalf("prompt not passed: %v", args)
	}
	if v, _ := flagValue(args, "-n"); v != "blurry" {
		t.Fatalf("negative prompt not passed: %v", args)
	}
	if v, _ := flagValue(args, "-W"); v != "768" {
		t.Fatalf("width wrong: %v", args)
	}
	if v, _ := flagValue(args, "--steps"); v != "20" {
		t.Fatalf("steps wrong: %v", args)
	}
	if v, _ := flagValue(args, "--cfg-scale"); v != "7.5" {
		t.Fatalf("cfg scale wrong: %v", args)
	}
	if v, _ := flagValue(args, "-s"); v != "42" {
		t.Fatalf("seed wrong: %v", args)
	}
	if _, ok := flagValue(args, "-i"); ok {
		t.Fatalf("txt2img must not carry an init image: %v", args)
	}
	if args[len(args)-2] != "-o" || args[len(args)-1] != "/runs/x/images/scene.png" {
		t.Fatalf("output path must come last: %v", args)
	}
}

func TestSDCppBuildArgsImg2Img(t *testing.T) {
	s := NewSDCpp("sd")
	req := Request{
		Model:  types.ModelSpec{ID: "sd15", Kind: types.KindImage},
		Prompt: types.Prompt{ID: "edit", Text: "restyle as watercolor"},
		Mode:   types.ModeImg2Img,
		Options: types.Options{
			"init_image": "/seeds/photo.png",
			"strength":   0.6,
		},
		OutputDir: "/runs/x/images",
	}
	args := s.buildArgs(req, "/runs/x/images/edit.png")
	if v, _ := flagValue(args, "-M"); v != "img2img" {
		t.Fatalf("mode flag wrong: %v", args)
	}
	if v, _ := flagValue(args, "-i"); v != "/seeds/photo.png" {
		t.Fatalf("init image not passed: %v", args)
	}
	if v, _ := flagValue(args, "--strength"); v != "0.6" {
		t.Fatalf("strength wrong: %v", args)
	}
}

func TestSDCppRejectsTextMode(t *testing.T) {
	s := NewSDCpp("sd")
	_, err := s.Generate(context.Background(), Request{Mode: types.ModeCompletion, OutputDir: "/tmp"})
	if !IsGenerateError(err) {
		t.Fatalf("expected generate error, got %v", err)
	}
}

func TestSDCppRequiresOutputDir(t *testing.T) {
	s := NewSDCpp("sd")
	_, err := s.Generate(context.Background(), Request{Mode: types.ModeTxt2Img})
	if !IsGenerateError(err) {
		t.Fatalf("expected generate error, got %v", err)
	}
}

// The same prompt against two models must stage two distinct files; a shared
// filename would let the second invocation overwrite the first.
func TestSDCppStagedFilesPerModel(t *testing.T) {
	s := NewSDCpp(fakeSD(t))
	outDir := t.TempDir()
	prompt := types.Prompt{ID: "scene", Text: "a lighthouse at dusk"}

	var paths []string
	for _, modelID := range []string{"sd15", "flux:dev"} {
		resp, err := s.Generate(context.Background(), Request{
			Model:     types.ModelSpec{ID: modelID, Kind: types.KindImage},
			Prompt:    prompt,
			Mode:      types.ModeTxt2Img,
			OutputDir: outDir,
		})
		if err != nil {
			t.Fatalf("generate %s: %v", modelID, err)
		}
		if len(resp.Images) != 1 {
			t.Fatalf("generate %s: images = %v", modelID, resp.Images)
		}
		paths = append(paths, resp.Images[0])
	}
	if paths[0] == paths[1] {
		t.Fatalf("both models staged the same file: %s", paths[0])
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("staged file missing: %v", err)
		}
		if !filepath.IsAbs(p) {
			t.Fatalf("staged path should be absolute: %s", p)
		}
		base := filepath.Base(p)
		if !strings.Contains(base, "__scene") {
			t.Fatalf("staged name should carry model and prompt ids: %s", base)
		}
		if strings.ContainsAny(base, `<>:"/\|?*`) {
			t.Fatalf("staged name not filesystem safe: %s", base)
		}
	}
}

// Collected images are the pair's own file plus sd's numbered batch outputs,
// never another pair's file that happens to share the name prefix.
func TestSDCppCollectsOnlyOwnImages(t *testing.T) {
	s := NewSDCpp(fakeSD(t))
	outDir := t.TempDir()

	// Staged output of a different pair whose prompt id extends this one.
	touchFile := func(name string) {
		if err := os.WriteFile(filepath.Join(outDir, name), []byte("png"), 0o644); err != nil {
			t.Fatalf("touch %s: %v", name, err)
		}
	}
	touchFile("m__a_b.png")
	touchFile("m__a_2.png") // batch output of this pair

	resp, err := s.Generate(context.Background(), Request{
		Model:     types.ModelSpec{ID: "m", Kind: types.KindImage},
		Prompt:    types.Prompt{ID: "a", Text: "x"},
		Mode:      types.ModeTxt2Img,
		OutputDir: outDir,
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(resp.Images) != 2 {
		t.Fatalf("images = %v, want own file plus its batch output", resp.Images)
	}
	for _, p := range resp.Images {
		base := filepath.Base(p)
		if base != "m__a.png" && base != "m__a_2.png" {
			t.Fatalf("collected another pair's file: %s", base)
		}
	}
}

func TestLastLines(t *testing.T) {
	in := "line1\n\nline2\nline3\nline4\n"
	if got := lastLines(in, 3); got != "line2; line3; line4" {
		t.Fatalf("lastLines = %q", got)
	}
	if got := lastLines("only", 3); got != "only" {
		t.Fatalf("lastLines short = %q", got)
	}
	if got := lastLines("", 3); got != "" {
		t.Fatalf("lastLines empty = %q", got)
	}
}
