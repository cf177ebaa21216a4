package backend

import (
	"bytes"
	"context"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"promptrun/internal/results"
	"promptrun/pkg/types"
)

// SDCpp runs the stable-diffusion.cpp command line binary as a subprocess,
// one invocation per (prompt, model) pair. The binary owns all GPU memory
// and checkpoint handling; this adapter only builds arguments and collects
// the produced image files.
type SDCpp struct {
	bin string
}

// NewSDCpp constructs an image backend around the given sd binary.
func NewSDCpp(bin string) *SDCpp {
	if bin == "" {
		bin = "sd"
	}
	return &SDCpp{bin: bin}
}

func (s *SDCpp) Kind() types.Kind { return types.KindImage }

// initFlags maps model init options to sd CLI flags. Entries absent from the
// model's options are simply not passed.
var initFlags = map[string]string{
	"model_path":           "-m",
	"diffusion_model_path": "--diffusion-model",
	"clip_l_path":          "--clip_l",
	"clip_g_path":          "--clip_g",
	"t5xxl_path":           "--t5xxl",
	"vae_path":             "--vae",
	"taesd_path":           "--taesd",
	"lora_model_dir":       "--lora-model-dir",
}

var initSwitches = map[string]string{
	"keep_clip_on_cpu": "--clip-on-cpu",
	"keep_vae_on_cpu":  "--vae-on-cpu",
	"diffusion_fa":     "--diffusion-fa",
}

func (s *SDCpp) Generate(ctx context.Context, req Request) (Response, error) {
	if req.Mode != types.ModeTxt2Img && req.Mode != types.ModeImg2Img {
		return Response{}, errf("sd", "unsupported mode "+string(req.Mode), nil)
	}
	if req.OutputDir == "" {
		return Response{}, errf("sd", "no output directory for generated images", nil)
	}

	// The staged filename carries both ids so concurrent pairs of the same
	// prompt against different models never share a file.
	base := results.SanitizeFSName(req.Model.ID) + "__" + req.Prompt.ID
	outPath := filepath.Join(req.OutputDir, base+".png")
	args := s.buildArgs(req, outPath)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.bin, args...)
	cmd.Stderr = &stderr
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Response{}, ctx.Err()
		}
		tail := lastLines(stderr.String(), 3)
		if tail != "" {
			return Response{}, errf("sd", tail, err)
		}
		return Response{}, errf("sd", "sd exited", err)
	}
	elapsed := time.Since(start).Seconds()

	// sd writes <out>.png, and <out>_2.png onward for batch counts > 1.
	// Only those exact names count; a bare prefix glob would pick up files
	// staged for other pairs whose base shares this prefix.
	stem := strings.TrimSuffix(outPath, ".png")
	candidates, err := filepath.Glob(stem + "*.png")
	if err != nil {
		return Response{}, errf("sd", "no images produced at "+outPath, err)
	}
	var images []string
	for _, c := range candidates {
		suffix := strings.TrimSuffix(strings.TrimPrefix(c, stem), ".png")
		if suffix == "" || batchSuffixRe.MatchString(suffix) {
			images = append(images, c)
		}
	}
	if len(images) == 0 {
		return Response{}, errf("sd", "no images produced at "+outPath, nil)
	}
	return Response{
		Images:  images,
		Metrics: types.Metrics{TotalSeconds: round3(elapsed)},
	}, nil
}

var batchSuffixRe = regexp.MustCompile(`^_\d+$`)

// buildArgs assembles the sd invocation from the model's init options and
// the merged generation options. Unknown option keys are ignored rather than
// rejected; sd validates its own inputs and fails fast.
func (s *SDCpp) buildArgs(req Request, outPath string) []string {
	args := []string{"-M", string(req.Mode)}
	for key, flag := range initFlags {
		if v := req.Model.Options.String(key); v != "" {
			args = append(args, flag, v)
		}
	}
	for key, flag := range initSwitches {
		if req.Model.Options.Bool(key) {
			args = append(args, flag)
		}
	}

	args = append(args, "-p", req.Prompt.Text)
	if v := req.Options.String("negative_prompt"); v != "" {
		args = append(args, "-n", v)
	}
	if n, ok := req.Options.Int("width"); ok {
		args = append(args, "-W", strconv.Itoa(n))
	}
	if n, ok := req.Options.Int("height"); ok {
		args = append(args, "-H", strconv.Itoa(n))
	}
	if n, ok := req.Options.Int("sample_steps"); ok {
		args = append(args, "--steps", strconv.Itoa(n))
	}
	if f, ok := req.Options.Float("cfg_scale"); ok {
		args = append(args, "--cfg-scale", formatFloat(f))
	}
	if n, ok := req.Options.Int("seed"); ok {
		args = append(args, "-s", strconv.Itoa(n))
	}
	if n, ok := req.Options.Int("batch_count"); ok {
		args = append(args, "-b", strconv.Itoa(n))
	}
	if v := req.Options.String("sampling_method"); v != "" {
		args = append(args, "--sampling-method", v)
	}
	if n, ok := req.Options.Int("threads"); ok {
		args = append(args, "-t", strconv.Itoa(n))
	}
	if req.Mode == types.ModeImg2Img {
		args = append(args, "-i", req.Options.String("init_image"))
		if f, ok := req.Options.Float("strength"); ok {
			args = append(args, "--strength", formatFloat(f))
		}
	}
	return append(args, "-o", outPath)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// lastLines returns up to n trailing non-empty lines of s.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	var keep []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			keep = append(keep, strings.TrimSpace(l))
		}
	}
	if len(keep) > n {
		keep = keep[len(keep)-n:]
	}
	return strings.Join(keep, "; ")
}
