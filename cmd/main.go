package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/pprof"
	"os"
	"reflect"
	"syscall"
	"time"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/hvitr/skuggi/featureflag"
	"github.com/hvitr/skuggi/geom"
	"github.com/hvitr/skuggi/rtree"
	"github.com/hvitr/skuggi/scene"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/segmentio/encoding/json"
)

var (
	// The skuggi version number. Set at build.
	version = "v0.1.0"

	infoGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name:        "skuggi_info",
		Help:        "Skuggi information.",
		ConstLabels: prometheus.Labels{"version": version},
	})
)

// Keeps the config struct from being obfuscated so the cli package generates
// readable command-line options.
var _ = reflect.TypeOf(config{})

type config struct {
	Elements       int           `cli:"" env:"SKUGGI_ELEMENTS"        help:"The number of random elements placed in the scene."`
	Seed           int64         `cli:"" env:"SKUGGI_SEED"            help:"The seed for the scene generator."`
	SceneWidth     int           `cli:"" env:"SKUGGI_SCENE_WIDTH"     help:"The width of the scene in cells."`
	SceneHeight    int           `cli:"" env:"SKUGGI_SCENE_HEIGHT"    help:"The height of the scene in cells."`
	ViewportWidth  int           `cli:"" env:"SKUGGI_VIEWPORT_WIDTH"  help:"The width of the query viewport in cells."`
	ViewportHeight int           `cli:"" env:"SKUGGI_VIEWPORT_HEIGHT" help:"The height of the query viewport in cells."`
	Frames         int           `cli:"" env:"SKUGGI_FRAMES"          help:"The number of query frames to run. 0 runs until interrupted."`
	FrameDuration  time.Duration `cli:"" env:"SKUGGI_FRAME_DURATION"  help:"The duration of a frame."`
	AdminAddr      string        `cli:"" env:"SKUGGI_ADMIN_ADDR"      help:"Admin listening address serving metrics and profiling. Empty disables it."`
	LogLevel       string        `cli:"" env:"SKUGGI_LOG_LEVEL"       help:"Log level (debug|info|warning|error)."`
	LogIndent      bool          `cli:"" env:"SKUGGI_LOG_INDENT"      help:"Indent logs."`
	FeatureFlags   []string      `cli:"" env:"SKUGGI_FEATURE_FLAGS"   help:"Comma separated feature flags."`
	Version        bool          `cli:"" env:"-"                      help:"Show version."`
	Help           bool          `cli:"" env:"-"                      help:"Show help."`
}

func main() {
	conf := config{
		Elements:       256,
		Seed:           1,
		SceneWidth:     400,
		SceneHeight:    120,
		ViewportWidth:  120,
		ViewportHeight: 40,
		Frames:         600,
		FrameDuration:  time.Millisecond * 15,
		LogLevel:       logs.InfoLevel.String(),
	}

	infoGauge.Set(1)

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	cli.Register().
		Help("Soaks a skuggi spatial occlusion index with a synthetic scene and reports statistics.").
		Options(&conf)
	cli.Load()

	if conf.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	logs.SetLevel(logs.ParseLevel(conf.LogLevel))
	logs.Encoder = json.Marshal
	if conf.LogIndent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}
	errors.Encoder = json.Marshal

	if conf.AdminAddr != "" {
		var admin http.ServeMux
		admin.Handle("/metrics", promhttp.Handler())
		admin.HandleFunc("/debug/pprof/", pprof.Index)
		admin.HandleFunc("/debug/pprof/profile", pprof.Profile)
		admin.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		admin.HandleFunc("/debug/pprof/trace", pprof.Trace)
		admin.Handle("/debug/pprof/heap", pprof.Handler("heap"))
		admin.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))

		go func() {
			if err := http.ListenAndServe(conf.AdminAddr, &admin); err != nil {
				logs.Error(errors.New("admin server failed").Wrap(err))
			}
		}()
	}

	flags := featureflag.New(conf.FeatureFlags)
	logs.WithTag("version", version).
		WithTag("elements", conf.Elements).
		WithTag("seed", conf.Seed).
		WithTag("feature_flags", flags.List()).
		Info("starting skuggi soak")

	if err := soak(ctx, conf, flags); err != nil && err != context.Canceled {
		logs.Fatal(err)
	}
}

func soak(ctx context.Context, conf config, flags featureflag.FeatureFlag) error {
	rng := rand.New(rand.NewSource(conf.Seed))
	index := rtree.New(rtree.WithFeatureFlags(flags))

	elements := make([]*scene.Element, conf.Elements)
	for i := range elements {
		bounds := randomBounds(rng, conf)
		e := scene.NewElement(bounds, rng.Intn(16), fmt.Sprintf("element-%d", i))
		if err := index.Insert(e.Bounds, e.ZIndex, e); err != nil {
			return errors.New("seeding scene failed").Wrap(err)
		}
		elements[i] = e
	}

	ticker := time.NewTicker(conf.FrameDuration)
	defer ticker.Stop()

	for frame := 0; conf.Frames == 0 || frame < conf.Frames; frame++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		runFrame(rng, conf, index, elements, frame)
	}

	return report(index)
}

// runFrame mimics one render-loop iteration: a visibility pass over the
// viewport, a hit test, and an incremental move with its dirty bookkeeping.
func runFrame(rng *rand.Rand, conf config, index *rtree.Tree, elements []*scene.Element, frame int) {
	viewport := geom.NewRect(
		rng.Intn(max(conf.SceneWidth-conf.ViewportWidth, 1)),
		rng.Intn(max(conf.SceneHeight-conf.ViewportHeight, 1)),
		conf.ViewportWidth,
		conf.ViewportHeight,
	)

	visible := index.QueryVisible(viewport)
	index.QueryTopmost(rng.Intn(conf.SceneWidth), rng.Intn(conf.SceneHeight))

	e := elements[rng.Intn(len(elements))]
	oldBounds, oldZ := e.Bounds, e.ZIndex
	newBounds := randomBounds(rng, conf)

	if index.Update(oldBounds, oldZ, newBounds, oldZ, e) {
		e.Bounds = newBounds
		revealed := index.FindRevealedByMovement(oldBounds, newBounds, oldZ)
		logs.WithTag("frame", frame).
			WithTag("visible", len(visible)).
			WithTag("revealed", len(revealed)).
			Debug("frame complete")
	}

	if frame%64 == 0 {
		index.RecalculateOcclusion()
	}
	if frame%256 == 0 && frame > 0 {
		index.Rebuild()
	}
}

func report(index *rtree.Tree) error {
	stats := index.Statistics()
	out, err := json.MarshalIndent(struct {
		scene.Statistics
		Height int `json:"Height"`
	}{stats, index.Height()}, "", "  ")
	if err != nil {
		return errors.New("encoding statistics failed").Wrap(err)
	}
	fmt.Println(string(out))

	logs.WithTag("elements", stats.TotalElements).
		WithTag("z_levels", stats.UniqueZLevels).
		WithTag("height", index.Height()).
		Info("soak complete")
	return nil
}

func randomBounds(rng *rand.Rand, conf config) geom.Rect {
	w := 4 + rng.Intn(40)
	h := 2 + rng.Intn(12)
	return geom.NewRect(
		rng.Intn(max(conf.SceneWidth-w, 1)),
		rng.Intn(max(conf.SceneHeight-h, 1)),
		w, h,
	)
}
