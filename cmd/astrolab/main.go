package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	"github.com/ciboulette/astrolab/archive"
	"github.com/ciboulette/astrolab/exposure"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "astrolab.yml"

	// EnvPrefix marks environment variables which override the config file,
	// e.g. ASTROLAB_EXPOSURE_TIMEOUTSEC=120
	EnvPrefix = "ASTROLAB_"

	k = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(DefaultConfig(), "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey(k.Keys())), nil); err != nil {
		log.Fatalf("error loading environment: %v", err)
	}
}

// envKey maps ASTROLAB_EXPOSURE_TIMEOUTSEC to Exposure.TimeoutSec.  Variables
// that do not name a known key are ignored.
func envKey(keys []string) func(string) string {
	known := make(map[string]string, len(keys))
	for _, key := range keys {
		known[strings.ToLower(key)] = key
	}
	return func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return known[strings.ReplaceAll(s, "_", ".")]
	}
}

func loadconf() Config {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	return c
}

func root() {
	str := `astrolab takes exposures with an Alpaca camera, mount and filter wheel and
writes them as FITS files carrying a celestial WCS.

Usage:
	astrolab <command>

Commands:
	run
	expose <exptime> <frameid>
	archives [dir]
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `astrolab is amenable to configuration via its .yml file, astrolab.yml in the
working directory.  For a primer on YAML, see https://yaml.org/start.html

Any key may be overridden from the environment, upper case, with the path
separated by underscores and prefixed by ASTROLAB_, e.g.
	ASTROLAB_MOCK=true
	ASTROLAB_EXPOSURE_TIMEOUTSEC=300
	ASTROLAB_PROFILE_INSTRUMENT_OBJECT=M31

mkconf writes the current configuration to astrolab.yml, conf prints it.

run serves the HTTP interface at Addr.  GET /endpoints lists the routes.

expose takes one frame of <exptime> seconds and writes it to the dataset
directory as <observer>_<object>_<frameid>.fits.

archives lists the frames in the archive directory and, if Archive.DB is set,
records them in the sqlite index.

With Mock: true the Alpaca devices are replaced with in-memory ones.`
	fmt.Println(str)
}

func mkconf() {
	c := loadconf()
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := loadconf()
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("astrolab version %v\n", Version)
}

func mustApp() *App {
	a, err := NewApp(loadconf())
	if err != nil {
		log.Fatal(err)
	}
	return a
}

func run() {
	a := mustApp()
	defer a.Close()
	mux := BuildMux(a)
	a.Logger.Info("now listening for requests", "addr", a.Config.Addr, "mock", a.Config.Mock)
	log.Fatal(http.ListenAndServe(a.Config.Addr, mux))
}

func expose(args []string) {
	if len(args) != 2 {
		log.Fatal("usage: astrolab expose <exptime> <frameid>")
	}
	exptime, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		log.Fatalf("exposure time: %v", err)
	}
	frameid, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatalf("frame id: %v", err)
	}
	a := mustApp()
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[14],
		Suffix:            fmt.Sprintf(" frame %d", frameid),
		SuffixAutoColon:   true,
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		log.Fatal(err)
	}
	if err = spinner.Start(); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s, _ := a.O.State()
				spinner.Message(s.String())
			}
		}
	}()

	id, err := a.O.Expose(ctx, exposure.Request{ExpTime: exptime, FrameID: frameid})
	close(done)
	if err != nil {
		spinner.StopFailMessage(fmt.Sprintf("%s: %v", exposure.Kind(err), err))
		spinner.StopFail()
		a.Close()
		os.Exit(1)
	}
	_, art, _ := a.O.Recorder.Last()
	msg := fmt.Sprintf("frame %d written to %s", id, art.Path)
	if fi, err := os.Stat(art.Path); err == nil {
		msg += " (" + humanize.Bytes(uint64(fi.Size())) + ")"
	}
	spinner.StopMessage(msg)
	spinner.Stop()
}

func archives(args []string) {
	c := loadconf()
	dir := c.Profile.Instrument.Archives
	if len(args) > 0 {
		dir = args[0]
	}
	entries, err := archive.Scan(dir)
	if err != nil {
		log.Fatal(err)
	}
	for _, e := range entries {
		fmt.Printf("%-40s %-12s %6d %-10s %10.5f %10.5f %s\n", e.Path, e.Object, e.FrameID, e.DataType, e.RA, e.Dec, e.Phase)
	}
	fmt.Printf("%s frames, %s sectors\n", humanize.Comma(int64(len(entries))), humanize.Comma(int64(len(archive.Sectors(entries)))))
	if c.Archive.DB == "" {
		return
	}
	idx := archive.NewIndex(c.Archive.DB)
	defer idx.Close()
	n, err := idx.Sync(context.Background(), dir)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s frames indexed in %s\n", humanize.Comma(int64(n)), c.Archive.DB)
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "expose":
		expose(args[2:])
		return
	case "archives":
		archives(args[2:])
		return
	case "version":
		pversion()
		return
	default:
		log.Fatal("unknown command")
	}
}
