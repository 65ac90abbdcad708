package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/pprof"
	"os"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"sunocat/src/collector"
	"sunocat/src/extract"
	"sunocat/src/handler/api"
	"sunocat/src/history"
	"sunocat/src/jukebox"
	"sunocat/src/library"
	"sunocat/src/media"
	"sunocat/src/player"
	"sunocat/src/remote"
	"sunocat/src/util"
)

const confFile = "config.yaml"

var (
	build       = "%BUILD%"
	version     = "%VERSION%"
	versionDate = "%VERSION_DATE%"
)

type config struct {
	Address string `yaml:"bind"`
	URLRoot string `yaml:"url_root"`

	StorageDir string `yaml:"storage_dir"`

	MPD struct {
		Network  string  `yaml:"network"`
		Address  string  `yaml:"address"`
		Password *string `yaml:"password"`
	} `yaml:"mpd"`

	Catalog    string `yaml:"catalog_url"`
	ShortLinks string `yaml:"shortlink_url"`
	Share      string `yaml:"share_url"`
}

func (conf *config) Validate() (errs []error) {
	if conf.Address == "" {
		errs = append(errs, fmt.Errorf("config: `bind` is required"))
	}
	if conf.StorageDir == "" {
		errs = append(errs, fmt.Errorf("config: `storage_dir` is required"))
	}
	if conf.MPD.Address == "" {
		errs = append(errs, fmt.Errorf("config: `mpd.address` is required"))
	}
	if conf.Catalog == "" {
		errs = append(errs, fmt.Errorf("config: `catalog_url` is required"))
	}
	return
}

func LoadConfig(filename string) (*config, error) {
	fd, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	d := yaml.NewDecoder(fd)
	d.KnownFields(true)
	var conf config
	if err := d.Decode(&conf); err != nil {
		return nil, err
	}

	return &conf, nil
}

func main() {
	defaultLogLevel := "warn"
	if build == "debug" {
		defaultLogLevel = "debug"
	}

	configFile := flag.String("conf", confFile, "Path to the configuration file")
	printVersion := flag.Bool("version", false, "Print version information and exit")
	logLevel := flag.String("log", defaultLogLevel, "Sets the log level. [debug, info, warn, error]")
	flag.Parse()

	if ll, err := log.ParseLevel(*logLevel); err != nil {
		log.Fatalf("Could not parse log level: %v", err)
	} else {
		log.SetLevel(ll)
	}
	log.SetReportCaller(true)

	if *printVersion {
		fmt.Printf("Version: %v (%v)\n", version, versionDate)
		fmt.Printf("Build: %v\n", build)
		return
	}

	log.Infof("Version: %v (%v)\n", version, build)
	config, err := LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if errs := config.Validate(); len(errs) > 0 {
		log.Fatalf("Could not load config: %v", errs)
	}

	storeDir := strings.Replace(config.StorageDir, "~", os.Getenv("HOME"), 1)
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		log.Fatalf("Unable to create storage dir: %v", err)
	}
	log.Infof("Using %q for storage", storeDir)

	hist, err := history.NewStore(storeDir)
	if err != nil {
		log.Fatalf("Unable to open history store: %v", err)
	}
	stock, err := collector.NewStockList(path.Join(storeDir, "stock.txt"))
	if err != nil {
		log.Fatalf("Unable to open stock list: %v", err)
	}

	element, err := media.ConnectMPD(config.MPD.Network, config.MPD.Address, config.MPD.Password)
	if err != nil {
		log.Fatalf("Unable to connect to MPD: %v", err)
	}

	urlRoot, err := util.DetermineFullURLRoot(config.URLRoot, config.Address)
	if err != nil {
		log.Fatalf("Could not determine URL root: %v", err)
	}

	resolver := library.NewResolver(remote.NewLookupClient(config.Catalog))
	var shortLinks extract.ShortLinkResolver
	if config.ShortLinks != "" {
		shortLinks = remote.NewShortLinkClient(config.ShortLinks)
	}
	var shares jukebox.Shares
	if config.Share != "" {
		shares = remote.NewShareClient(config.Share)
	}

	pl := player.New(element, resolver)
	jb := jukebox.New(pl, hist, stock, shortLinks, shares, urlRoot)
	go jb.Run(context.Background())

	if restored, err := jb.RestoreLastSession(context.Background()); err != nil {
		log.Warnf("Could not restore the last session: %v", err)
	} else if restored {
		log.Infof("Restored the playlist of the last session")
	}

	service := chi.NewRouter()
	service.Use(middleware.Recoverer)
	service.Route("/api", func(r chi.Router) {
		api.InitRouter(r, jb)
	})

	if build == "debug" {
		service.Get("/debug/pprof/*", pprof.Index)
	}
	log.Infof("Now accepting HTTP connections on %v", config.Address)
	server := &http.Server{
		Addr:           config.Address,
		Handler:        service,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	log.Fatalf("Error running webserver: %v", server.ListenAndServe())
}
