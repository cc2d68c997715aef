package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/scholarly-tools/pinmap/cache"
	"github.com/scholarly-tools/pinmap/content"
	"github.com/scholarly-tools/pinmap/fetch"
	"github.com/scholarly-tools/pinmap/geocode"
	"github.com/scholarly-tools/pinmap/pin"
	"github.com/scholarly-tools/pinmap/resolve"
	"github.com/scholarly-tools/pinmap/ror"
	"github.com/scholarly-tools/pinmap/scholarly"
)

var (
	buildContentPath   string
	buildOutputPath    string
	buildOverridesPath string
	buildCacheDir      string
	buildJitter        bool
	buildJitterRadius  float64
	buildCitationUnion bool
	buildFast          bool
	buildEmail         string
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Resolve dataset entries to coordinates and emit map pins",
	Long: `Build reads the dataset document, resolves each experience entry, talk,
project, and publication affiliation to a coordinate, and writes the pin set
as a JSON array.

Lookups chain through manual overrides, a built-in alias table, the ROR
registry, the OpenAlex and Crossref indexes, and Nominatim geocoding. Every
external response is cached under the cache directory, so warm re-runs make
no network calls.

Examples:
  pinmap build
  pinmap build --content content.json --output collab-pins.json
  pinmap build --jitter --jitter-radius 25 --citation-union
  CONTACT_EMAIL=me@example.org pinmap build`,
	Args: cobra.NoArgs,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildContentPath, "content", "content.json", "Dataset document (required input)")
	buildCmd.Flags().StringVarP(&buildOutputPath, "output", "o", "collab-pins.json", "Output pin file")
	buildCmd.Flags().StringVar(&buildOverridesPath, "overrides", "location_overrides.json", "Manual override file (YAML or JSON, optional)")
	buildCmd.Flags().StringVar(&buildCacheDir, "cache-dir", ".pinmap/cache", "Directory for lookup caches")
	buildCmd.Flags().BoolVar(&buildJitter, "jitter", envBool("PINMAP_JITTER"), "Displace coincident pins onto small rings")
	buildCmd.Flags().Float64Var(&buildJitterRadius, "jitter-radius", envFloat("PINMAP_JITTER_RADIUS", 25), "Jitter ring radius in meters")
	buildCmd.Flags().BoolVar(&buildCitationUnion, "citation-union", envBool("PINMAP_CITATION_UNION"), "Union Crossref affiliations with OpenAlex instead of fallback only")
	buildCmd.Flags().BoolVar(&buildFast, "fast", envBool("PINMAP_FAST"), "Geocode before registry search when resolving affiliation names")
	buildCmd.Flags().StringVar(&buildEmail, "email", os.Getenv("CONTACT_EMAIL"), "Contact address for API etiquette headers")
}

func envBool(name string) bool {
	v, err := strconv.ParseBool(os.Getenv(name))
	return err == nil && v
}

func envFloat(name string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(name), 64)
	if err != nil {
		return def
	}
	return v
}

func runBuild(cmd *cobra.Command, args []string) error {
	doc, err := content.Load(buildContentPath)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}

	client := fetch.NewClient(buildEmail)
	geocoder := geocode.New(client, cache.Open(filepath.Join(buildCacheDir, "geocode.json")))
	registry := ror.New(client, cache.Open(filepath.Join(buildCacheDir, "ror.json")), geocoder)

	resolver := &resolve.Resolver{
		Geocoder:      geocoder,
		Registry:      registry,
		OpenAlex:      scholarly.NewOpenAlex(client, cache.Open(filepath.Join(buildCacheDir, "openalex.json"))),
		Crossref:      scholarly.NewCrossref(client, cache.Open(filepath.Join(buildCacheDir, "crossref.json"))),
		Affiliations:  cache.Open(filepath.Join(buildCacheDir, "affiliation.json")),
		Overrides:     resolve.LoadOverrides(buildOverridesPath),
		Fast:          buildFast,
		CitationUnion: buildCitationUnion,
	}

	pins := resolver.BuildPins(doc)

	if buildJitter {
		pin.Jitter(pins, buildJitterRadius, pin.DefaultRingCapacity)
	}

	if err := pin.WriteFile(buildOutputPath, pins); err != nil {
		return err
	}
	slog.Info("pins written", "count", len(pins), "path", buildOutputPath)
	return nil
}
