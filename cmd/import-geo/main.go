// Command import-geo loads census gazetteer files into the places database
// used to resolve GEO_PLACE.
package main

import (
	"archive/zip"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/swelljoe/gotthetime/internal/config"
	"github.com/swelljoe/gotthetime/internal/db"
)

const (
	placesURL = "https://www2.census.gov/geo/docs/maps-data/data/gazetteer/2023_Gazetteer/2023_Gaz_place_national.zip"
	zctasURL  = "https://www2.census.gov/geo/docs/maps-data/data/gazetteer/2023_Gazetteer/2023_Gaz_zcta_national.zip"
)

func main() {
	places := flag.String("places", "", "places gazetteer (.txt or .zip); empty downloads the 2023 file")
	zctas := flag.String("zctas", "", "ZCTA gazetteer (.txt or .zip); empty downloads the 2023 file")
	dataDir := flag.String("data", "data", "download directory")
	skipZctas := flag.Bool("skip-zctas", false, "do not import ZIP code areas")
	flag.Parse()

	if err := run(context.Background(), *places, *zctas, *dataDir, *skipZctas); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, places, zctas, dataDir string, skipZctas bool) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	database, err := db.NewDB(cfg.Database.Path, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer database.Close()

	if err := importDataset(ctx, database, places, placesURL, dataDir, "places", parsePlace); err != nil {
		return fmt.Errorf("failed to process places: %w", err)
	}
	if skipZctas {
		return nil
	}
	if err := importDataset(ctx, database, zctas, zctasURL, dataDir, "zctas", parseZCTA); err != nil {
		return fmt.Errorf("failed to process zctas: %w", err)
	}
	return nil
}

func importDataset(ctx context.Context, database *db.DB, path, url, dataDir, name string, parse rowParser) error {
	if path == "" {
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		path = filepath.Join(dataDir, name+".zip")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Printf("Downloading %s...", name)
			if err := downloadFile(ctx, url, path); err != nil {
				return err
			}
		}
	}

	rc, err := openGazetteer(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	log.Printf("Importing %s from %s", name, path)
	n, err := importRows(ctx, database, rc, parse)
	if err != nil {
		return err
	}
	log.Printf("Finished importing %d %s", n, name)
	return nil
}

// openGazetteer returns the first .txt member of a zip, or the file itself.
func openGazetteer(path string) (io.ReadCloser, error) {
	if !strings.HasSuffix(strings.ToLower(path), ".zip") {
		return os.Open(path)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, ".txt") {
			rc, err := f.Open()
			if err != nil {
				zr.Close()
				return nil, err
			}
			return &zipMember{ReadCloser: rc, archive: zr}, nil
		}
	}
	zr.Close()
	return nil, fmt.Errorf("no txt file found in %s", path)
}

type zipMember struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (z *zipMember) Close() error {
	err := z.ReadCloser.Close()
	if cerr := z.archive.Close(); err == nil {
		err = cerr
	}
	return err
}

func downloadFile(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(path)
		return err
	}
	return out.Close()
}
