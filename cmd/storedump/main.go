// Command storedump inspects an annotation store from the command line:
// it lists a patient's stored studies or prints one study's annotations.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"xray-annotator/internal/config"
	"xray-annotator/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	patient := flag.String("patient", "", "patient identifier")
	image := flag.String("image", "", "image name; omit to list the patient's studies")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger()

	if *patient == "" {
		fmt.Println("Usage: storedump -patient <id> [-image <name>] [-config <path>]")
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	st, err := store.Open(store.Options{
		Backend: cfg.Store.Backend,
		Path:    cfg.Store.Path,
		DSN:     cfg.Store.DSN,
	})
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("open annotation store")
	}
	defer st.Close()

	ctx := context.Background()

	if *image == "" {
		images, err := st.Images(ctx, *patient)
		if err != nil {
			log.Fatal().Err(err).Msg("list studies")
		}
		if len(images) == 0 {
			fmt.Printf("No stored studies for patient %s\n", *patient)
			return
		}
		for _, name := range images {
			fmt.Println(name)
		}
		return
	}

	col, err := st.Load(ctx, store.Key{PatientID: *patient, ImageName: *image})
	if err != nil {
		log.Fatal().Err(err).Msg("load study")
	}

	fmt.Printf("Study %s/%s: %d annotations\n", *patient, *image, len(col))
	out, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("encode annotations")
	}
	fmt.Println(string(out))
}
