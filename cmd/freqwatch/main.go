package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	config "github.com/hkg36/audio-freq/configs"
	_ "github.com/hkg36/audio-freq/internal/database/mysql"
	_ "github.com/hkg36/audio-freq/internal/database/sqlite"
	"github.com/hkg36/audio-freq/internal/freqwatch"
	"github.com/hkg36/audio-freq/internal/remote"
	"github.com/hkg36/audio-freq/utils/logger"
)

func main() {
	enrollFile := flag.String("enroll", "", "Path to an audio file to fingerprint and store")
	songName := flag.String("name", "", "Song name used with -enroll (defaults to the file name)")
	recognizeFile := flag.String("recognize", "", "Path to an audio file to recognize")
	rawFile := flag.String("rawspec", "", "Path to a legacy raw spectrogram file to recognize")
	recordCmd := flag.Bool("record", false, "Record from the microphone and recognize (ctrl-c stops)")
	uploadCmd := flag.Bool("upload", false, "Upload pending songs to the fingerprint service")
	searchFile := flag.String("search", "", "Path to an audio file to recognize via the fingerprint service")
	listCmd := flag.Bool("list", false, "List all songs in the database")
	configPath := flag.String("config", "", "Path to config.yaml (defaults to ./configs/config.yaml)")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *verbose {
		logger.SetVerbose()
	}

	cfg := config.Default()
	path := *configPath
	if path == "" {
		dir, _ := os.Getwd()
		path = filepath.Join(dir, "configs", "config.yaml")
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			logger.Error(fmt.Errorf("failed to load configuration: %w", err))
			os.Exit(1)
		}
		cfg = *loaded
	}

	app, err := freqwatch.NewApp(cfg)
	if err != nil {
		logger.Error(fmt.Errorf("error initializing freqwatch: %w", err))
		os.Exit(1)
	}
	defer app.Close()

	switch {
	case *listCmd:
		songs, err := app.List()
		if err != nil {
			logger.Error(fmt.Errorf("error listing songs: %w", err))
			os.Exit(1)
		}
		if len(songs) == 0 {
			logger.Info("no songs in the database")
			return
		}
		for _, song := range songs {
			fmt.Printf("ID: %d | Name: %s\n", song.ID, song.Name)
		}

	case *uploadCmd:
		n, err := app.Upload()
		if err != nil {
			logger.Error(fmt.Errorf("upload stopped after %d songs: %w", n, err))
			os.Exit(1)
		}
		logger.Infof("uploaded %d songs", n)

	case *searchFile != "":
		results, err := app.SearchRemote(*searchFile)
		if err != nil {
			logger.Error(fmt.Errorf("error searching by service: %w", err))
			os.Exit(1)
		}
		printServiceResults(results)

	case *recordCmd:
		stop := make(chan struct{})
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			close(stop)
		}()
		matches, err := app.Record(stop)
		if err != nil {
			logger.Error(fmt.Errorf("error recording: %w", err))
			os.Exit(1)
		}
		printMatches(matches)

	case *recognizeFile != "":
		matches, err := app.Recognize(*recognizeFile)
		if err != nil {
			logger.Error(fmt.Errorf("error recognizing audio file: %w", err))
			os.Exit(1)
		}
		printMatches(matches)

	case *rawFile != "":
		matches, err := app.RecognizeRaw(*rawFile)
		if err != nil {
			logger.Error(fmt.Errorf("error recognizing spectrogram file: %w", err))
			os.Exit(1)
		}
		printMatches(matches)

	case *enrollFile != "":
		name := *songName
		if name == "" {
			name = filepath.Base(*enrollFile)
		}
		if err := app.Save(*enrollFile, name); err != nil {
			logger.Error(fmt.Errorf("failed to process audio file: %w", err))
			os.Exit(1)
		}

	default:
		flag.Usage()
		os.Exit(1)
	}
}

func printMatches(matches []freqwatch.Match) {
	if len(matches) == 0 {
		logger.Info("no matches found")
		return
	}
	for i, m := range matches {
		fmt.Printf("%d. %s (id %d, alignment peak %d, score %d, offset %d frames)\n",
			i+1, m.Name, m.SongID, m.AlignmentPeak, m.Score, m.Offset)
	}
}

func printServiceResults(results []remote.SongResult) {
	if len(results) == 0 {
		logger.Info("no matches found")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %s (id %d, %d matches)\n", i+1, r.Filename, r.SongID, r.MatchCount)
	}
}
