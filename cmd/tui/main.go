package main

import (
	"flag"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/config"
	"github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/models/tetris"
	services "github.com/progate-hackathon-strawberry-flavor/gitris-puzzle/internal/services/tetris"
)

func main() {
	config.LoadDotEnv()

	board, err := config.LoadBoard()
	if err != nil {
		log.Fatalf("[TUI] invalid configuration: %v", err)
	}

	rows := flag.Int("rows", board.DefaultRows, "number of board rows")
	cols := flag.Int("cols", board.DefaultCols, "number of board columns")
	seed := flag.Int64("seed", board.PieceSeed, "piece seed (0 = random)")
	debugFile := flag.String("debug", "", "write debug logs to this file")
	flag.Parse()

	// 画面を描画中は標準出力にログを出さない
	log.SetOutput(io.Discard)
	if *debugFile != "" {
		f, err := os.OpenFile(*debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.SetOutput(os.Stderr)
			log.Fatalf("[TUI] cannot open debug log: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
		if level, err := config.ParseLogLevel(); err == nil {
			log.SetLevel(level)
		}
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	state, err := services.NewGameState(*rows, *cols, board.MaxBoardSize, tetris.NewRandomDrawer(*seed))
	if err != nil {
		log.SetOutput(os.Stderr)
		log.Fatalf("[TUI] cannot start game: %v", err)
	}
	log.WithFields(log.Fields{"rows": *rows, "cols": *cols, "seed": *seed}).Debug("[TUI] start")

	program := tea.NewProgram(NewModel(state), tea.WithAltScreen(), tea.WithMouseAllMotion())
	if _, err := program.Run(); err != nil {
		log.WithError(err).Error("[TUI] program error")
		os.Exit(1)
	}
}
