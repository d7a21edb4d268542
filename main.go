package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"relstore/pkg/engine"
	"relstore/pkg/logging"
	"relstore/pkg/ui"
)

type configuration struct {
	DatabaseName string
	DataDir      string
	PoolSize     int
	Verbose      bool
	LogPath      string
	Exec         string
	ScriptFile   string
}

func main() {
	config := parseArguments()

	level := logging.LevelInfo
	if config.Verbose {
		level = logging.LevelDebug
	}
	if err := logging.Init(logging.Config{Level: level, OutputPath: config.LogPath}); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}
	defer logging.Close()

	db, err := engine.Open(engine.Config{
		Name:     config.DatabaseName,
		DataDir:  config.DataDir,
		PoolSize: config.PoolSize,
	})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	switch {
	case config.Exec != "":
		if err := runStatement(db, config.Exec); err != nil {
			os.Exit(1)
		}
	case config.ScriptFile != "":
		if err := runScript(db, config.ScriptFile); err != nil {
			os.Exit(1)
		}
	default:
		showSplashScreen()
		program := tea.NewProgram(ui.New(db), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			log.Fatalf("shell failed: %v", err)
		}
	}
}

func parseArguments() configuration {
	var config configuration

	flag.StringVar(&config.DatabaseName, "db", "mydb", "Database name")
	flag.StringVar(&config.DataDir, "data", "./data", "Data directory path")
	flag.IntVar(&config.PoolSize, "pool", 0, "Buffer pool frames per table (0 = default)")
	flag.BoolVar(&config.Verbose, "verbose", false, "Enable debug logging")
	flag.StringVar(&config.LogPath, "logfile", "", "Write logs to this file instead of stdout")
	flag.StringVar(&config.Exec, "exec", "", "Execute one statement and exit")
	flag.StringVar(&config.ScriptFile, "script", "", "Execute a SQL file and exit")

	flag.Parse()
	return config
}

func showSplashScreen() {
	fmt.Print(`
  ┌──────────────────────────────────────┐
  │  relstore — page-chain SQL engine    │
  │  type HELP for commands              │
  └──────────────────────────────────────┘
`)
}

func runStatement(db *engine.Engine, sql string) error {
	result, err := db.ExecuteQuery(sql)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	fmt.Println(engine.FormatResult(result))
	return nil
}

// runScript executes a file holding one statement per line (a trailing
// semicolon is allowed), skipping blank lines and "--" comments, and
// stops at the first error.
func runScript(db *engine.Engine, path string) error {
	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		if err := runStatement(db, line); err != nil {
			fmt.Fprintf(os.Stderr, "script stopped at line %d\n", lineNo)
			return err
		}
	}
	return scanner.Err()
}
