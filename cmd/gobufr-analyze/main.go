package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meteodata/gobufr/pkg/gobufr"
)

var (
	rootCmd = &cobra.Command{
		Use:   "gobufr-analyze [file...]",
		Short: "Decode BUFR files",
		Long: "gobufr-analyze frames and decodes WMO BUFR files using the gobufr " +
			"library. Without arguments it reads file paths interactively.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(); err != nil {
				return err
			}
			if tablesPath != "" {
				gobufr.SetTablesPath(tablesPath)
			}
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
			if len(args) == 0 {
				return runInteractive()
			}
			for _, path := range args {
				if err := analyzeFile(path); err != nil {
					return err
				}
			}
			return nil
		},
	}

	configPath   string
	tablesPath   string
	messageIndex int
	allMessages  bool
	verbose      bool
)

// config mirrors the persistent flags for users who prefer a file.
type config struct {
	Tables  string `yaml:"tables"`
	Verbose bool   `yaml:"verbose"`
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&tablesPath, "tables", "", "BUFR table directory (default $BUFR_TABLES_PATH or ./tables)")
	rootCmd.PersistentFlags().IntVarP(&messageIndex, "message", "m", 0, "message index to decode, negative counts from the end")
	rootCmd.PersistentFlags().BoolVarP(&allMessages, "all", "a", false, "decode every message in the file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func applyConfig() error {
	if configPath == "" {
		return nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", configPath, err)
	}
	// Flags given on the command line win over the file.
	if tablesPath == "" {
		tablesPath = cfg.Tables
	}
	if !verbose {
		verbose = cfg.Verbose
	}
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func runInteractive() error {
	scanner := bufio.NewScanner(os.Stdin)
	logrus.Info("gobufr analyze mode. Enter a BUFR file path and press Enter (Ctrl+D to exit).")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := analyzeFile(line); err != nil {
			logrus.WithError(err).Error("failed to decode file")
		}
	}
	return scanner.Err()
}

func analyzeFile(path string) error {
	f, err := gobufr.ParseFile(path)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"file":     path,
		"messages": f.MessageCount(),
	}).Debug("scanned input")

	if allMessages {
		for i := 0; i < f.MessageCount(); i++ {
			if err := analyzeMessage(f, i); err != nil {
				logrus.WithError(err).WithField("message", i).Error("failed to decode message")
			}
		}
		return nil
	}
	return analyzeMessage(f, messageIndex)
}

func analyzeMessage(f *gobufr.File, index int) error {
	m, err := f.MessageAt(index)
	if err != nil {
		return err
	}
	p, err := m.Decode(gobufr.DecodeOptions{})
	if err != nil {
		return err
	}

	fmt.Printf("message %d  edition %d  centre %d/%d  tables %d/%d  %s\n",
		index, m.Edition(), m.Centre(), m.Subcentre(),
		m.MasterTableVersion(), m.LocalTableVersion(),
		m.Time().Format("2006-01-02 15:04:05"))
	fmt.Printf("subsets %d  observed %v  compressed %v\n",
		m.Subsets(), m.Observed(), m.Compressed())
	for _, rec := range p.Records() {
		fmt.Println(rec.String())
	}
	return nil
}
