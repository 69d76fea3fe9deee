// Package config assembles the pipeline components from CLI settings
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"golang-ofx-import-service/internal/categorizer"
	"golang-ofx-import-service/internal/importer"
	"golang-ofx-import-service/internal/matcher"
	"golang-ofx-import-service/internal/reporter"
	"golang-ofx-import-service/internal/storage"
)

// OpenStore opens the SQLite database configured via --database
func OpenStore() (*storage.SQLiteStore, error) {
	path := viper.GetString("database")
	if path == "" {
		path = "ofximport.db"
	}
	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return store, nil
}

// CreateMatcherConfig builds the duplicate-detection configuration,
// applying any tuning overrides from the config file.
func CreateMatcherConfig() (*matcher.Config, error) {
	config := matcher.DefaultConfig()

	if viper.IsSet("matcher.date_window_days") {
		config.DateWindowDays = viper.GetInt("matcher.date_window_days")
	}
	if viper.IsSet("matcher.match_threshold") {
		config.MatchThreshold = viper.GetFloat64("matcher.match_threshold")
	}
	if viper.IsSet("matcher.high_confidence_threshold") {
		config.HighConfidenceThreshold = viper.GetFloat64("matcher.high_confidence_threshold")
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid matcher settings: %w", err)
	}
	return config, nil
}

// LoadKeywords loads the categorization keyword tables, honoring an optional
// YAML override file configured as categorizer.keywords_file.
func LoadKeywords() (*categorizer.KeywordSet, error) {
	path := viper.GetString("categorizer.keywords_file")
	if path == "" {
		return categorizer.DefaultKeywords(), nil
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening keyword file %s: %w", path, err)
	}
	defer file.Close()

	keywords, err := categorizer.LoadKeywords(file)
	if err != nil {
		return nil, fmt.Errorf("loading keyword file %s: %w", path, err)
	}
	return keywords, nil
}

// CreateService wires the full import pipeline over the given store
func CreateService(store storage.Store) (*importer.Service, error) {
	matcherConfig, err := CreateMatcherConfig()
	if err != nil {
		return nil, err
	}
	keywords, err := LoadKeywords()
	if err != nil {
		return nil, err
	}
	return importer.NewService(store, matcherConfig, keywords)
}

// CreateReporter builds the output renderer from the CLI flags
func CreateReporter() (*reporter.Reporter, error) {
	format := reporter.OutputFormat(viper.GetString("output-format"))
	if format == "" {
		format = reporter.FormatConsole
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("unsupported output format %q", format)
	}

	return reporter.New(&reporter.Config{
		Format:    format,
		UseColors: !viper.GetBool("no-color"),
	}), nil
}
