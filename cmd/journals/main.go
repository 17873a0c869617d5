package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/journals/internal/collect"
	"github.com/TobiSchelling/journals/internal/config"
	"github.com/TobiSchelling/journals/internal/database"
	"github.com/TobiSchelling/journals/internal/digest"
	"github.com/TobiSchelling/journals/internal/extract"
	"github.com/TobiSchelling/journals/internal/feed"
	"github.com/TobiSchelling/journals/internal/fetch"
	"github.com/TobiSchelling/journals/internal/logging"
	"github.com/TobiSchelling/journals/internal/reader"
	"github.com/TobiSchelling/journals/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	envPath    string
	cfg        *config.Config
	logger     = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "journals",
	Short:   "Read journal RSS feeds and their abstracts",
	Long:    "journals loads RSS feeds of scientific journals, lists their articles and pulls the abstract out of each article page.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		if err := config.LoadDotEnv(envPath); err != nil {
			return err
		}
		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		if err != nil {
			return fmt.Errorf("creating logger: %w", err)
		}
		if path != "" {
			logger.Debug("config loaded", zap.String("path", path))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&envPath, "env-file", ".env", "Path to .env file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(abstractCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(savedCmd)
	rootCmd.AddCommand(exportCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("journals", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/journals/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to choose the feeds loaded at startup.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and reading list status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Configured feeds:")
		if len(cfg.Feeds) == 0 {
			fmt.Println("  (none)")
		}
		for _, f := range cfg.Feeds {
			name := f.Name
			if name == "" {
				name = feed.SourceName(f.Location())
			}
			fmt.Printf("  %s  %s\n", name, f.Location())
		}
		fmt.Println("\nReading list:")
		fmt.Printf("  Saved: %d\n", stats.SavedAbstracts)
		fmt.Printf("  With abstract: %d\n", stats.WithAbstract)
		fmt.Printf("  Feeds: %d\n", stats.Feeds)
		return nil
	},
}

// --- feed command ---

var feedFile string

var feedCmd = &cobra.Command{
	Use:   "feed [url]",
	Short: "List the items of a feed",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && feedFile == "" {
			return errors.New("give a feed URL or --file")
		}

		sess := newSession(nil)
		defer sess.Close()

		var err error
		if feedFile != "" {
			_, err = sess.LoadFile(feedFile)
		} else {
			_, err = sess.AddFeed(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}

		for _, f := range sess.Feeds() {
			fmt.Printf("%s (%d items)\n\n", f.Name, f.Items)
		}
		printItems(os.Stdout, sess.Items(), -1)
		return nil
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedFile, "file", "f", "", "Read the feed from a local file")
}

// --- abstract command ---

var abstractHTML bool

var abstractCmd = &cobra.Command{
	Use:   "abstract [url]",
	Short: "Fetch an article page and print its abstract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := newSession(nil)
		defer sess.Close()

		v := sess.Preview(cmd.Context(), feed.Item{Link: args[0]})
		if v.Status == reader.StatusFetchError {
			return v.Err
		}

		if v.Page != nil && v.Page.Title != "" {
			fmt.Printf("%s\n\n", v.Page.Title)
		}
		if abstractHTML {
			fmt.Println(v.Document())
		} else {
			fmt.Println(v.Text())
		}
		if v.Status == reader.StatusFound {
			logger.Debug("abstract extracted", zap.String("strategy", string(v.Abstract.Strategy)))
		}
		return nil
	},
}

func init() {
	abstractCmd.Flags().BoolVar(&abstractHTML, "html", false, "Print the abstract as HTML")
}

// --- browse command ---

var browseCmd = &cobra.Command{
	Use:   "browse [url...]",
	Short: "Browse feeds interactively",
	Long:  "Load the given feeds (or the configured ones) and read abstracts from an interactive prompt.",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		p := newPrompt(os.Stdin, os.Stdout, db)
		p.sess = newSession(p)
		defer p.sess.Close()

		loadFeeds(cmd.Context(), p.sess, startupFeeds(args), p.printf)
		return p.run(cmd.Context())
	},
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web interface",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sess := newSession(nil)
		defer sess.Close()
		loadFeeds(cmd.Context(), sess, startupFeeds(nil), func(format string, a ...any) {
			fmt.Printf(format, a...)
		})

		srv, err := server.New(sess, db, logger)
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		fmt.Printf("Starting server at %s\n", server.URL(port))
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(cmd.Context(), srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- saved command ---

var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage the reading list",
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved abstracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetSavedAbstracts()
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("Nothing saved. Use 'save' while browsing to keep an abstract.")
			return nil
		}

		fmt.Println("Saved abstracts:")
		fmt.Println()
		for _, a := range items {
			icon := " "
			if a.AbstractHTML != nil && *a.AbstractHTML != "" {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s\n", a.ID, icon, a.Title)
			fmt.Printf("        %s\n", a.Link)
		}
		return nil
	},
}

var savedRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a saved abstract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid saved ID: %s", args[0])
		}

		saved, err := db.GetSavedAbstract(id)
		if err != nil {
			return err
		}
		if saved == nil {
			return fmt.Errorf("saved abstract %d not found", id)
		}

		if _, err := db.DeleteSavedAbstract(id); err != nil {
			return err
		}
		fmt.Printf("Removed [%d]: %s\n", id, saved.Title)
		return nil
	},
}

func init() {
	savedCmd.AddCommand(savedListCmd)
	savedCmd.AddCommand(savedRemoveCmd)
}

// --- export command ---

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the reading list as a Markdown digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.GetSavedAbstracts()
		if err != nil {
			return err
		}
		md := digest.Compose(items)

		if exportOutput == "" || exportOutput == "-" {
			fmt.Print(md)
			return nil
		}
		if err := os.WriteFile(exportOutput, []byte(md), 0o644); err != nil {
			return fmt.Errorf("writing digest: %w", err)
		}
		fmt.Printf("Wrote %d abstracts to %s\n", len(items), exportOutput)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "journals.db")
	return database.Open(dbPath, logger)
}

func newSession(render reader.Renderer) *reader.Session {
	fetcher := fetch.New(cfg.FetchOptions(), logger)
	return reader.New(fetcher, extract.New(cfg.ExtractOptions()), render, logger)
}

// startupFeeds returns the feeds named on the command line, falling back
// to the configured ones.
func startupFeeds(args []string) []config.Feed {
	if len(args) == 0 {
		return cfg.Feeds
	}
	feeds := make([]config.Feed, 0, len(args))
	for _, a := range args {
		if _, err := os.Stat(a); err == nil {
			feeds = append(feeds, config.Feed{File: a})
		} else {
			feeds = append(feeds, config.Feed{URL: a})
		}
	}
	return feeds
}

// loadFeeds collects the feeds into the session and reports the outcome.
// Failures are reported and skipped.
func loadFeeds(ctx context.Context, sess *reader.Session, feeds []config.Feed, printf func(string, ...any)) {
	if len(feeds) == 0 {
		return
	}
	fetcher := fetch.New(cfg.FetchOptions(), logger)
	r := collect.NewCollector(fetcher, logger).Collect(ctx, feeds, sess)
	for _, f := range r.Failures {
		printf("Could not load %s: %v\n", f.Location, f.Err)
	}
	printf("Loaded %d items from %d feeds\n", r.Items, r.Feeds)
}
