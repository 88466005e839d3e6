// Package main provides the entry point for the hum CLI.
package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/hum/tts"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames        = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}
	markdownExtensions = []string{".md", ".mdown", ".mkdn", ".mkd", ".markdown"}

	configFile    string
	voiceFlag     string
	description   string
	contextWindow int
	plain         bool
	follow        bool
	noCache       bool
	debug         bool
	printDoc      bool
	width         uint

	rootCmd = &cobra.Command{
		Use:   "hum [SOURCE]",
		Short: "Speak markdown and text aloud from the CLI",
		Long: paragraph(
			fmt.Sprintf("\nSpeak markdown and text aloud, %s. SOURCE is literal text, a file, a directory with a README, an http(s) URL, or - for stdin.", keyword("with feeling")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.ArbitraryArgs,
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

// source provides readable text to speak.
type source struct {
	reader   io.ReadCloser
	name     string
	markdown bool
}

// sourceFromArg resolves an argument into a readable source. Anything that
// is not stdin, a URL, a directory, or a file is spoken literally.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin, name: "stdin", markdown: true}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") {
		if u.Scheme != "" {
			if u.Scheme != "http" && u.Scheme != "https" {
				return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
			}
			// consumer of the source is responsible for closing the ReadCloser.
			resp, err := http.Get(u.String()) //nolint:noctx,bodyclose
			if err != nil {
				return nil, fmt.Errorf("unable to get url: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
			}
			return &source{reader: resp.Body, name: u.String(), markdown: true}, nil
		}
	}

	if st, err := os.Stat(arg); err == nil {
		// a directory: speak its README
		if st.IsDir() {
			return findReadme(arg)
		}

		r, err := os.Open(arg)
		if err != nil {
			return nil, fmt.Errorf("unable to open file: %w", err)
		}
		u, err := filepath.Abs(arg)
		if err != nil {
			return nil, fmt.Errorf("unable to get absolute path: %w", err)
		}
		return &source{reader: r, name: u, markdown: isMarkdownPath(arg)}, nil
	}

	// anything else is literal text
	return literalSource(arg), nil
}

// findReadme walks dir looking for the first README it can open.
func findReadme(dir string) (*source, error) {
	var src *source
	_ = filepath.Walk(dir, func(path string, _ os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		for _, v := range readmeNames {
			if strings.EqualFold(filepath.Base(path), v) {
				r, err := os.Open(path)
				if err != nil {
					continue
				}

				u, _ := filepath.Abs(path)
				src = &source{reader: r, name: u, markdown: true}

				// abort filepath.Walk
				return errors.New("source found")
			}
		}
		return nil
	})

	if src != nil {
		return src, nil
	}
	return nil, errors.New("missing speech source")
}

func literalSource(text string) *source {
	return &source{reader: io.NopCloser(strings.NewReader(text)), name: "text"}
}

func isMarkdownPath(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func validateOptions(cmd *cobra.Command) error {
	// grab config values from Viper
	width = viper.GetUint("width")
	debug = viper.GetBool("debug")

	if debug {
		log.SetLevel(log.DebugLevel)
		if os.Getenv("HUM_LOGFILE") == "" {
			log.SetOutput(os.Stderr)
		}
	}

	// the service's own variable name works as a key source too
	if !viper.IsSet("api_key") {
		if k := os.Getenv("HUME_API_KEY"); k != "" {
			viper.Set("api_key", k)
		}
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// The status display needs a terminal to draw on.
	if !isTerminal {
		plain = true
	}

	// Detect terminal width for --print
	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}

			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

func execute(cmd *cobra.Command, args []string) error {
	// if stdin is a pipe then speak from stdin. note that you can also
	// explicitly use a - to read from stdin.
	if yes, err := stdinIsPipe(); err != nil {
		return err
	} else if yes {
		if follow {
			return errors.New("cannot follow stdin")
		}
		src := &source{reader: os.Stdin, name: "stdin", markdown: true}
		defer src.reader.Close() //nolint:errcheck
		return speakSource(cmd.Context(), src)
	}

	if follow {
		if len(args) != 1 {
			return errors.New("--follow needs exactly one file to watch")
		}
		return followAndSpeak(cmd.Context(), args[0])
	}

	switch len(args) {
	// no source: look for a README in the working directory
	case 0:
		src, err := findReadme(".")
		if err != nil {
			return err
		}
		defer src.reader.Close() //nolint:errcheck
		return speakSource(cmd.Context(), src)

	case 1:
		src, err := sourceFromArg(args[0])
		if err != nil {
			return err
		}
		defer src.reader.Close() //nolint:errcheck
		return speakSource(cmd.Context(), src)

	// several bare words are literal text
	default:
		src := literalSource(strings.Join(args, " "))
		defer src.reader.Close() //nolint:errcheck
		return speakSource(cmd.Context(), src)
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVarP(&voiceFlag, "voice", "v", "", "voice id or saved voice name")
	rootCmd.Flags().StringVarP(&description, "description", "d", "", "acting instructions for the delivery")
	rootCmd.Flags().IntVarP(&contextWindow, "context", "c", -1, "prior utterances sent as context (-1 uses the config)")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "disable the interactive status display")
	rootCmd.Flags().BoolVarP(&follow, "follow", "f", false, "speak lines as they are appended to the file")
	rootCmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the synthesis cache")
	rootCmd.Flags().BoolVarP(&printDoc, "print", "p", false, "render the document to stdout before speaking")
	rootCmd.Flags().UintVarP(&width, "width", "w", 0, "word-wrap --print output at width (set to 0 to detect)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Config bindings
	_ = viper.BindPFlag("debug", rootCmd.Flags().Lookup("debug"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))

	viper.SetDefault("debug", false)
	viper.SetDefault("width", 0)

	rootCmd.AddCommand(voicesCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "hum")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "hum")}, dirs...)
	}

	if c := os.Getenv("HUM_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("hum")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("hum")
	viper.AutomaticEnv()

	tts.SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	// the config file is created on demand by `hum config`
	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "hum.yml")
	}
}
