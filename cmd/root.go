package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/EddyBeaupre/MapTileDownloader/internal/stitch"
	"github.com/EddyBeaupre/MapTileDownloader/pkg/tile"
)

const version = "2.0.0"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "maptiledownloader top_left bot_right [file]",
	Short: "Download and stitch map tiles for any bounding box",
	Long: `maptiledownloader fetches XYZ map tiles covering a bounding box and
stitches them into a single image, cropped to the requested corners.

The corners are free-form coordinate strings, latitude first. The output
format follows the file extension; without a file argument a timestamped
PNG is written to the working directory.

Examples:
  # Satellite imagery around Sept-Iles at the default zoom level
  maptiledownloader "50.048426, -66.813065" "50.024210, -66.763433" map.png

  # OpenStreetMap tiles at zoom level 10, plus a world file
  maptiledownloader "38.226853, -122.917099" "37.371794, -121.564407" bay.png -z 10 -w -u "http://a.tile.openstreetmap.org/{z}/{x}/{y}.png"

  # Start the HTTP server
  maptiledownloader serve --port 8080`,
	Args:    cobra.RangeArgs(2, 3),
	Version: version,
	RunE:    runRoot,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.maptiledownloader.yaml)")

	// Tile options
	rootCmd.Flags().IntP("zoom", "z", 14, "zoom level")
	rootCmd.Flags().StringP("url", "u", tile.DefaultURLTemplate, "tile URL template with {x}, {y} and {z} placeholders")
	rootCmd.Flags().Duration("timeout", 30*time.Second, "per-tile HTTP timeout")

	// Output options
	rootCmd.Flags().BoolP("worldfile", "w", false, "write world file")

	// HTTP options
	rootCmd.Flags().String("user-agent", "", "override the HTTP User-Agent header")

	// Bind flags to viper for root command
	viper.BindPFlag("zoom", rootCmd.Flags().Lookup("zoom"))
	viper.BindPFlag("url", rootCmd.Flags().Lookup("url"))
	viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("worldfile", rootCmd.Flags().Lookup("worldfile"))
	viper.BindPFlag("user-agent", rootCmd.Flags().Lookup("user-agent"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".maptiledownloader" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".maptiledownloader")
	}

	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func runRoot(cmd *cobra.Command, args []string) error {
	topLeft, err := tile.ParseLatLon(args[0])
	if err != nil {
		return fmt.Errorf("top left corner: %w", err)
	}
	botRight, err := tile.ParseLatLon(args[1])
	if err != nil {
		return fmt.Errorf("bottom right corner: %w", err)
	}

	output := fmt.Sprintf("img_%s.png", time.Now().Format("20060102150405"))
	if len(args) == 3 {
		output = args[2]
	}

	headers := tile.DefaultHeaders()
	if ua := viper.GetString("user-agent"); ua != "" {
		headers["user-agent"] = ua
	}

	// The bar is created on the first progress call, once the tile count
	// is known. Later calls arrive from the download goroutines; Add is
	// safe for concurrent use.
	var bar *progressbar.ProgressBar
	progress := func(completed, total int) {
		if bar == nil {
			bar = progressbar.Default(int64(total), "tiles")
			return
		}
		bar.Add(1)
	}

	st, err := stitch.New(stitch.Options{
		URL:      viper.GetString("url"),
		Headers:  headers,
		Zoom:     viper.GetInt("zoom"),
		Timeout:  viper.GetDuration("timeout"),
		Progress: progress,
		Report:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	result, err := st.Stitch(cmd.Context(), topLeft, botRight)
	if err != nil {
		return err
	}
	if bar != nil {
		bar.Finish()
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "==Output File: %s\n", output)
	if err := imaging.Save(result.Image.Image(), output); err != nil {
		return fmt.Errorf("write %s: %w", output, err)
	}

	if viper.GetBool("worldfile") {
		px, py := result.Layout.PixelSize()
		originX, originY := result.Layout.OriginMeters()
		path, err := tile.WriteWorldFile(output, px, py, originX, originY)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "World file written to '%s'.\n", path)
	}

	return nil
}
